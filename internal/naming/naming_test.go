package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"User", "user"},
		{"BlogPost", "blog_post"},
		{"userId", "user_id"},
		{"APIToken", "api_token"},
		{"id", "id"},
		{"already_snake", "already_snake"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToSnakeCase(tt.input))
		})
	}
}

func TestLowerCamel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"User", "user"},
		{"BlogPost", "blogPost"},
		{"APIToken", "apiToken"},
		{"ID", "id"},
		{"alreadyLower", "alreadyLower"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, LowerCamel(tt.input))
		})
	}
}

func TestForeignKeyField(t *testing.T) {
	assert.Equal(t, "userId", ForeignKeyField("User"))
	assert.Equal(t, "blogPostId", ForeignKeyField("BlogPost"))
	assert.Equal(t, "countryId", ForeignKeyField("Country"))
}

func TestPivotAlias(t *testing.T) {
	assert.Equal(t, "through_country_id", PivotAlias("Country", "id"))
	assert.Equal(t, "through_blog_post_owner_id", PivotAlias("BlogPost", "ownerId"))
}

func TestTableName(t *testing.T) {
	n := Default()
	assert.Equal(t, "users", n.TableName("User"))
	assert.Equal(t, "countries", n.TableName("Country"))
	assert.Equal(t, "user_profiles", n.TableName("UserProfile"))
}

func TestTableName_Overrides(t *testing.T) {
	n := New(Config{
		PluralOverrides:   map[string]string{"person": "people"},
		SingularOverrides: map[string]string{},
	})
	assert.Equal(t, "people", n.TableName("Person"))
}

func TestCaseConversions(t *testing.T) {
	assert.Equal(t, "userName", ToCamelCase("user_name"))
	assert.Equal(t, "UserProfiles", ToPascalCase("user_profiles"))
}
