package record

import (
	"throughline/internal/dbexec"
	"throughline/internal/schema"
)

// ScanRecords hydrates records from rows whose column order is the entity's
// field order followed by the given extras aliases. The caller keeps ownership
// of rows and is responsible for closing them.
func ScanRecords(rows dbexec.Rows, entity *schema.Entity, extras []string) ([]*Record, error) {
	width := len(entity.Fields) + len(extras)
	var results []*Record

	for rows.Next() {
		values := make([]any, width)
		valuePtrs := make([]any, width)
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		rec := New(entity)
		for i, f := range entity.Fields {
			rec.attrs[f.Name] = convertValue(values[i])
		}
		for j, alias := range extras {
			rec.extras[alias] = convertValue(values[len(entity.Fields)+j])
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

func convertValue(val any) any {
	if val == nil {
		return nil
	}

	// Drivers commonly return []byte for text columns.
	if b, ok := val.([]byte); ok {
		return string(b)
	}

	return val
}
