// Package config loads and validates engine configuration from defaults, a
// YAML file, environment variables, and command line flags, in ascending
// precedence.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"throughline/internal/sqlutil"
)

// Supported connection drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Logging     LoggingConfig               `mapstructure:"logging"`
	Connections map[string]ConnectionConfig `mapstructure:"connections"`
	// DefaultConnection names the connection used when callers do not pick one.
	DefaultConnection string        `mapstructure:"default_connection"`
	Preload           PreloadConfig `mapstructure:"preload"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PreloadConfig controls batched eager loads.
type PreloadConfig struct {
	// MaxInClause caps key values per IN clause before a batch splits into
	// multiple queries. Zero falls back to the built-in default.
	MaxInClause int `mapstructure:"max_in_clause"`
}

// ConnectionConfig describes one named database connection.
type ConnectionConfig struct {
	Driver string `mapstructure:"driver"`

	// ConnectionString, when set, is used verbatim and the discrete fields
	// below are ignored.
	ConnectionString string `mapstructure:"dsn"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	// SSLMode applies to postgres connections only.
	SSLMode string `mapstructure:"ssl_mode"`

	// ReadDSN, when set, opens a separate read-replica connection; fetches run
	// against it while mutations stay on the primary.
	ReadDSN string `mapstructure:"read_dsn"`

	Pool PoolConfig `mapstructure:"pool"`
}

// PoolConfig tunes the database/sql connection pool.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// Dialect maps the configured driver to its SQL dialect.
func (c *ConnectionConfig) Dialect() sqlutil.Dialect {
	if c.Driver == DriverPostgres {
		return sqlutil.Postgres
	}
	return sqlutil.MySQL
}

// DSN returns the driver-specific data source name. For MySQL, parseTime and
// UTC are always enabled so temporal columns scan into time.Time.
func (c *ConnectionConfig) DSN() string {
	if c.ConnectionString != "" {
		if c.Driver == DriverPostgres {
			return c.ConnectionString
		}
		return withMySQLDefaults(c.ConnectionString)
	}

	if c.Driver == DriverPostgres {
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
			Path:   "/" + c.Database,
		}
		q := url.Values{}
		if c.SSLMode != "" {
			q.Set("sslmode", c.SSLMode)
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN()
}

// withMySQLDefaults ensures parseTime and loc are present on a raw DSN.
func withMySQLDefaults(dsn string) string {
	if !strings.Contains(dsn, "parseTime") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}
	if !strings.Contains(dsn, "loc=") {
		dsn += "&loc=UTC"
	}
	return dsn
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Connections) == 0 {
		return fmt.Errorf("at least one connection must be configured")
	}

	for name, conn := range c.Connections {
		switch conn.Driver {
		case DriverMySQL, DriverPostgres:
		case "":
			return fmt.Errorf("connection %q: driver is required", name)
		default:
			return fmt.Errorf("connection %q: unsupported driver %q", name, conn.Driver)
		}
		if conn.ConnectionString == "" {
			if conn.Host == "" {
				return fmt.Errorf("connection %q: host is required when dsn is not set", name)
			}
			if conn.Database == "" {
				return fmt.Errorf("connection %q: database is required when dsn is not set", name)
			}
		}
	}

	if c.DefaultConnection != "" {
		if _, ok := c.Connections[c.DefaultConnection]; !ok {
			return fmt.Errorf("default_connection %q is not a configured connection", c.DefaultConnection)
		}
	}

	if c.Preload.MaxInClause < 0 {
		return fmt.Errorf("preload.max_in_clause cannot be negative")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}

	return nil
}
