// Package engine assembles the relation engine from configuration: it opens
// the configured database connections, registers them with a connection
// manager, and hands out preloaders and relation-scoped builders.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"throughline/internal/config"
	"throughline/internal/dbexec"
	"throughline/internal/logging"
	"throughline/internal/observability"
	"throughline/internal/preload"
	"throughline/internal/record"
	"throughline/internal/relation"
)

// Engine owns the database connections and the relation registry for one
// configured deployment.
type Engine struct {
	cfg       *config.Config
	logger    *logging.Logger
	manager   *dbexec.Manager
	relations *relation.Registry
	metrics   *observability.RelationMetrics
	dbs       []*sql.DB
}

// New opens every configured connection and wires the connection manager.
// metrics may be nil when instrumentation is not configured.
func New(cfg *config.Config, logger *logging.Logger, metrics *observability.RelationMetrics) (*Engine, error) {
	e := &Engine{
		cfg:       cfg,
		logger:    logger,
		manager:   dbexec.NewManager(),
		relations: relation.NewRegistry(),
		metrics:   metrics,
	}

	for name, conn := range cfg.Connections {
		client, err := e.openClient(name, conn)
		if err != nil {
			e.Close()
			return nil, err
		}
		if err := e.manager.Register(client); err != nil {
			e.Close()
			return nil, err
		}
		logger.Info("registered database connection",
			"connection", name, "driver", conn.Driver)
	}

	if cfg.DefaultConnection != "" {
		if err := e.manager.SetDefault(cfg.DefaultConnection); err != nil {
			e.Close()
			return nil, err
		}
	}

	return e, nil
}

func (e *Engine) openClient(name string, conn config.ConnectionConfig) (*dbexec.Client, error) {
	write, err := e.openDB(conn, conn.DSN())
	if err != nil {
		return nil, fmt.Errorf("connection %q: %w", name, err)
	}

	var read dbexec.QueryExecutor
	if conn.ReadDSN != "" {
		readDB, err := e.openDB(conn, conn.ReadDSN)
		if err != nil {
			return nil, fmt.Errorf("connection %q replica: %w", name, err)
		}
		read = dbexec.NewStandardExecutor(readDB)
	}

	return dbexec.NewClient(name, conn.Dialect(), read, dbexec.NewStandardExecutor(write)), nil
}

func (e *Engine) openDB(conn config.ConnectionConfig, dsn string) (*sql.DB, error) {
	driver := "mysql"
	if conn.Driver == config.DriverPostgres {
		driver = "pgx"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if conn.Pool.MaxOpen > 0 {
		db.SetMaxOpenConns(conn.Pool.MaxOpen)
	}
	if conn.Pool.MaxIdle > 0 {
		db.SetMaxIdleConns(conn.Pool.MaxIdle)
	}
	if conn.Pool.MaxLifetime > 0 {
		db.SetConnMaxLifetime(conn.Pool.MaxLifetime)
	}

	e.dbs = append(e.dbs, db)
	return db, nil
}

// Ping verifies every opened connection is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	for _, db := range e.dbs {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Relations returns the engine's relation registry.
func (e *Engine) Relations() *relation.Registry { return e.relations }

// Client resolves a named connection; an empty name resolves the default.
func (e *Engine) Client(name string) (*dbexec.Client, error) {
	return e.manager.Client(name)
}

// Related returns a relation-scoped builder for one record on the named
// connection.
func (e *Engine) Related(rec *record.Record, relationName, connection string) (*relation.Builder, error) {
	client, err := e.Client(connection)
	if err != nil {
		return nil, err
	}
	return e.relations.Related(rec, relationName, client)
}

// Preloader returns a preloader bound to the named connection.
func (e *Engine) Preloader(connection string) (*preload.Preloader, error) {
	client, err := e.Client(connection)
	if err != nil {
		return nil, err
	}
	return preload.NewPreloader(client, e.metrics, e.cfg.Preload.MaxInClause), nil
}

// Close releases every opened database handle.
func (e *Engine) Close() {
	for _, db := range e.dbs {
		if err := db.Close(); err != nil {
			e.logger.Warn("failed to close database handle", "error", err)
		}
	}
	e.dbs = nil
}
