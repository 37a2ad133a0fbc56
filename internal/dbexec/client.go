package dbexec

import (
	"fmt"
	"sync"

	"throughline/internal/sqlutil"
)

// Client pairs a read and a write executor for one named connection.
// Fetches run against the reader; UPDATE/DELETE always run against the writer.
type Client struct {
	name    string
	dialect sqlutil.Dialect
	read    QueryExecutor
	write   QueryExecutor
}

// NewClient creates a client. When read is nil the write executor serves both
// roles (no replica configured).
func NewClient(name string, dialect sqlutil.Dialect, read, write QueryExecutor) *Client {
	if read == nil {
		read = write
	}
	return &Client{name: name, dialect: dialect, read: read, write: write}
}

// Name returns the connection name the client was registered under.
func (c *Client) Name() string { return c.name }

// Dialect returns the SQL dialect of the underlying connection.
func (c *Client) Dialect() sqlutil.Dialect { return c.dialect }

// Reader returns the executor used for SELECT queries.
func (c *Client) Reader() QueryExecutor { return c.read }

// Writer returns the executor used for mutating statements.
func (c *Client) Writer() QueryExecutor { return c.write }

// Manager resolves named connections. The relation layer itself never opens
// connections; callers register clients and pass the resolved client down, so
// a named-connection override propagates to every query a relation issues.
type Manager struct {
	mu          sync.RWMutex
	clients     map[string]*Client
	defaultName string
}

// NewManager creates an empty connection manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]*Client)}
}

// Register adds a client under its name. The first registered client becomes
// the default.
func (m *Manager) Register(client *Client) error {
	if client == nil || client.name == "" {
		return fmt.Errorf("cannot register unnamed client")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.clients[client.name]; exists {
		return fmt.Errorf("connection %s is already registered", client.name)
	}
	m.clients[client.name] = client
	if m.defaultName == "" {
		m.defaultName = client.name
	}
	return nil
}

// SetDefault marks a registered connection as the default.
func (m *Manager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[name]; !ok {
		return fmt.Errorf("connection %s is not registered", name)
	}
	m.defaultName = name
	return nil
}

// Client resolves a connection by name; an empty name resolves the default.
func (m *Manager) Client(name string) (*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if name == "" {
		name = m.defaultName
	}
	if name == "" {
		return nil, fmt.Errorf("no connections registered")
	}
	client, ok := m.clients[name]
	if !ok {
		return nil, fmt.Errorf("connection %s is not registered", name)
	}
	return client, nil
}
