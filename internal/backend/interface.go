package backend

import (
	"context"
	"time"

	"detetive/internal/ports"
)

// Stores is the per-domain set of stores the services run on. Each field may
// be served by a different backend.
type Stores struct {
	Users         ports.UserStore
	Accounts      ports.AccountStore
	Categories    ports.CategoryStore
	Transactions  ports.TransactionStore
	Cards         ports.CardStore
	Budgets       ports.BudgetStore
	Notifications ports.NotificationStore

	// Selection records which backend serves each domain.
	Selection map[string]BackendType
	// Health holds one pinger per opened backend.
	Health map[BackendType]ports.Pinger
}

// Ping checks every opened backend and returns the first failure.
func (s *Stores) Ping(ctx context.Context) error {
	for name, p := range s.Health {
		if err := p.Ping(ctx); err != nil {
			return &PingError{Backend: name, Err: err}
		}
	}
	return nil
}

type PingError struct {
	Backend BackendType
	Err     error
}

func (e *PingError) Error() string { return string(e.Backend) + ": " + e.Err.Error() }
func (e *PingError) Unwrap() error { return e.Err }

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the stores and the cleanup closing every opened backend.
type Result struct {
	Stores  *Stores
	Cleanup CleanupFunc
}

// Factory builds stores from the per-domain selection.
type Factory interface {
	Resolve(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Domains maps each domain to its backend.
	Domains map[string]BackendType

	SQLiteDBPath string
	DatabaseURL  string

	// MockFixtures is an optional YAML fixtures file for the memory backend.
	MockFixtures string
	// Now anchors relative fixture dates; zero means time.Now.
	Now time.Time
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
