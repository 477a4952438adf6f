package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"detetive/internal/config"
	"detetive/internal/ports"
	"detetive/internal/storage"
	"detetive/internal/storage/memory"
)

// storeSet is implemented by every backend: each serves all domains.
type storeSet interface {
	ports.UserStore
	ports.AccountStore
	ports.CategoryStore
	ports.TransactionStore
	ports.CardStore
	ports.BudgetStore
	ports.NotificationStore
	ports.Pinger
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// Resolve opens each selected backend once and wires every domain to it.
func (f *DefaultFactory) Resolve(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opened := map[BackendType]storeSet{}
	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	open := func(bt BackendType) (storeSet, error) {
		if s, ok := opened[bt]; ok {
			return s, nil
		}
		var (
			s   storeSet
			err error
		)
		switch bt {
		case MemoryBackend:
			s, err = f.createMemoryBackend(cfg)
		case SQLiteBackend:
			var repo *storage.Repository
			repo, err = f.createSQLiteBackend(cfg)
			if err == nil {
				s = repo
				closers = append(closers, repo.Close)
			}
		case PostgresBackend:
			var repo *storage.Repository
			repo, err = f.createPostgresBackend(ctx, cfg)
			if err == nil {
				s = repo
				closers = append(closers, repo.Close)
			}
		default:
			err = fmt.Errorf("unsupported backend type: %s", bt)
		}
		if err != nil {
			return nil, err
		}
		opened[bt] = s
		return s, nil
	}

	stores := &Stores{
		Selection: make(map[string]BackendType, len(cfg.Domains)),
		Health:    map[BackendType]ports.Pinger{},
	}
	for _, domain := range config.Domains {
		bt := cfg.Domains[domain]
		s, err := open(bt)
		if err != nil {
			_ = cleanup()
			return nil, fmt.Errorf("open %s backend for %s: %w", bt, domain, err)
		}
		stores.Selection[domain] = bt
		stores.Health[bt] = s
		switch domain {
		case config.DomainUsers:
			stores.Users = s
		case config.DomainAccounts:
			stores.Accounts = s
		case config.DomainCategories:
			stores.Categories = s
		case config.DomainTransactions:
			stores.Transactions = s
		case config.DomainCards:
			stores.Cards = s
		case config.DomainBudgets:
			stores.Budgets = s
		case config.DomainNotifications:
			stores.Notifications = s
		}
		f.logger.Debug("Domain backend selected", "domain", domain, "backend", string(bt))
	}

	f.logger.Info("Backends resolved", "opened", len(opened), "selection", fmt.Sprint(stores.Selection))
	return &Result{Stores: stores, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) createSQLiteBackend(cfg Config) (*storage.Repository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, cfg Config) (*storage.Repository, error) {
	repo, err := storage.NewPostgresRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}
	if err := repo.Ping(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	f.logger.Info("Initialized postgres backend")
	return repo, nil
}

func (f *DefaultFactory) createMemoryBackend(cfg Config) (*memory.Store, error) {
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	store, err := memory.NewFromFixtures(cfg.MockFixtures, now)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "fixtures", fixturesName(cfg.MockFixtures))
	return store, nil
}

func fixturesName(path string) string {
	if path == "" {
		return "builtin"
	}
	return path
}
