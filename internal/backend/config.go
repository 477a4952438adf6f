package backend

import (
	"fmt"

	"detetive/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	domains := make(map[string]BackendType, len(config.Domains))
	for _, d := range config.Domains {
		bt := BackendType(appConfig.BackendFor(d))
		if !bt.IsValid() {
			return Config{}, fmt.Errorf("invalid backend type for %s: %s", d, bt)
		}
		domains[d] = bt
	}

	return Config{
		Domains:      domains,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
		MockFixtures: appConfig.MockFixtures,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	for _, d := range config.Domains {
		bt, ok := c.Domains[d]
		if !ok {
			return fmt.Errorf("no backend selected for domain %s", d)
		}
		if !bt.IsValid() {
			return fmt.Errorf("invalid backend type for %s: %s", d, bt)
		}
	}
	if c.uses(SQLiteBackend) && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.uses(PostgresBackend) && c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required for postgres backend")
	}
	return nil
}

func (c Config) uses(bt BackendType) bool {
	for _, v := range c.Domains {
		if v == bt {
			return true
		}
	}
	return false
}

// AllDomains selects bt for every domain.
func AllDomains(bt BackendType) map[string]BackendType {
	out := make(map[string]BackendType, len(config.Domains))
	for _, d := range config.Domains {
		out[d] = bt
	}
	return out
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}
