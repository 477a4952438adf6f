package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FlagsFile is the on-disk form of the per-domain backend switches:
//
//	default: sqlite
//	backends:
//	  accounts: postgres
//	  notifications: memory
type FlagsFile struct {
	Default  string            `yaml:"default"`
	Backends map[string]string `yaml:"backends"`
}

// LoadFlagsFile reads and checks a feature flags file.
func LoadFlagsFile(path string) (*FlagsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flags file: %w", err)
	}
	var f FlagsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse flags file: %w", err)
	}
	for domain := range f.Backends {
		if !isDomain(domain) {
			return nil, fmt.Errorf("unknown domain %q in flags file", domain)
		}
	}
	return &f, nil
}

// SaveFlagsFile writes the current per-domain selection to path.
func SaveFlagsFile(path string, c *Config) error {
	f := FlagsFile{Default: c.DataBackend, Backends: map[string]string{}}
	for _, d := range Domains {
		f.Backends[d] = c.BackendFor(d)
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write flags file: %w", err)
	}
	return nil
}

func isDomain(name string) bool {
	for _, d := range Domains {
		if d == name {
			return true
		}
	}
	return false
}
