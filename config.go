package deplink

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config is the project's namespace configuration, loaded from YAML:
//
//	project: my-app
//	namespaces:
//	  core:
//	    patterns: ["src/core/**/*.ts"]
//	    excludes: ["**/*.test.ts"]
type Config struct {
	Project    string                     `yaml:"project"`
	Namespaces map[string]NamespaceConfig `yaml:"namespaces"`
}

// NamespaceConfig selects the files belonging to one namespace. Patterns
// and excludes are doublestar globs relative to the analysis root.
type NamespaceConfig struct {
	Patterns []string `yaml:"patterns"`
	Excludes []string `yaml:"excludes"`
}

// LoadConfig reads and validates a namespace configuration. A missing or
// malformed file is fatal: analysis cannot proceed without knowing the
// namespace boundaries.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Project == "" {
		return fmt.Errorf("%w: project name is required", ErrConfig)
	}
	if len(c.Namespaces) == 0 {
		return fmt.Errorf("%w: at least one namespace is required", ErrConfig)
	}
	for name, ns := range c.Namespaces {
		if len(ns.Patterns) == 0 {
			return fmt.Errorf("%w: namespace %s has no patterns", ErrConfig, name)
		}
	}
	return nil
}

// Namespace returns one namespace's file selection. Unknown names are
// fatal, matching the configuration error model.
func (c *Config) Namespace(name string) (*NamespaceConfig, error) {
	ns, ok := c.Namespaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNamespaceNotFound, name)
	}
	return &ns, nil
}

// NamespaceNames lists the configured namespaces in sorted order.
func (c *Config) NamespaceNames() []string {
	names := make([]string, 0, len(c.Namespaces))
	for name := range c.Namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
