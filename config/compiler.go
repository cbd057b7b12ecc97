package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/flowgraph/util"
)

// Target orchestration systems offered by the editor.
const (
	SystemConductor = "conductor"
	SystemAirflow   = "airflow"
)

// CompilerConfig controls graph compilation.
type CompilerConfig struct {
	// StrictJoin turns an unresolved fork join into a hard error.
	StrictJoin bool `yaml:"strict_join" mapstructure:"strict_join"`
	// CheckPayloads validates program node configurations against their schema.
	CheckPayloads bool `yaml:"check_payloads" mapstructure:"check_payloads"`
	// AllowedSystems lists accepted systemName values. Empty means the defaults.
	AllowedSystems []string `yaml:"allowed_systems" mapstructure:"allowed_systems"`
	// DefaultSystem is used when a document carries no systemName.
	DefaultSystem string `yaml:"default_system" mapstructure:"default_system"`
	// BatchWorkers bounds concurrent compilations in a batch.
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// ApplyDefaults applies default values to compiler configuration.
func (c *CompilerConfig) ApplyDefaults() {
	if len(c.AllowedSystems) == 0 {
		c.AllowedSystems = []string{SystemConductor, SystemAirflow}
	}
	c.AllowedSystems = util.Unique(c.AllowedSystems)
	if c.DefaultSystem == "" {
		c.DefaultSystem = SystemConductor
	}
	if c.BatchWorkers <= 0 {
		c.BatchWorkers = 4
	}
}

// Validate validates compiler configuration.
func (c *CompilerConfig) Validate() error {
	if !slices.Contains(c.AllowedSystems, c.DefaultSystem) {
		return fmt.Errorf("compiler.default_system %q is not in allowed_systems %v", c.DefaultSystem, c.AllowedSystems)
	}
	if c.BatchWorkers > 256 {
		return fmt.Errorf("compiler.batch_workers must be at most 256 (got: %d)", c.BatchWorkers)
	}
	return nil
}
