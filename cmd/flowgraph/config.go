package main

import (
	"github.com/kbukum/flowgraph/config"
	"github.com/kbukum/flowgraph/observability"
	"github.com/kbukum/flowgraph/server"
	"github.com/kbukum/flowgraph/version"
)

// AppConfig is the complete configuration of the flowgraph binary.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Compiler      config.CompilerConfig `yaml:"compiler" mapstructure:"compiler"`
	Server        server.Config         `yaml:"server" mapstructure:"server"`
	Observability observability.Config  `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = version.Name
	}
	if c.Version == "" {
		c.Version = version.Get().Version
	}
	c.ServiceConfig.ApplyDefaults()
	c.Compiler.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Compiler.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}

// loadConfig reads the config file and environment. Missing files are not
// an error; every field has a default.
func loadConfig(flags *globalFlags) (*AppConfig, error) {
	cfg := &AppConfig{}
	var opts []config.LoaderOption
	if flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(flags.configFile))
	}
	if flags.envFile != "" {
		opts = append(opts, config.WithEnvFile(flags.envFile))
	}
	if err := config.Load(version.Name, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
