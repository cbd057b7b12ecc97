package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/flowgraph/logger"
	"github.com/kbukum/flowgraph/workflow"
)

// commandEnv is what the local commands share: the loaded config and a
// compiler service built from it.
type commandEnv struct {
	cfg *AppConfig
	svc workflow.Service
}

// newCommandEnv loads the config and builds the compiler service. With
// verbose set, every validation and compile is logged to stderr.
func newCommandEnv(cmd *cobra.Command, flags *globalFlags, strict bool) (*commandEnv, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if strict {
		cfg.Compiler.StrictJoin = true
	}

	svc := workflow.NewService(workflow.NewCompiler(workflow.OptionsFromConfig(cfg.Compiler)))
	if flags.verbose {
		cfg.Logging.Level = "debug"
		svc = workflow.WithLogging(svc, logger.NewWithWriter(&cfg.Logging, cfg.Name, cmd.ErrOrStderr()))
	}
	return &commandEnv{cfg: cfg, svc: svc}, nil
}
