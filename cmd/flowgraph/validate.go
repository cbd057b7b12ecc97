package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/graph"
	"github.com/kbukum/flowgraph/workflow"
)

type validateOptions struct {
	json bool
	all  bool
	lint bool
}

// fileReport is the outcome of validating one file. Errors is filled with
// --all, Findings with --lint.
type fileReport struct {
	File     string             `json:"file"`
	Valid    bool               `json:"valid"`
	Error    *graph.Diagnostic  `json:"error,omitempty"`
	Errors   []graph.Diagnostic `json:"errors,omitempty"`
	Findings []graph.Finding    `json:"findings,omitempty"`
}

func newValidateCmd(flags *globalFlags) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check that canvas documents are compilable",
		Long: `Validate checks each document against the structural rules the
compiler relies on: every port connected, an end node present, at least one
program node, and every program node's details saved.

Files ending in .yaml or .yml are read as YAML, anything else as JSON.
The command exits with status 2 when any document is rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd, flags, false)
			if err != nil {
				return err
			}
			return runValidate(cmd, env, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print one JSON report per file")
	cmd.Flags().BoolVar(&opts.all, "all", false, "report every failing check instead of the first")
	cmd.Flags().BoolVar(&opts.lint, "lint", false, "also report authoring issues that do not block compilation")
	return cmd
}

func runValidate(cmd *cobra.Command, env *commandEnv, opts *validateOptions, files []string) error {
	out := cmd.OutOrStdout()
	rejected := 0

	for _, file := range files {
		report, err := validateFile(cmd, env.svc, opts, file)
		if err != nil {
			return err
		}
		if !report.Valid {
			rejected++
		}
		if err := printReport(out, report, opts.json); err != nil {
			return err
		}
	}

	if rejected > 0 {
		return fmt.Errorf("%d of %d: %w", rejected, len(files), errInvalid)
	}
	return nil
}

// validateFile loads and validates one file. A document that cannot be
// decoded is reported as invalid; an unreadable file is an error.
func validateFile(cmd *cobra.Command, svc workflow.Service, opts *validateOptions, file string) (fileReport, error) {
	doc, err := graph.LoadFile(file)
	if err != nil {
		appErr, ok := errors.AsAppError(err)
		if !ok {
			return fileReport{}, err
		}
		return fileReport{File: file, Error: &graph.Diagnostic{
			Code:    appErr.Code,
			NodeID:  appErr.NodeID(),
			Message: appErr.Message,
		}}, nil
	}

	res, err := svc.Validate(cmd.Context(), workflow.Request{Document: doc})
	if err != nil {
		return fileReport{}, err
	}
	report := fileReport{File: file, Valid: res.Valid, Error: res.Error}

	if opts.all && !res.Valid {
		report.Errors = graph.ValidateAll(doc, nil).Errors
	}
	if opts.lint {
		// Lint needs a well-formed index; contract errors surface on compile.
		if idx, err := graph.NewIndex(doc); err == nil {
			report.Findings = graph.Lint(idx)
		}
	}
	return report, nil
}

func printReport(w io.Writer, r fileReport, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(r)
	}

	var lines []string
	switch {
	case r.Valid:
		lines = append(lines, "valid")
	case len(r.Errors) > 0:
		for i := range r.Errors {
			lines = append(lines, describe(&r.Errors[i]))
		}
	default:
		lines = append(lines, describe(r.Error))
	}
	for _, f := range r.Findings {
		lines = append(lines, "note "+describeFinding(f))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "%s: %s\n", r.File, line); err != nil {
			return err
		}
	}
	return nil
}

func describe(d *graph.Diagnostic) string {
	s := string(d.Code)
	if d.NodeID != "" {
		s += " at " + d.NodeID
		if d.PortID != "" {
			s += "." + d.PortID
		}
	}
	return s + ": " + d.Message
}

func describeFinding(f graph.Finding) string {
	switch {
	case f.NodeID != "":
		return fmt.Sprintf("%s at %s: %s", f.Code, f.NodeID, f.Message)
	case f.EdgeID != "":
		return fmt.Sprintf("%s at edge %s: %s", f.Code, f.EdgeID, f.Message)
	}
	return f.Code + ": " + f.Message
}
