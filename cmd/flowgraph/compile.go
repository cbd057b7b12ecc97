package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/graph"
	"github.com/kbukum/flowgraph/util"
	"github.com/kbukum/flowgraph/workflow"
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type compileOptions struct {
	name   string
	system string
	format string
	outDir string
	strict bool
}

func newCompileCmd(flags *globalFlags) *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile FILE...",
		Short: "Compile canvas documents into workflows",
		Long: `Compile validates each document and turns it into an ordered task
list. The workflow name comes from --name, then the document, then the file
name. Several files are compiled concurrently.

Without --out-dir workflows are written to stdout; with it each lands in
<out-dir>/<file>.<format>. Anomalies are reported on stderr. The command
exits with status 2 when any document is rejected.`,
		Example: `  flowgraph compile canvas.json
  flowgraph compile --format yaml --system airflow canvas.yaml
  flowgraph compile --out-dir build/ canvases/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.check(len(args)); err != nil {
				return err
			}
			env, err := newCommandEnv(cmd, flags, opts.strict)
			if err != nil {
				return err
			}
			return runCompile(cmd, env, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "workflow name (single file only)")
	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "target orchestration system")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "output format: json or yaml")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", "", "write one file per workflow into this directory")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail when a fork's branches do not meet at one join")
	return cmd
}

func (o *compileOptions) check(files int) error {
	if o.format != formatJSON && o.format != formatYAML {
		return fmt.Errorf("unknown format %q: want %s or %s", o.format, formatJSON, formatYAML)
	}
	if o.name != "" && files > 1 {
		return fmt.Errorf("--name can only be used with a single file")
	}
	return nil
}

func runCompile(cmd *cobra.Command, env *commandEnv, opts *compileOptions, files []string) error {
	stderr := cmd.ErrOrStderr()

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	// Documents that fail to decode are rejected here; the rest compile as a batch.
	var (
		reqs     []workflow.Request
		batched  []string
		rejected int
	)
	for _, file := range files {
		doc, err := graph.LoadFile(file)
		if err != nil {
			if !errors.IsAppError(err) {
				return err
			}
			fmt.Fprintf(stderr, "%s: %v\n", file, err)
			rejected++
			continue
		}
		reqs = append(reqs, workflow.Request{
			Document: doc,
			Metadata: workflow.Metadata{
				WorkflowName: util.Coalesce(util.SanitizeString(opts.name), doc.WorkflowName, stem(file)),
				SystemName:   util.SanitizeString(opts.system),
			},
		})
		batched = append(batched, file)
	}

	results, err := workflow.Batch(cmd.Context(), env.svc, reqs, env.cfg.Compiler.BatchWorkers)
	if err != nil {
		return err
	}

	for i, r := range results {
		file := batched[i]
		if r.Err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", file, r.Err)
			rejected++
			continue
		}
		for _, a := range r.Result.Anomalies {
			fmt.Fprintf(stderr, "%s: warning %s\n", file, describeAnomaly(a))
		}
		if err := writeWorkflow(cmd.OutOrStdout(), opts, file, r.Result.Workflow); err != nil {
			return err
		}
	}

	if rejected > 0 {
		return fmt.Errorf("%d of %d: %w", rejected, len(files), errInvalid)
	}
	return nil
}

func writeWorkflow(stdout io.Writer, opts *compileOptions, file string, wf *workflow.Workflow) error {
	data, err := encodeWorkflow(wf, opts.format)
	if err != nil {
		return err
	}
	if opts.outDir == "" {
		_, err = stdout.Write(data)
		return err
	}
	path := filepath.Join(opts.outDir, stem(file)+"."+opts.format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func encodeWorkflow(wf *workflow.Workflow, format string) ([]byte, error) {
	if format == formatYAML {
		out, err := workflow.MarshalYAML(wf)
		if err != nil {
			return nil, err
		}
		return append([]byte("---\n"), out...), nil
	}
	out, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func describeAnomaly(a workflow.Anomaly) string {
	if a.NodeID == "" {
		return fmt.Sprintf("%s: %s", a.Code, a.Message)
	}
	return fmt.Sprintf("%s at %s: %s", a.Code, a.NodeID, a.Message)
}

// stem is the file name without directory or extension.
func stem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
