package cwl

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/open-workflow-library/owlkit/internal/output"
	"github.com/open-workflow-library/owlkit/internal/run"
)

const defaultOutputDir = "./output"

// Options control how cwltool is invoked.
type Options struct {
	// EnablePull lets cwltool pull missing docker images.
	EnablePull bool
	// StrictLimits enforces workflow memory and CPU limits.
	StrictLimits bool
}

// Runner wraps cwltool execution. Workflow inputs are serialized to a
// JSON job order in a temp directory; cwltool's log stream goes to the
// terminal while the result object on stdout is captured and parsed.
type Runner struct {
	runner run.Runner
	out    output.Formatter
	opts   Options
}

// NewRunner returns a Runner invoking cwltool through the given exec
// layer.
func NewRunner(runner run.Runner, out output.Formatter, opts Options) *Runner {
	return &Runner{runner: runner, out: out, opts: opts}
}

// Result is what a workflow run produced. Outputs holds the cwltool
// output object when stdout parsed as JSON, otherwise Stdout carries
// the raw text.
type Result struct {
	Outputs map[string]any `json:"outputs,omitempty"`
	Stdout  string         `json:"stdout,omitempty"`
}

// FileInput wraps a path as a CWL File object.
func FileInput(path string) map[string]any {
	return map[string]any{"class": "File", "path": path}
}

// DirectoryInput wraps a path as a CWL Directory object.
func DirectoryInput(path string) map[string]any {
	return map[string]any{"class": "Directory", "path": path}
}

// InputsFromFlags assembles the standard OWL workflow job order from
// the run command's flags. Empty paths and zero counts are omitted.
func InputsFromFlags(metadataFile, filesDirectory, tokenFile string, threadCount, retryCount int) map[string]any {
	inputs := make(map[string]any)
	if metadataFile != "" {
		inputs["metadata_file"] = FileInput(metadataFile)
	}
	if filesDirectory != "" {
		inputs["files_directory"] = DirectoryInput(filesDirectory)
	}
	if tokenFile != "" {
		inputs["token_file"] = FileInput(tokenFile)
	}
	if threadCount > 0 {
		inputs["thread_count"] = threadCount
	}
	if retryCount > 0 {
		inputs["retry_count"] = retryCount
	}
	return inputs
}

// Available reports whether cwltool is on PATH.
func (r *Runner) Available() bool {
	_, err := r.runner.LookPath("cwltool")
	return err == nil
}

// Run executes a workflow with the given inputs and returns the parsed
// result. An empty outputDir defaults to ./output; the directory is
// created if missing.
func (r *Runner) Run(ctx context.Context, workflowPath string, inputs map[string]any, outputDir string) (*Result, error) {
	if _, err := os.Stat(workflowPath); err != nil {
		return nil, fmt.Errorf("workflow not found: %s", workflowPath)
	}

	tmpDir, err := os.MkdirTemp("", "owlkit-cwl-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inputsFile, err := writeInputsFile(tmpDir, inputs)
	if err != nil {
		return nil, err
	}

	return r.invoke(ctx, workflowPath, inputsFile, outputDir)
}

// RunJobFile executes a workflow with a caller-supplied job file. The
// file is parsed up front so a malformed job order fails with a
// line-numbered error instead of a cwltool stack trace.
func (r *Runner) RunJobFile(ctx context.Context, workflowPath, jobFile, outputDir string) (*Result, error) {
	if _, err := os.Stat(workflowPath); err != nil {
		return nil, fmt.Errorf("workflow not found: %s", workflowPath)
	}
	if err := preflightJobFile(jobFile); err != nil {
		return nil, err
	}

	r.out.PrintInfo(fmt.Sprintf("Job file: %s", jobFile))
	return r.invoke(ctx, workflowPath, jobFile, outputDir)
}

// Validate checks a workflow with cwltool --validate. cwltool spreads
// validation errors across both streams depending on version, so the
// combined output is folded into the error.
func (r *Runner) Validate(ctx context.Context, workflowPath string) error {
	if _, err := os.Stat(workflowPath); err != nil {
		return fmt.Errorf("workflow not found: %s", workflowPath)
	}

	out, err := r.runner.Combined(ctx, "", "cwltool", "--validate", workflowPath)
	if err != nil {
		return fmt.Errorf("%s is invalid:\n%s", workflowPath, strings.TrimSpace(string(out)))
	}
	return nil
}

func (r *Runner) invoke(ctx context.Context, workflowPath, jobOrder, outputDir string) (*Result, error) {
	if outputDir == "" {
		outputDir = defaultOutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	args := r.buildCommand(workflowPath, jobOrder, outputDir)

	r.out.PrintInfo(fmt.Sprintf("Running CWL workflow: %s", workflowPath))
	r.out.PrintInfo(fmt.Sprintf("Command: cwltool %s", strings.Join(args, " ")))

	stdout, err := r.runner.Output(ctx, "", nil, "cwltool", args...)
	if err != nil {
		return nil, fmt.Errorf("workflow failed: %w", err)
	}

	r.out.PrintSuccess("Workflow executed successfully")
	return parseResult(stdout), nil
}

func (r *Runner) buildCommand(workflowPath, jobOrder, outputDir string) []string {
	var args []string
	if r.opts.EnablePull {
		args = append(args, "--enable-pull")
	}
	if r.opts.StrictLimits {
		args = append(args, "--strict-memory-limit", "--strict-cpu-limit")
	}
	args = append(args, "--outdir", outputDir, workflowPath, jobOrder)
	return args
}

// writeInputsFile serializes inputs as a JSON job order readable by any
// CWL runner. A nil map writes an empty object.
func writeInputsFile(dir string, inputs map[string]any) (string, error) {
	if inputs == nil {
		inputs = map[string]any{}
	}
	data, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode inputs: %w", err)
	}

	path := filepath.Join(dir, "inputs.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write inputs file: %w", err)
	}
	return path, nil
}

// preflightJobFile parses a YAML or JSON job order to catch syntax
// errors before cwltool sees the file.
func preflightJobFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read job file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("job file %s: %w", path, err)
	}
	return nil
}

func parseResult(stdout []byte) *Result {
	result := &Result{Stdout: string(stdout)}
	var outputs map[string]any
	if err := json.Unmarshal(stdout, &outputs); err == nil {
		result.Outputs = outputs
	}
	return result
}

// ListOutputs walks outputDir and returns every file under it, sorted.
// A missing directory yields an empty list.
func ListOutputs(outputDir string) ([]string, error) {
	var outputs []string
	err := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			outputs = append(outputs, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	sort.Strings(outputs)
	return outputs, nil
}
