package cli

import (
	"context"
	"fmt"

	"github.com/open-workflow-library/owlkit/internal/cwl"
	"github.com/open-workflow-library/owlkit/internal/output"
)

// CwlCmd holds CWL workflow subcommands
type CwlCmd struct {
	Run      CwlRunCmd      `cmd:"" help:"Run a CWL workflow"`
	RunJob   CwlRunJobCmd   `cmd:"" name:"run-job" help:"Run a CWL workflow with a job file"`
	Validate CwlValidateCmd `cmd:"" help:"Validate a CWL workflow"`
}

// CwlRunCmd implements cwl run
type CwlRunCmd struct {
	WorkflowPath   string `arg:"" predictor:"file" help:"Path to the CWL workflow"`
	MetadataFile   string `short:"m" predictor:"file" help:"Metadata file path"`
	FilesDirectory string `short:"f" predictor:"dir" help:"Files directory path"`
	TokenFile      string `short:"t" predictor:"file" help:"Token file path"`
	ThreadCount    int    `short:"j" default:"4" help:"Number of threads"`
	RetryCount     int    `short:"r" default:"3" help:"Number of retries"`
	OutputDir      string `short:"o" default:"./output" predictor:"dir" help:"Output directory"`
	NoPull         bool   `help:"Disable Docker image pulling"`
	StrictLimits   bool   `help:"Enforce strict resource limits"`
}

func (cmd *CwlRunCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	runner := sp.CWL(cwl.Options{
		EnablePull:   !cmd.NoPull,
		StrictLimits: cmd.StrictLimits,
	})

	inputs := cwl.InputsFromFlags(cmd.MetadataFile, cmd.FilesDirectory, cmd.TokenFile, cmd.ThreadCount, cmd.RetryCount)
	if _, err := runner.Run(context.Background(), cmd.WorkflowPath, inputs, cmd.OutputDir); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Workflow failed: %v", err),
		}
	}

	return showOutputs(fp, cmd.OutputDir)
}

// CwlRunJobCmd implements cwl run-job
type CwlRunJobCmd struct {
	WorkflowPath string `arg:"" predictor:"file" help:"Path to the CWL workflow"`
	JobFile      string `arg:"" predictor:"file" help:"Job order file (YAML or JSON)"`
	OutputDir    string `short:"o" default:"./output" predictor:"dir" help:"Output directory"`
	NoPull       bool   `help:"Disable Docker image pulling"`
	StrictLimits bool   `help:"Enforce strict resource limits"`
}

func (cmd *CwlRunJobCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	runner := sp.CWL(cwl.Options{
		EnablePull:   !cmd.NoPull,
		StrictLimits: cmd.StrictLimits,
	})

	if _, err := runner.RunJobFile(context.Background(), cmd.WorkflowPath, cmd.JobFile, cmd.OutputDir); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Workflow failed: %v", err),
		}
	}

	return showOutputs(fp, cmd.OutputDir)
}

// CwlValidateCmd implements cwl validate
type CwlValidateCmd struct {
	WorkflowPath string `arg:"" predictor:"file" help:"Path to the CWL workflow"`
}

func (cmd *CwlValidateCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	runner := sp.CWL(cwl.Options{})
	if err := runner.Validate(context.Background(), cmd.WorkflowPath); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitValidation,
			Message:  fmt.Sprintf("Workflow validation failed: %v", err),
		}
	}
	fp.Formatter.PrintSuccess("Workflow is valid")
	return nil
}

// showOutputs lists the files a workflow run left in its output
// directory.
func showOutputs(fp *FormatterProvider, outputDir string) error {
	outputs, err := cwl.ListOutputs(outputDir)
	if err != nil || len(outputs) == 0 {
		return nil
	}
	fp.Formatter.PrintInfo(fmt.Sprintf("Output files in %s:", outputDir))
	for _, path := range outputs {
		fp.Formatter.PrintInfo("  " + path)
	}
	return nil
}
