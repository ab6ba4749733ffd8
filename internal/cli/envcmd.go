package cli

import (
	"os"

	"github.com/open-workflow-library/owlkit/internal/output"
	"github.com/open-workflow-library/owlkit/internal/registry"
)

// EnvCmd reports the GitHub/Codespaces environment: which variables are
// set (tokens masked) and which username would be auto-detected.
type EnvCmd struct{}

type envRow struct {
	Variable string `json:"variable"`
	Value    string `json:"value"`
}

func (cmd *EnvCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	rows := make([]envRow, 0)
	for _, v := range registry.CheckEnv() {
		value := v.Value
		if !v.Set {
			value = "(not set)"
		}
		rows = append(rows, envRow{Variable: v.Name, Value: value})
	}

	cols := []output.Column{
		{Name: "Variable", Key: "Variable"},
		{Name: "Value", Key: "Value"},
	}
	if err := fp.Formatter.PrintList(rows, cols); err != nil {
		return err
	}

	if registry.InCodespaces() {
		fp.Formatter.PrintInfo("Running inside GitHub Codespaces")
	}
	fp.Formatter.PrintInfo("Detected username: " + detectedUsername(sp))
	return nil
}

// detectedUsername mirrors the registry manager's environment cascade
// without ever prompting.
func detectedUsername(sp *ServiceProvider) string {
	if sp.cfg.Username != "" {
		return sp.cfg.Username
	}
	for _, key := range []string{"GITHUB_USER", "GITHUB_ACTOR", "GITHUB_REPOSITORY_OWNER"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "(none)"
}
