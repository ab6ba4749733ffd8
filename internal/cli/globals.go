package cli

import (
	"os"

	"golang.org/x/term"

	"github.com/open-workflow-library/owlkit/internal/config"
)

// Globals holds global flags available to all commands
type Globals struct {
	Output    string `help:"Output format" default:"auto" enum:"json,plain,rich,auto" short:"o" env:"OWLKIT_OUTPUT"`
	Quiet     bool   `help:"Suppress progress output" short:"q" env:"OWLKIT_QUIET"`
	NoInput   bool   `help:"Disable interactive prompts (fail instead)" env:"OWLKIT_NO_INPUT"`
	ConfigDir string `help:"Credential store directory (default: per-user data dir)" env:"OWLKIT_CONFIG_DIR" type:"path"`
}

// ResolvedOutput returns the effective output mode: the flag when set,
// then the configured default, then TTY detection ("auto" renders rich
// on a terminal and plain everywhere else).
func (g *Globals) ResolvedOutput(cfg *config.Config) string {
	if g.Output != "auto" {
		return g.Output
	}
	if cfg != nil && cfg.DefaultOutput != "" && cfg.DefaultOutput != "auto" {
		return cfg.DefaultOutput
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "rich"
	}

	return "plain"
}

// StoreDir returns the credential store directory, honoring the
// --config-dir override.
func (g *Globals) StoreDir() string {
	if g.ConfigDir != "" {
		return g.ConfigDir
	}
	return config.DataDir()
}
