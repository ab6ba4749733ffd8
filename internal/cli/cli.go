package cli

import (
	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/open-workflow-library/owlkit/internal/config"
	"github.com/open-workflow-library/owlkit/internal/output"
)

// FormatterProvider wraps the formatter interface for Kong binding
type FormatterProvider struct {
	Formatter output.Formatter
}

// CLI is the root command structure
type CLI struct {
	Globals

	Docker  DockerCmd  `cmd:"" help:"Docker/GHCR management commands"`
	Cwl     CwlCmd     `cmd:"" help:"CWL workflow commands"`
	Sbpack  SbpackCmd  `cmd:"" help:"Seven Bridges packing commands"`
	Creds   CredsCmd   `cmd:"" help:"Manage stored credentials"`
	Config  ConfigCmd  `cmd:"" help:"Configuration commands"`
	Env     EnvCmd     `cmd:"" help:"Check the GitHub/Codespaces environment"`
	Version VersionCmd `cmd:"" help:"Show version information"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
}

// BeforeApply hook runs before any command execution
// It loads config, creates the formatter, and binds dependencies
func (c *CLI) BeforeApply(ctx *kong.Context) error {
	// Load config from XDG path (returns defaults if missing)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	formatter := output.New(c.ResolvedOutput(cfg))
	if c.Quiet {
		formatter = quietFormatter{formatter}
	}
	fp := &FormatterProvider{Formatter: formatter}

	services := NewServiceProvider(cfg, &c.Globals, formatter)

	// Bind dependencies to kong context
	ctx.Bind(cfg)
	ctx.Bind(fp)
	ctx.Bind(&c.Globals)
	ctx.Bind(services)

	return nil
}

// quietFormatter drops progress prose, keeping results, warnings and
// errors.
type quietFormatter struct {
	output.Formatter
}

func (quietFormatter) PrintInfo(msg string) {}

// VersionCmd shows version information
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context) error {
	version := ctx.Model.Vars()["version"]
	println("owlkit version " + version)
	return nil
}
