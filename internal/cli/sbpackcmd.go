package cli

import (
	"context"
	"fmt"

	"github.com/open-workflow-library/owlkit/internal/output"
)

// SbpackCmd holds Seven Bridges subcommands
type SbpackCmd struct {
	Login     SbpackLoginCmd     `cmd:"" help:"Login to a Seven Bridges platform and store credentials"`
	Pack      SbpackPackCmd      `cmd:"" help:"Pack a CWL workflow for Seven Bridges"`
	Deploy    SbpackDeployCmd    `cmd:"" help:"Deploy a packed workflow to a Seven Bridges platform"`
	ListApps  SbpackListAppsCmd  `cmd:"" name:"list-apps" help:"List apps in a Seven Bridges project"`
	Validate  SbpackValidateCmd  `cmd:"" help:"Validate a packed CWL workflow"`
	Install   SbpackInstallCmd   `cmd:"" help:"Install sbpack using pip"`
	Configure SbpackConfigureCmd `cmd:"" help:"Configure authentication tokens for Seven Bridges platforms"`
	Logout    SbpackLogoutCmd    `cmd:"" help:"Remove stored credentials for a Seven Bridges platform"`
}

// SbpackLoginCmd implements sbpack login
type SbpackLoginCmd struct {
	Platform string `short:"p" help:"Seven Bridges platform (cgc, sbg-us, sbg-eu, biodata-catalyst, cavatica)"`
	Token    string `short:"t" help:"Authentication token"`
	ForceNew bool   `name:"force-new" help:"Force new token input even if one is stored"`
}

func (cmd *SbpackLoginCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	mgr, err := sp.Sbpack()
	if err != nil {
		return err
	}
	platform := sp.Platform(cmd.Platform)
	if err := mgr.Login(context.Background(), platform, cmd.Token, cmd.ForceNew); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitAuth,
			Message:  fmt.Sprintf("Login failed: %v", err),
			Hint:     fmt.Sprintf("Generate a developer token in the %s web interface under Developer > Authentication token", platform),
		}
	}
	return nil
}

// SbpackPackCmd implements sbpack pack
type SbpackPackCmd struct {
	CwlFile  string `arg:"" predictor:"file" help:"CWL workflow to pack"`
	Output   string `short:"o" help:"Output filename (defaults to <stem>-packed.cwl)"`
	Validate bool   `help:"Validate the packed workflow"`
}

func (cmd *SbpackPackCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	mgr, err := sp.Sbpack()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if !mgr.Available(ctx) {
		fp.Formatter.PrintWarning("sbpack not found. Attempting to install...")
		if err := mgr.Install(ctx); err != nil {
			return &output.CLIError{
				ExitCode: output.ExitUnavailable,
				Message:  fmt.Sprintf("Failed to install sbpack: %v", err),
				Hint:     "Install manually with: pip install sbpack",
			}
		}
	}

	packed, err := mgr.Pack(ctx, cmd.CwlFile, cmd.Output)
	if err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Packing failed: %v", err),
		}
	}

	if cmd.Validate {
		if err := mgr.ValidatePacked(packed); err != nil {
			return &output.CLIError{
				ExitCode: output.ExitValidation,
				Message:  err.Error(),
			}
		}
	}
	return nil
}

// SbpackDeployCmd implements sbpack deploy
type SbpackDeployCmd struct {
	PackedFile string `arg:"" predictor:"file" help:"Packed workflow file"`
	ProjectID  string `arg:"" help:"Target project (owner/project)"`
	AppName    string `arg:"" help:"App name to deploy as"`
	Token      string `short:"t" help:"Authentication token"`
	Platform   string `short:"p" help:"Seven Bridges platform"`
}

func (cmd *SbpackDeployCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	mgr, err := sp.Sbpack()
	if err != nil {
		return err
	}
	platform := sp.Platform(cmd.Platform)
	if err := mgr.Deploy(context.Background(), cmd.PackedFile, cmd.ProjectID, cmd.AppName, platform, cmd.Token); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Deployment failed: %v", err),
		}
	}
	return nil
}

// SbpackListAppsCmd implements sbpack list-apps
type SbpackListAppsCmd struct {
	ProjectID string `arg:"" optional:"" help:"Project (defaults to configured default_project)"`
	Token     string `short:"t" help:"Authentication token"`
	Platform  string `short:"p" help:"Seven Bridges platform"`
}

func (cmd *SbpackListAppsCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	project := sp.Project(cmd.ProjectID)
	if project == "" {
		return &output.CLIError{
			ExitCode: output.ExitUsage,
			Message:  "No project specified",
			Hint:     "Pass a project ID or set one with 'owlkit config set default_project <owner/project>'",
		}
	}

	mgr, err := sp.Sbpack()
	if err != nil {
		return err
	}
	apps, err := mgr.ListApps(context.Background(), project, sp.Platform(cmd.Platform), cmd.Token)
	if err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Failed to list apps: %v", err),
		}
	}
	if len(apps) == 0 {
		fp.Formatter.PrintInfo("No apps found")
		return nil
	}

	cols := []output.Column{
		{Name: "ID", Key: "ID"},
		{Name: "Name", Key: "Name"},
		{Name: "Revision", Key: "Revision"},
	}
	return fp.Formatter.PrintList(apps, cols)
}

// SbpackValidateCmd implements sbpack validate
type SbpackValidateCmd struct {
	PackedFile string `arg:"" predictor:"file" help:"Packed workflow file"`
}

func (cmd *SbpackValidateCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	mgr, err := sp.Sbpack()
	if err != nil {
		return err
	}
	if err := mgr.ValidatePacked(cmd.PackedFile); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitValidation,
			Message:  err.Error(),
		}
	}
	return nil
}

// SbpackInstallCmd implements sbpack install
type SbpackInstallCmd struct{}

func (cmd *SbpackInstallCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	mgr, err := sp.Sbpack()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if mgr.Available(ctx) {
		fp.Formatter.PrintSuccess("sbpack is already installed")
		return nil
	}
	if err := mgr.Install(ctx); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Failed to install sbpack: %v", err),
			Hint:     "Install manually with: pip install sbpack",
		}
	}
	return nil
}

// SbpackConfigureCmd implements sbpack configure
type SbpackConfigureCmd struct{}

func (cmd *SbpackConfigureCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	mgr, err := sp.Sbpack()
	if err != nil {
		return err
	}
	return mgr.Configure(context.Background())
}

// SbpackLogoutCmd implements sbpack logout
type SbpackLogoutCmd struct {
	Platform string `short:"p" help:"Seven Bridges platform to logout from"`
}

func (cmd *SbpackLogoutCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	mgr, err := sp.Sbpack()
	if err != nil {
		return err
	}
	if err := mgr.Logout(sp.Platform(cmd.Platform)); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitGeneral,
			Message:  fmt.Sprintf("Logout failed: %v", err),
		}
	}
	return nil
}
