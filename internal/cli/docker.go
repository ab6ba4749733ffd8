package cli

import (
	"context"
	"fmt"

	"github.com/open-workflow-library/owlkit/internal/output"
)

// DockerCmd holds Docker/GHCR subcommands
type DockerCmd struct {
	Login  DockerLoginCmd  `cmd:"" help:"Login to GitHub Container Registry"`
	Logout DockerLogoutCmd `cmd:"" help:"Logout from GitHub Container Registry"`
	Build  DockerBuildCmd  `cmd:"" help:"Build a Docker image for GHCR"`
	Push   DockerPushCmd   `cmd:"" help:"Push a Docker image to GHCR"`
	Pull   DockerPullCmd   `cmd:"" help:"Pull a Docker image from GHCR"`
	Tag    DockerTagCmd    `cmd:"" help:"Tag a local image for GHCR"`
	Images DockerImagesCmd `cmd:"" help:"List local GHCR images"`
}

// DockerLoginCmd implements docker login
type DockerLoginCmd struct {
	Username string `short:"u" help:"GitHub username or organization (auto-detected in Codespaces)"`
	Token    string `short:"t" help:"GitHub token"`
	ForcePat bool   `name:"force-pat" help:"Force PAT input even when a token is stored or in the environment"`
}

func (cmd *DockerLoginCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ghcr, err := sp.Registry(cmd.Username)
	if err != nil {
		return err
	}

	token := cmd.Token
	if cmd.ForcePat && token == "" {
		creds, err := sp.Credentials()
		if err != nil {
			return err
		}
		token, err = creds.PromptSecret("Enter GitHub Personal Access Token: ")
		if err != nil {
			return err
		}
	}

	if err := ghcr.Login(context.Background(), token); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitAuth,
			Message:  fmt.Sprintf("Authentication failed: %v", err),
			Hint:     "Create a PAT with 'write:packages' scope at https://github.com/settings/tokens",
		}
	}
	return nil
}

// DockerLogoutCmd implements docker logout
type DockerLogoutCmd struct{}

func (cmd *DockerLogoutCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ghcr, err := sp.Registry("")
	if err != nil {
		return err
	}
	if err := ghcr.Logout(context.Background()); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Logout failed: %v", err),
		}
	}
	return nil
}

// DockerBuildCmd implements docker build
type DockerBuildCmd struct {
	Dockerfile string            `short:"f" default:"Dockerfile" predictor:"file" help:"Path to Dockerfile"`
	Tag        string            `short:"t" required:"" help:"Image tag (e.g., myapp:latest)"`
	Context    string            `short:"c" default:"." predictor:"dir" help:"Build context directory"`
	Username   string            `short:"u" help:"GitHub username or organization"`
	BuildArg   map[string]string `name:"build-arg" mapsep:"," help:"Build arguments (KEY=VALUE)"`
	Push       bool              `help:"Push after building"`
}

func (cmd *DockerBuildCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ghcr, err := sp.Registry(cmd.Username)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if _, err := ghcr.Build(ctx, cmd.Dockerfile, cmd.Tag, cmd.Context, cmd.BuildArg); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Build failed: %v", err),
		}
	}

	if cmd.Push {
		if err := ghcr.Push(ctx, cmd.Tag); err != nil {
			return &output.CLIError{
				ExitCode: output.ExitExternal,
				Message:  fmt.Sprintf("Push failed: %v", err),
			}
		}
	}
	return nil
}

// DockerPushCmd implements docker push
type DockerPushCmd struct {
	Tag      string `arg:"" help:"Image tag to push"`
	Username string `short:"u" help:"GitHub username or organization"`
}

func (cmd *DockerPushCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ghcr, err := sp.Registry(cmd.Username)
	if err != nil {
		return err
	}
	if err := ghcr.Push(context.Background(), cmd.Tag); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Push failed: %v", err),
		}
	}
	return nil
}

// DockerPullCmd implements docker pull
type DockerPullCmd struct {
	Image string `arg:"" help:"Image name (bare, owner/name, or full reference)"`
	Tag   string `short:"t" default:"latest" help:"Image tag"`
}

func (cmd *DockerPullCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ghcr, err := sp.Registry("")
	if err != nil {
		return err
	}
	if _, err := ghcr.Pull(context.Background(), cmd.Image, cmd.Tag); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Pull failed: %v", err),
		}
	}
	return nil
}

// DockerTagCmd implements docker tag
type DockerTagCmd struct {
	LocalTag  string `arg:"" help:"Local image tag"`
	RemoteTag string `short:"r" help:"Remote tag (defaults to local tag)"`
}

func (cmd *DockerTagCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ghcr, err := sp.Registry("")
	if err != nil {
		return err
	}
	if _, err := ghcr.Tag(context.Background(), cmd.LocalTag, cmd.RemoteTag); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Tagging failed: %v", err),
		}
	}
	return nil
}

// DockerImagesCmd implements docker images
type DockerImagesCmd struct {
	Namespace string `help:"Registry namespace to list (defaults to ghcr.io/<username>)"`
}

func (cmd *DockerImagesCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	ghcr, err := sp.Registry("")
	if err != nil {
		return err
	}

	images, err := ghcr.Images(context.Background(), cmd.Namespace)
	if err != nil {
		return &output.CLIError{
			ExitCode: output.ExitExternal,
			Message:  fmt.Sprintf("Failed to list images: %v", err),
		}
	}
	if len(images) == 0 {
		fp.Formatter.PrintInfo("No GHCR images found")
		return nil
	}

	cols := []output.Column{
		{Name: "Repository", Key: "Repository"},
		{Name: "Tag", Key: "Tag"},
		{Name: "Image ID", Key: "ID"},
		{Name: "Created", Key: "Created"},
		{Name: "Size", Key: "Size"},
	}
	return fp.Formatter.PrintList(images, cols)
}
