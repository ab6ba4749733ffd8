package sbpack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/open-workflow-library/owlkit/internal/output"
	"github.com/open-workflow-library/owlkit/internal/run"
)

// Credentials stored under a platform code use this identity, so one
// platform maps to exactly one token.
const identityAuthToken = "auth_token"

// packedSchema is the structural contract for sbpack output: either a
// single document with a top-level class, or a $graph bundle where
// every node carries one. cwlVersion is typed but optional; its absence
// is reported as a warning.
var packedSchema = jsonschema.MustCompileString("packed-workflow.json", `{
	"type": "object",
	"properties": {
		"cwlVersion": {"type": "string"},
		"class": {"type": "string"},
		"$graph": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["class"]
			}
		}
	},
	"anyOf": [
		{"required": ["class"]},
		{"required": ["$graph"]}
	]
}`)

// Credentials is the slice of the credential layer the manager needs.
type Credentials interface {
	Get(service, identity string) (string, bool)
	Set(service, identity, secret string) error
	Delete(service, identity string) error
	PromptAndStore(service, identity, promptText string) (string, error)
	PromptSecret(promptText string) (string, error)
	ConfirmDefaultNo(question string) (bool, error)
}

// App is one row of a project's app listing.
type App struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Revision int    `json:"revision"`
}

// Manager wraps the sbpack and sb CLIs for packing workflows and
// deploying them to Seven Bridges platforms.
type Manager struct {
	runner     run.Runner
	creds      Credentials
	out        output.Formatter
	profileDir string
	noInput    bool
}

// NewManager returns a Manager. An empty profileDir defaults to
// ~/.sevenbridges at first use.
func NewManager(creds Credentials, runner run.Runner, out output.Formatter, profileDir string, noInput bool) *Manager {
	return &Manager{
		runner:     runner,
		creds:      creds,
		out:        out,
		profileDir: profileDir,
		noInput:    noInput,
	}
}

// Available reports whether the sbpack CLI is installed and runnable.
func (m *Manager) Available(ctx context.Context) bool {
	_, err := m.runner.Output(ctx, "", nil, "sbpack", "--version")
	return err == nil
}

// Install installs sbpack with pip, streaming pip's output.
func (m *Manager) Install(ctx context.Context) error {
	m.out.PrintInfo("Installing sbpack...")
	if err := m.runner.Run(ctx, "", "pip", "install", "sbpack"); err != nil {
		return fmt.Errorf("failed to install sbpack: %w", err)
	}
	m.out.PrintSuccess("sbpack installed")
	return nil
}

// Pack runs sbpack on a CWL workflow, producing a single packed JSON
// document ready for upload. An empty outputFile defaults to
// <stem>-packed.cwl in the working directory. Returns the packed path.
func (m *Manager) Pack(ctx context.Context, cwlFile, outputFile string) (string, error) {
	if !m.Available(ctx) {
		return "", fmt.Errorf("sbpack is not available; install it with 'owlkit sbpack install'")
	}
	if _, err := os.Stat(cwlFile); err != nil {
		return "", fmt.Errorf("CWL file not found: %s", cwlFile)
	}

	if outputFile == "" {
		base := filepath.Base(cwlFile)
		outputFile = strings.TrimSuffix(base, filepath.Ext(base)) + "-packed.cwl"
	}

	m.out.PrintInfo(fmt.Sprintf("Packing workflow: %s", cwlFile))
	combined, err := m.runner.Combined(ctx, "", "sbpack", cwlFile, "--output", outputFile)
	if err != nil {
		return "", fmt.Errorf("sbpack failed: %w\n%s", err, strings.TrimSpace(string(combined)))
	}

	m.out.PrintSuccess(fmt.Sprintf("Successfully packed workflow to %s", outputFile))
	return outputFile, nil
}

// ValidatePacked checks that a packed workflow is structurally sound
// before it goes near a platform. A missing cwlVersion is only warned
// about since some packers omit it.
func (m *Manager) ValidatePacked(packedFile string) error {
	data, err := os.ReadFile(packedFile)
	if err != nil {
		return fmt.Errorf("packed file not found: %s", packedFile)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON in packed workflow: %w", err)
	}
	if err := packedSchema.Validate(doc); err != nil {
		return fmt.Errorf("packed workflow failed validation: %w", err)
	}

	obj, _ := doc.(map[string]any)
	class, _ := obj["class"].(string)
	if class == "" {
		class = "packed graph"
	}
	version, _ := obj["cwlVersion"].(string)
	if version == "" {
		m.out.PrintWarning("No cwlVersion found in packed workflow")
		version = "unknown"
	}

	m.out.PrintSuccess("Packed workflow validation passed")
	m.out.PrintInfo(fmt.Sprintf("  Class: %s", class))
	m.out.PrintInfo(fmt.Sprintf("  CWL version: %s", version))
	return nil
}

// Login verifies a token against a platform's API and persists it in
// both the credential store and the Seven Bridges profile file. The
// token comes from the parameter, the stored credential, or an
// interactive prompt; forceNew skips the stored one.
func (m *Manager) Login(ctx context.Context, platform, token string, forceNew bool) error {
	p, err := GetPlatform(platform)
	if err != nil {
		return err
	}

	if token == "" {
		token, err = m.resolveLoginToken(platform, forceNew)
		if err != nil {
			return err
		}
	}

	m.out.PrintInfo(fmt.Sprintf("Testing %s connection...", platform))
	if err := m.verifyToken(ctx, p, token); err != nil {
		return fmt.Errorf("%s authentication failed: %w", platform, err)
	}
	m.out.PrintSuccess(fmt.Sprintf("Successfully authenticated with %s", platform))

	if stored, ok := m.creds.Get(platform, identityAuthToken); !ok || stored != token {
		if err := m.creds.Set(platform, identityAuthToken, token); err != nil {
			return err
		}
		m.out.PrintInfo("Token stored securely for future use")
	}

	dir, err := m.resolveProfileDir()
	if err != nil {
		return err
	}
	return WriteProfile(dir, platform, p.Endpoint, token)
}

// Deploy uploads a packed workflow as <projectID>/<appName>. The packed
// file is validated locally first and the platform profile refreshed so
// sbpack sees a current token.
func (m *Manager) Deploy(ctx context.Context, packedFile, projectID, appName, platform, token string) error {
	p, err := GetPlatform(platform)
	if err != nil {
		return err
	}
	if _, err := os.Stat(packedFile); err != nil {
		return fmt.Errorf("packed file not found: %s", packedFile)
	}
	if err := m.ValidatePacked(packedFile); err != nil {
		return fmt.Errorf("aborting deployment: %w", err)
	}

	token, err = m.resolveToken(platform, token)
	if err != nil {
		return err
	}

	dir, err := m.resolveProfileDir()
	if err != nil {
		return err
	}
	if err := WriteProfile(dir, platform, p.Endpoint, token); err != nil {
		return err
	}

	appID := fmt.Sprintf("%s/%s", projectID, appName)
	m.out.PrintInfo(fmt.Sprintf("Deploying %s to %s project %s...", appName, platform, projectID))
	combined, err := m.runner.Combined(ctx, "", "sbpack", platform, appID, packedFile)
	if err != nil {
		return fmt.Errorf("deployment failed: %w\n%s", err, strings.TrimSpace(string(combined)))
	}

	m.out.PrintSuccess(fmt.Sprintf("Successfully deployed %s", appName))
	m.out.PrintInfo(fmt.Sprintf("App ID: %s", appID))
	return nil
}

// ListApps returns the apps visible in a project.
func (m *Manager) ListApps(ctx context.Context, projectID, platform, token string) ([]App, error) {
	p, err := GetPlatform(platform)
	if err != nil {
		return nil, err
	}
	token, err = m.resolveToken(platform, token)
	if err != nil {
		return nil, err
	}

	env := []string{
		"SB_AUTH_TOKEN=" + token,
		"SB_API_ENDPOINT=" + p.Endpoint,
	}
	stdout, err := m.runner.Output(ctx, "", env, "sb", "apps", "list", "--project", projectID, "--format", "json")
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	var apps []App
	if err := json.Unmarshal(stdout, &apps); err != nil {
		return nil, fmt.Errorf("failed to parse app list: %w", err)
	}
	return apps, nil
}

// Configure walks every known platform, shows which ones already have a
// stored token, and offers to log in to each.
func (m *Manager) Configure(ctx context.Context) error {
	if m.noInput {
		return fmt.Errorf("configure is interactive; run it without --no-input")
	}

	for _, code := range ValidPlatforms() {
		p := Platforms[code]
		if _, ok := m.creds.Get(code, identityAuthToken); ok {
			m.out.PrintInfo(fmt.Sprintf("%s (%s): token stored", code, p.Name))
		} else {
			m.out.PrintInfo(fmt.Sprintf("%s (%s): no token", code, p.Name))
		}

		configure, err := m.creds.ConfirmDefaultNo(fmt.Sprintf("Configure %s now?", code))
		if err != nil {
			return err
		}
		if !configure {
			continue
		}
		if err := m.Login(ctx, code, "", false); err != nil {
			m.out.PrintError(err)
		}
	}
	return nil
}

// Logout removes a platform's stored credential and its profile
// section, so the external tools stop seeing a revoked token.
func (m *Manager) Logout(platform string) error {
	if _, err := GetPlatform(platform); err != nil {
		return err
	}
	if err := m.creds.Delete(platform, identityAuthToken); err != nil {
		return err
	}

	dir, err := m.resolveProfileDir()
	if err != nil {
		return err
	}
	if err := RemoveProfile(dir, platform); err != nil {
		return err
	}

	m.out.PrintSuccess(fmt.Sprintf("%s credentials removed", platform))
	return nil
}

func (m *Manager) resolveProfileDir() (string, error) {
	if m.profileDir != "" {
		return m.profileDir, nil
	}
	return DefaultProfileDir()
}

// resolveLoginToken finds a token for an interactive login: the stored
// credential unless forceNew, then a no-echo prompt.
func (m *Manager) resolveLoginToken(platform string, forceNew bool) (string, error) {
	if m.noInput {
		if !forceNew {
			if stored, ok := m.creds.Get(platform, identityAuthToken); ok {
				return stored, nil
			}
		}
		return "", fmt.Errorf("no stored token for %s; pass --token or login interactively", platform)
	}

	prompt := fmt.Sprintf("Enter your %s authentication token: ", platform)
	if forceNew {
		return m.creds.PromptSecret(prompt)
	}
	return m.creds.PromptAndStore(platform, identityAuthToken, prompt)
}

// resolveToken finds a token for non-interactive operations: parameter,
// stored credential, then the SB_AUTH_TOKEN environment variable.
func (m *Manager) resolveToken(platform, token string) (string, error) {
	if token != "" {
		return token, nil
	}
	if stored, ok := m.creds.Get(platform, identityAuthToken); ok {
		return stored, nil
	}
	if env := os.Getenv("SB_AUTH_TOKEN"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("no %s token found; login first with 'owlkit sbpack login --platform %s'", platform, platform)
}

// verifyToken proves a token works by listing projects through the sb
// CLI. Transient API failures are retried; a missing binary is not.
func (m *Manager) verifyToken(ctx context.Context, p Platform, token string) error {
	env := []string{
		"SB_AUTH_TOKEN=" + token,
		"SB_API_ENDPOINT=" + p.Endpoint,
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	return backoff.Retry(func() error {
		_, err := m.runner.Output(ctx, "", env, "sb", "projects", "list", "--format", "json")
		if err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return backoff.Permanent(fmt.Errorf("sb CLI not available: %w", err))
			}
			return err
		}
		return nil
	}, policy)
}
