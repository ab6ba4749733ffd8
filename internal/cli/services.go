package cli

import (
	"fmt"
	"sync"

	"github.com/open-workflow-library/owlkit/internal/config"
	"github.com/open-workflow-library/owlkit/internal/cwl"
	"github.com/open-workflow-library/owlkit/internal/output"
	"github.com/open-workflow-library/owlkit/internal/registry"
	"github.com/open-workflow-library/owlkit/internal/run"
	"github.com/open-workflow-library/owlkit/internal/sbpack"
	"github.com/open-workflow-library/owlkit/internal/secrets"
)

// ServiceProvider lazily creates and caches the tool managers. The
// credential store is opened at most once per invocation, and only for
// commands that actually touch credentials.
type ServiceProvider struct {
	cfg     *config.Config
	globals *Globals
	out     output.Formatter
	runner  run.Runner

	credsOnce sync.Once
	prompter  *secrets.Prompter
	credsErr  error
}

// NewServiceProvider creates a ServiceProvider with the given config.
func NewServiceProvider(cfg *config.Config, globals *Globals, out output.Formatter) *ServiceProvider {
	return &ServiceProvider{
		cfg:     cfg,
		globals: globals,
		out:     out,
		runner:  run.ExecRunner{},
	}
}

// Credentials returns the credential prompter, opening the store on
// first call.
func (sp *ServiceProvider) Credentials() (*secrets.Prompter, error) {
	sp.credsOnce.Do(func() {
		store, err := secrets.Open(sp.globals.StoreDir())
		if err != nil {
			sp.credsErr = &output.CLIError{
				ExitCode: output.ExitGeneral,
				Message:  fmt.Sprintf("Failed to initialize credential store: %v", err),
			}
			return
		}
		sp.prompter = secrets.NewPrompter(store)
	})
	return sp.prompter, sp.credsErr
}

// Registry returns a GHCR manager. An empty username falls back to the
// configured one, then to environment detection inside the manager.
func (sp *ServiceProvider) Registry(username string) (*registry.Manager, error) {
	creds, err := sp.Credentials()
	if err != nil {
		return nil, err
	}
	if username == "" {
		username = sp.cfg.Username
	}
	return registry.NewManager(username, creds, sp.runner, sp.out, sp.globals.NoInput), nil
}

// CWL returns a workflow runner with the given options.
func (sp *ServiceProvider) CWL(opts cwl.Options) *cwl.Runner {
	return cwl.NewRunner(sp.runner, sp.out, opts)
}

// Sbpack returns a Seven Bridges manager.
func (sp *ServiceProvider) Sbpack() (*sbpack.Manager, error) {
	creds, err := sp.Credentials()
	if err != nil {
		return nil, err
	}
	return sbpack.NewManager(creds, sp.runner, sp.out, "", sp.globals.NoInput), nil
}

// Platform resolves the effective Seven Bridges platform: the flag,
// then the configured default, then cgc.
func (sp *ServiceProvider) Platform(flag string) string {
	if flag != "" {
		return flag
	}
	if sp.cfg.DefaultPlatform != "" {
		return sp.cfg.DefaultPlatform
	}
	return "cgc"
}

// Project resolves the effective project ID: the argument, then the
// configured default.
func (sp *ServiceProvider) Project(arg string) string {
	if arg != "" {
		return arg
	}
	return sp.cfg.DefaultProject
}
