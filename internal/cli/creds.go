package cli

import (
	"fmt"
	"sort"

	"github.com/open-workflow-library/owlkit/internal/output"
)

// CredsCmd holds credential store subcommands
type CredsCmd struct {
	List   CredsListCmd   `cmd:"" help:"List stored credentials (never shows values)"`
	Set    CredsSetCmd    `cmd:"" help:"Store a credential"`
	Delete CredsDeleteCmd `cmd:"" help:"Delete a stored credential"`
}

// credentialRow is one (service, identity) pair for listing. Secret
// values never appear here.
type credentialRow struct {
	Service  string `json:"service"`
	Identity string `json:"identity"`
}

// credentialRows flattens the store's service grouping into sorted
// display rows.
func credentialRows(grouped map[string][]string) []credentialRow {
	services := make([]string, 0, len(grouped))
	for service := range grouped {
		services = append(services, service)
	}
	sort.Strings(services)

	var rows []credentialRow
	for _, service := range services {
		for _, identity := range grouped[service] {
			rows = append(rows, credentialRow{Service: service, Identity: identity})
		}
	}
	return rows
}

// CredsListCmd implements creds list
type CredsListCmd struct{}

func (cmd *CredsListCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	creds, err := sp.Credentials()
	if err != nil {
		return err
	}

	rows := credentialRows(creds.Store().List())
	if len(rows) == 0 {
		fp.Formatter.PrintInfo("No stored credentials")
		return nil
	}

	cols := []output.Column{
		{Name: "Service", Key: "Service"},
		{Name: "Identity", Key: "Identity"},
	}
	if err := fp.Formatter.PrintList(rows, cols); err != nil {
		return err
	}
	fp.Formatter.PrintInfo(fmt.Sprintf("Backend: %s", creds.Store().BackendName()))
	return nil
}

// CredsSetCmd implements creds set
type CredsSetCmd struct {
	Service  string `arg:"" help:"Service name (e.g., ghcr, cgc)"`
	Identity string `arg:"" help:"Identity the credential belongs to (e.g., username, auth_token)"`
	Value    string `help:"Credential value (prompted without echo when omitted)"`
}

func (cmd *CredsSetCmd) Run(sp *ServiceProvider, fp *FormatterProvider, globals *Globals) error {
	creds, err := sp.Credentials()
	if err != nil {
		return err
	}

	value := cmd.Value
	if value == "" {
		if globals.NoInput {
			return &output.CLIError{
				ExitCode: output.ExitUsage,
				Message:  "No credential value given",
				Hint:     "Pass --value when running with --no-input",
			}
		}
		value, err = creds.PromptSecret(fmt.Sprintf("Enter %s credential for %s: ", cmd.Service, cmd.Identity))
		if err != nil {
			return err
		}
	}
	if value == "" {
		return &output.CLIError{
			ExitCode: output.ExitUsage,
			Message:  "Credential value must not be empty",
		}
	}

	if err := creds.Set(cmd.Service, cmd.Identity, value); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitGeneral,
			Message:  fmt.Sprintf("Failed to store credential: %v", err),
		}
	}
	fp.Formatter.PrintSuccess(fmt.Sprintf("Stored %s:%s in %s", cmd.Service, cmd.Identity, creds.Store().BackendName()))
	return nil
}

// CredsDeleteCmd implements creds delete
type CredsDeleteCmd struct {
	Service  string `arg:"" help:"Service name"`
	Identity string `arg:"" help:"Identity the credential belongs to"`
}

func (cmd *CredsDeleteCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	creds, err := sp.Credentials()
	if err != nil {
		return err
	}
	if err := creds.Delete(cmd.Service, cmd.Identity); err != nil {
		return &output.CLIError{
			ExitCode: output.ExitGeneral,
			Message:  fmt.Sprintf("Failed to delete credential: %v", err),
		}
	}
	fp.Formatter.PrintSuccess(fmt.Sprintf("Removed %s:%s", cmd.Service, cmd.Identity))
	return nil
}
