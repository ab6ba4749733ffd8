package secrets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter layers interactive credential acquisition over a Store. The
// store itself never touches a terminal; everything interactive lives
// here so headless callers can skip it entirely. The store accessors
// are passed through, letting collaborators depend on one object for
// both modes.
type Prompter struct {
	store      *Store
	in         *bufio.Reader
	out        io.Writer
	readSecret func() (string, error)
}

// NewPrompter returns a Prompter reading confirmations from stdin and
// secrets from the terminal without echo.
func NewPrompter(store *Store) *Prompter {
	return &Prompter{
		store:      store,
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stderr,
		readSecret: readPassword,
	}
}

// Store returns the underlying credential store.
func (p *Prompter) Store() *Store {
	return p.store
}

// Get passes through to the underlying store.
func (p *Prompter) Get(service, identity string) (string, bool) {
	return p.store.Get(service, identity)
}

// Set passes through to the underlying store.
func (p *Prompter) Set(service, identity, secret string) error {
	return p.store.Set(service, identity, secret)
}

// Delete passes through to the underlying store.
func (p *Prompter) Delete(service, identity string) error {
	return p.store.Delete(service, identity)
}

// PromptAndStore returns a credential for (service, identity). A stored
// value is offered for reuse first; otherwise the secret is read without
// echo and, if the user agrees, persisted. The entered secret is
// returned whether or not it was stored.
func (p *Prompter) PromptAndStore(service, identity, promptText string) (string, error) {
	if existing, ok := p.store.Get(service, identity); ok {
		use, err := p.Confirm(fmt.Sprintf("Found stored credential for %s:%s. Use it?", service, identity))
		if err != nil {
			return "", err
		}
		if use {
			return existing, nil
		}
	}

	if promptText == "" {
		promptText = fmt.Sprintf("Enter %s credential for %s: ", service, identity)
	}
	fmt.Fprint(p.out, promptText)
	secret, err := p.readSecret()
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}

	save, err := p.Confirm("Store this credential securely?")
	if err != nil {
		return "", err
	}
	if save {
		if err := p.store.Set(service, identity, secret); err != nil {
			return "", err
		}
		fmt.Fprintf(p.out, "Credential stored in %s\n", p.store.BackendName())
	}

	return secret, nil
}

// PromptSecret reads one secret from the terminal without echo,
// bypassing the store entirely.
func (p *Prompter) PromptSecret(promptText string) (string, error) {
	fmt.Fprint(p.out, promptText)
	secret, err := p.readSecret()
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return secret, nil
}

// Confirm asks a yes/no question on the terminal. Empty input counts
// as yes.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [Y/n]: ", question)

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer != "n" && answer != "no", nil
}

// ConfirmDefaultNo asks a yes/no question where only an explicit yes
// proceeds. Used where the safer answer is to decline.
func (p *Prompter) ConfirmDefaultNo(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// ReadLine prints prompt and reads one echoed line, trimmed of
// surrounding whitespace.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// readPassword reads a secret from the terminal without echoing it.
func readPassword() (string, error) {
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
