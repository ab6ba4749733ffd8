package sbpack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/ini.v1"
)

const credentialsFile = "credentials"

// DefaultProfileDir returns ~/.sevenbridges, the directory sbpack and
// the sb CLI read their credentials from.
func DefaultProfileDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".sevenbridges"), nil
}

// WriteProfile upserts one profile section in dir/credentials, leaving
// every other section untouched. The file is INI-formatted the way the
// Seven Bridges tooling expects:
//
//	[cgc]
//	api_endpoint = https://cgc-api.sbgenomics.com/v2
//	auth_token = <token>
//
// The directory is created with 0700 and the file kept at 0600 since it
// holds tokens in the clear.
func WriteProfile(dir, profile, endpoint, token string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		return fmt.Errorf("failed to secure credentials directory: %w", err)
	}

	path := filepath.Join(dir, credentialsFile)
	unlock, err := lockCredentials(path)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}

	section := cfg.Section(profile)
	section.Key("api_endpoint").SetValue(endpoint)
	section.Key("auth_token").SetValue(token)

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to secure credentials file: %w", err)
	}
	return nil
}

// RemoveProfile deletes one profile section from dir/credentials. A
// missing file or section is not an error.
func RemoveProfile(dir, profile string) error {
	path := filepath.Join(dir, credentialsFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	unlock, err := lockCredentials(path)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if _, err := cfg.GetSection(profile); err != nil {
		return nil
	}

	cfg.DeleteSection(profile)
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return os.Chmod(path, 0o600)
}

// ReadProfileToken returns the auth_token of a profile section, if the
// credentials file has one.
func ReadProfileToken(dir, profile string) (string, bool) {
	cfg, err := ini.LooseLoad(filepath.Join(dir, credentialsFile))
	if err != nil {
		return "", false
	}
	section, err := cfg.GetSection(profile)
	if err != nil {
		return "", false
	}
	token := section.Key("auth_token").String()
	return token, token != ""
}

// lockCredentials guards the credentials file against concurrent
// rewrites, since other owlkit processes or the Seven Bridges tools may
// touch it at the same time.
func lockCredentials(path string) (func() error, error) {
	lock := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire lock: timeout")
	}
	return lock.Unlock, nil
}
