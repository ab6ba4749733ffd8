package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
)

// ServiceName is the namespace under which owlkit credentials are
// stored in the OS keyring.
const ServiceName = "owlkit"

// errNotFound is returned by a backend when a key is absent.
var errNotFound = errors.New("credential not found")

// backend is one of the two storage variants behind a Store. The
// variant is selected once when the store is opened and serves the
// instance for its whole lifetime.
type backend interface {
	get(key string) (string, error)
	set(key, value string) error
	delete(key string) error
	keys() ([]string, error)
}

// Store persists secrets addressed by (service, identity) pairs. It
// prefers the OS keyring and falls back to an AES-256-GCM encrypted
// file under its directory when no keyring is reachable.
//
// Reads fail open: a missing, corrupt or unreadable credential reports
// as absent. Writes fail loud: an error from Set means the secret was
// not persisted.
type Store struct {
	dir  string
	ring backend // nil when the probe selected the file backend
	file *fileBackend
	warn func(string)
}

// Open initializes a credential store rooted at dir, creating the
// directory with owner-only permissions. An empty dir selects the
// default per-user data directory. OS keyring availability is probed
// once here; the outcome is fixed for the lifetime of the instance.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(xdg.DataHome, "owlkit")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	if err := os.Chmod(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to secure credential directory: %w", err)
	}

	warn := func(msg string) { fmt.Fprintln(os.Stderr, msg) }
	s := &Store{
		dir:  dir,
		file: newFileBackend(dir, warn),
		warn: warn,
	}

	// WSL and headless hosts rarely have a working secret service;
	// skip the probe there instead of waiting on D-Bus.
	if skipKeyring() {
		warnOnce(dir, "No OS keyring available, storing credentials in an encrypted file")
		return s, nil
	}

	ring, err := openKeyring()
	if err != nil {
		warnOnce(dir, fmt.Sprintf("OS keyring unavailable (%v), storing credentials in an encrypted file", err))
		return s, nil
	}
	s.ring = ring

	return s, nil
}

// Dir returns the directory holding the store's fallback files.
func (s *Store) Dir() string {
	return s.dir
}

// UsingKeyring reports whether the OS keyring serves this store.
func (s *Store) UsingKeyring() bool {
	return s.ring != nil
}

// BackendName describes the selected backend for user-facing output.
func (s *Store) BackendName() string {
	if s.ring != nil {
		return "system keyring"
	}
	return "encrypted file"
}

// Get returns the secret stored for (service, identity). Every failure
// mode reads as absent: missing key, unreachable keyring, corrupt or
// undecryptable credential file.
func (s *Store) Get(service, identity string) (string, bool) {
	key := compositeKey(service, identity)

	if s.ring != nil {
		value, err := s.ring.get(key)
		if err != nil {
			return "", false
		}
		return value, true
	}

	value, err := s.file.get(key)
	if err != nil {
		return "", false
	}
	return value, true
}

// Set persists the secret for (service, identity). When the keyring is
// selected but rejects the write, the secret lands in the encrypted
// file for this call only; the instance keeps its keyring preference.
func (s *Store) Set(service, identity, secret string) error {
	key := compositeKey(service, identity)

	if s.ring != nil {
		err := s.ring.set(key, secret)
		if err == nil {
			return nil
		}
		s.warn(fmt.Sprintf("keyring write failed (%v), storing in encrypted file", err))
	}

	return s.file.set(key, secret)
}

// Delete removes the secret for (service, identity) from every backend
// that may hold it; a key written before a backend switch can exist in
// either. Deleting an absent key is a no-op. Only a hard failure, such
// as an unwritable credential file, reports an error.
func (s *Store) Delete(service, identity string) error {
	key := compositeKey(service, identity)

	var ringErr error
	if s.ring != nil {
		if err := s.ring.delete(key); err != nil && !errors.Is(err, errNotFound) {
			ringErr = err
		}
	}

	if err := s.file.delete(key); err != nil && !errors.Is(err, errNotFound) {
		return err
	}

	return ringErr
}

// List returns stored credentials grouped by service, identities
// sorted. Both backends are consulted; a side that cannot enumerate
// contributes nothing. Keys without a service:identity separator are
// skipped with a warning.
func (s *Store) List() map[string][]string {
	var all []string
	if s.ring != nil {
		if keys, err := s.ring.keys(); err == nil {
			all = append(all, keys...)
		}
	}
	if keys, err := s.file.keys(); err == nil {
		all = append(all, keys...)
	}

	grouped := make(map[string][]string)
	seen := make(map[string]bool)
	for _, key := range all {
		if seen[key] {
			continue
		}
		seen[key] = true

		service, identity, ok := splitKey(key)
		if !ok {
			s.warn(fmt.Sprintf("skipping malformed credential key %q", key))
			continue
		}
		grouped[service] = append(grouped[service], identity)
	}

	for _, identities := range grouped {
		sort.Strings(identities)
	}
	return grouped
}

// compositeKey joins service and identity into the single key both
// backends store under. Neither part may contain ':' without risking
// collisions; splitKey recovers the pair at the first separator.
func compositeKey(service, identity string) string {
	return service + ":" + identity
}

func splitKey(key string) (service, identity string, ok bool) {
	i := strings.Index(key, ":")
	if i < 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}
