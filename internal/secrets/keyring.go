package secrets

import (
	"fmt"

	"github.com/99designs/keyring"
)

// probeKey is read once at open to verify the keyring answers. It is
// never written, so a missing-key result proves availability just as
// well as a hit would.
const probeKey = "owlkit-availability-probe"

// allowedBackends restricts resolution to real OS secret stores. The
// library's built-in file and pass backends would otherwise answer the
// probe themselves and mask an unavailable keyring, bypassing our own
// encrypted-file fallback.
var allowedBackends = []keyring.BackendType{
	keyring.KeychainBackend,
	keyring.WinCredBackend,
	keyring.SecretServiceBackend,
	keyring.KWalletBackend,
}

// keyringBackend stores credentials in the OS keyring.
type keyringBackend struct {
	ring keyring.Keyring
}

// openKeyring opens the OS keyring and probes it with a harmless read.
// Returns an error if no keyring is usable on this host.
func openKeyring() (*keyringBackend, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              ServiceName,
		AllowedBackends:          allowedBackends,
		KeychainTrustApplication: true, // macOS: don't prompt every access
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	if _, err := ring.Get(probeKey); err != nil && err != keyring.ErrKeyNotFound {
		return nil, fmt.Errorf("keyring probe failed: %w", err)
	}

	return &keyringBackend{ring: ring}, nil
}

// get retrieves a credential by key from the keyring.
func (b *keyringBackend) get(key string) (string, error) {
	item, err := b.ring.Get(key)
	if err != nil {
		if err == keyring.ErrKeyNotFound {
			return "", errNotFound
		}
		return "", fmt.Errorf("keyring get failed: %w", err)
	}
	return string(item.Data), nil
}

// set stores a credential in the keyring.
func (b *keyringBackend) set(key, value string) error {
	item := keyring.Item{
		Key:  key,
		Data: []byte(value),
	}
	if err := b.ring.Set(item); err != nil {
		return fmt.Errorf("keyring set failed: %w", err)
	}
	return nil
}

// delete removes a credential from the keyring.
func (b *keyringBackend) delete(key string) error {
	if err := b.ring.Remove(key); err != nil {
		if err == keyring.ErrKeyNotFound {
			return errNotFound
		}
		return fmt.Errorf("keyring delete failed: %w", err)
	}
	return nil
}

// keys returns all credential keys stored in the keyring.
func (b *keyringBackend) keys() ([]string, error) {
	keys, err := b.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("keyring list failed: %w", err)
	}
	return keys, nil
}
