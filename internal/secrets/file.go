package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	credsFileName = "credentials.enc"
	keyFileName   = ".key"
	keySize       = 32 // AES-256
)

// fileBackend stores credentials as an AES-256-GCM encrypted JSON map.
// It serves hosts without a usable OS keyring (WSL, headless, CI) and
// doubles as the write fallback and enumeration source for keyring
// stores.
type fileBackend struct {
	path    string
	keyPath string
	warn    func(string)
	corrupt sync.Once
}

func newFileBackend(dir string, warn func(string)) *fileBackend {
	return &fileBackend{
		path:    filepath.Join(dir, credsFileName),
		keyPath: filepath.Join(dir, keyFileName),
		warn:    warn,
	}
}

// loadOrCreateKey returns the symmetric key, generating and persisting
// it on first use. The key is strictly create-if-absent: regenerating
// an existing key would strand every credential encrypted under it.
func (b *fileBackend) loadOrCreateKey() ([]byte, error) {
	key, err := os.ReadFile(b.keyPath)
	if err == nil {
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key = make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.WriteFile(b.keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return key, nil
}

// encrypt encrypts plaintext using AES-256-GCM with a random 12-byte nonce.
// The nonce is prepended to the ciphertext.
func encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt decrypts ciphertext that was produced by encrypt, reading the
// nonce from the leading bytes. Tampered or truncated input fails.
func decrypt(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// readStore decrypts and parses the credential file. Missing, corrupt
// or undecryptable content degrades to an empty map: reads stay
// available and the next write re-establishes a valid blob.
func (b *fileBackend) readStore() map[string]string {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			b.warnCorrupt(fmt.Sprintf("credential file unreadable (%v), treating as empty", err))
		}
		return make(map[string]string)
	}
	if len(data) == 0 {
		return make(map[string]string)
	}

	key, err := b.loadOrCreateKey()
	if err != nil {
		b.warnCorrupt(fmt.Sprintf("credential key unavailable (%v), treating store as empty", err))
		return make(map[string]string)
	}

	plaintext, err := decrypt(key, data)
	if err != nil {
		b.warnCorrupt("credential file cannot be decrypted, treating as empty; the next write starts fresh")
		return make(map[string]string)
	}

	var store map[string]string
	if err := json.Unmarshal(plaintext, &store); err != nil {
		b.warnCorrupt("credential file is malformed after decryption, treating as empty")
		return make(map[string]string)
	}
	if store == nil {
		store = make(map[string]string)
	}
	return store
}

// warnCorrupt reports an unreadable credential file once per process so
// repeated reads don't spam stderr.
func (b *fileBackend) warnCorrupt(msg string) {
	b.corrupt.Do(func() { b.warn(msg) })
}

// writeStore encrypts and rewrites the whole credential file through a
// temp file and rename, then re-applies owner-only permissions.
func (b *fileBackend) writeStore(store map[string]string) error {
	plaintext, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	key, err := b.loadOrCreateKey()
	if err != nil {
		return err
	}

	ciphertext, err := encrypt(key, plaintext)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, credsFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to stage credential file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(ciphertext); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	if err := os.Chmod(b.path, 0600); err != nil {
		return fmt.Errorf("failed to secure credential file: %w", err)
	}

	return nil
}

// get retrieves a credential by key from the encrypted file.
func (b *fileBackend) get(key string) (string, error) {
	store := b.readStore()
	value, ok := store[key]
	if !ok {
		return "", errNotFound
	}
	return value, nil
}

// set stores a credential in the encrypted file. A corrupt prior blob
// is replaced by a fresh one containing this entry.
func (b *fileBackend) set(key, value string) error {
	store := b.readStore()
	store[key] = value
	return b.writeStore(store)
}

// delete removes a credential from the encrypted file. An absent key
// reports errNotFound without rewriting the file.
func (b *fileBackend) delete(key string) error {
	store := b.readStore()
	if _, ok := store[key]; !ok {
		return errNotFound
	}
	delete(store, key)
	return b.writeStore(store)
}

// keys returns all credential keys from the encrypted file.
func (b *fileBackend) keys() ([]string, error) {
	store := b.readStore()
	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	return keys, nil
}
