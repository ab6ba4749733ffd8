package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigGet(t *testing.T) {
	cfg := &Config{
		Username:        "alice",
		Registry:        "ghcr.io",
		DefaultPlatform: "cgc",
		DefaultOutput:   "json",
	}

	tests := []struct {
		key      string
		expected string
	}{
		{"username", "alice"},
		{"registry", "ghcr.io"},
		{"default_platform", "cgc"},
		{"default_project", ""},
		{"default_output", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			value, err := cfg.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}

	t.Run("unknown key returns error", func(t *testing.T) {
		_, err := cfg.Get("nope")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown config key")
	})
}

func TestConfigKeys(t *testing.T) {
	cfg := &Config{}
	keys := cfg.Keys()

	assert.Equal(t, []string{
		"username", "registry", "default_platform", "default_project", "default_output",
	}, keys)

	// Every advertised key must be readable
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, "key %q not readable", k)
	}
}

func TestDataDirOverride(t *testing.T) {
	t.Setenv("OWLKIT_DATA_DIR", "/tmp/owlkit-test")
	assert.Equal(t, "/tmp/owlkit-test", DataDir())
}
