package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// ConfigDir returns the XDG-compliant config directory for owlkit
// Typically ~/.config/owlkit/ on Linux
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "owlkit")
}

// ConfigPath returns the full path to the config file
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json5")
}

// DataDir returns the XDG-compliant data directory for owlkit
// Typically ~/.local/share/owlkit/ on Linux (credential store lives here)
// OWLKIT_DATA_DIR overrides the default, mainly for tests and CI
func DataDir() string {
	if dir := os.Getenv("OWLKIT_DATA_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.DataHome, "owlkit")
}
