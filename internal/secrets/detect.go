package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// skipKeyring reports whether the keyring probe should not even be
// attempted. WSL and headless hosts rarely run a secret service, and
// waiting on D-Bus there is slower than just falling back.
// OWLKIT_NO_KEYRING=1 forces the encrypted file, mainly for CI.
func skipKeyring() bool {
	if v := os.Getenv("OWLKIT_NO_KEYRING"); v == "1" || v == "true" {
		return true
	}
	return IsWSL() || IsHeadless()
}

// IsWSL returns true if running under Windows Subsystem for Linux.
func IsWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}

	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// IsHeadless returns true if running in a headless environment (no display server).
// Only applicable on Linux; macOS and Windows are assumed to have GUI.
func IsHeadless() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	// Check for X11 or Wayland display
	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}

// quietMode returns true if the user has suppressed warnings via OWLKIT_QUIET.
func quietMode() bool {
	return os.Getenv("OWLKIT_QUIET") == "1" || os.Getenv("OWLKIT_QUIET") == "true"
}

// warnOnce prints the backend-fallback notice the first time a store
// under dir resolves to file storage. A marker file keeps later
// commands quiet. Set OWLKIT_QUIET=1 to suppress entirely.
func warnOnce(dir, msg string) {
	if quietMode() {
		return
	}

	marker := filepath.Join(dir, ".file-store-warning-shown")
	if _, err := os.Stat(marker); err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, msg)
	_ = os.WriteFile(marker, []byte("1"), 0600)
}
