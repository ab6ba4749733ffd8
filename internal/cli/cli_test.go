package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/open-workflow-library/owlkit/internal/config"
)

func TestCredentialRows(t *testing.T) {
	rows := credentialRows(map[string][]string{
		"github": {"alice", "bob"},
		"cgc":    {"auth_token"},
	})

	assert.Equal(t, []credentialRow{
		{Service: "cgc", Identity: "auth_token"},
		{Service: "github", Identity: "alice"},
		{Service: "github", Identity: "bob"},
	}, rows)
}

func TestCredentialRowsEmpty(t *testing.T) {
	assert.Empty(t, credentialRows(nil))
	assert.Empty(t, credentialRows(map[string][]string{}))
}

func TestResolvedOutput(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		cfg      string
		expected string
	}{
		{name: "explicit flag wins", flag: "json", cfg: "rich", expected: "json"},
		{name: "config default used when flag is auto", flag: "auto", cfg: "rich", expected: "rich"},
		// go test never runs with a TTY stdout, so auto falls to plain
		{name: "auto without config detects non-tty", flag: "auto", cfg: "", expected: "plain"},
		{name: "auto config falls through to detection", flag: "auto", cfg: "auto", expected: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Globals{Output: tt.flag}
			cfg := &config.Config{DefaultOutput: tt.cfg}
			assert.Equal(t, tt.expected, g.ResolvedOutput(cfg))
		})
	}
}

func TestStoreDirOverride(t *testing.T) {
	g := &Globals{ConfigDir: "/tmp/owlkit-creds"}
	assert.Equal(t, "/tmp/owlkit-creds", g.StoreDir())
}

func TestPlatformResolution(t *testing.T) {
	sp := NewServiceProvider(&config.Config{DefaultPlatform: "cavatica"}, &Globals{}, nil)
	assert.Equal(t, "sbg-eu", sp.Platform("sbg-eu"))
	assert.Equal(t, "cavatica", sp.Platform(""))

	sp = NewServiceProvider(&config.Config{}, &Globals{}, nil)
	assert.Equal(t, "cgc", sp.Platform(""))
}

func TestProjectResolution(t *testing.T) {
	sp := NewServiceProvider(&config.Config{DefaultProject: "owner/project"}, &Globals{}, nil)
	assert.Equal(t, "other/project", sp.Project("other/project"))
	assert.Equal(t, "owner/project", sp.Project(""))
}
