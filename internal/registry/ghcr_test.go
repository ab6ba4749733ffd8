package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/go-units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-workflow-library/owlkit/internal/output"
)

type call struct {
	input string
	name  string
	args  []string
}

// fakeRunner records every invocation and fails subcommands listed in
// errs.
type fakeRunner struct {
	calls []call
	errs  map[string]error
}

func (f *fakeRunner) record(input, name string, args []string) error {
	f.calls = append(f.calls, call{input: input, name: name, args: args})
	if len(args) > 0 {
		return f.errs[args[0]]
	}
	return nil
}

func (f *fakeRunner) Run(_ context.Context, _, name string, args ...string) error {
	return f.record("", name, args)
}

func (f *fakeRunner) RunInput(_ context.Context, _, input, name string, args ...string) error {
	return f.record(input, name, args)
}

func (f *fakeRunner) Output(_ context.Context, _ string, _ []string, name string, args ...string) ([]byte, error) {
	return nil, f.record("", name, args)
}

func (f *fakeRunner) Combined(_ context.Context, _, name string, args ...string) ([]byte, error) {
	return nil, f.record("", name, args)
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

func (f *fakeRunner) lastCall(t *testing.T) call {
	t.Helper()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

// fakeCreds answers prompts with canned values.
type fakeCreds struct {
	stored        map[string]string
	sets          map[string]string
	confirmYes    bool
	confirmNoYes  bool
	line          string
	promptSecret  string
	promptService string
	promptText    string
}

func (f *fakeCreds) Get(service, identity string) (string, bool) {
	v, ok := f.stored[service+":"+identity]
	return v, ok
}

func (f *fakeCreds) Set(service, identity, secret string) error {
	if f.sets == nil {
		f.sets = make(map[string]string)
	}
	f.sets[service+":"+identity] = secret
	return nil
}

func (f *fakeCreds) PromptAndStore(service, identity, promptText string) (string, error) {
	f.promptService = service + ":" + identity
	f.promptText = promptText
	return f.promptSecret, nil
}

func (f *fakeCreds) Confirm(string) (bool, error) { return f.confirmYes, nil }

func (f *fakeCreds) ConfirmDefaultNo(string) (bool, error) { return f.confirmNoYes, nil }

func (f *fakeCreds) ReadLine(string) (string, error) { return f.line, nil }

// recordingFormatter captures user-facing messages for assertions.
type recordingFormatter struct {
	infos     []string
	successes []string
	warnings  []string
}

func (r *recordingFormatter) Print(any) error                      { return nil }
func (r *recordingFormatter) PrintList(any, []output.Column) error { return nil }
func (r *recordingFormatter) PrintInfo(msg string)                 { r.infos = append(r.infos, msg) }
func (r *recordingFormatter) PrintSuccess(msg string)              { r.successes = append(r.successes, msg) }
func (r *recordingFormatter) PrintWarning(msg string)              { r.warnings = append(r.warnings, msg) }
func (r *recordingFormatter) PrintError(error)                     {}
func (r *recordingFormatter) PrintHint(string)                     {}

func clearGitHubEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GITHUB_USER", "GITHUB_ACTOR", "GITHUB_REPOSITORY_OWNER", "GITHUB_TOKEN"} {
		t.Setenv(key, "")
	}
}

func newTestManager(username string, creds *fakeCreds, runner *fakeRunner) (*Manager, *recordingFormatter) {
	rec := &recordingFormatter{}
	m := NewManager(username, creds, runner, rec, false)
	return m, rec
}

func TestResolveUsernameExplicit(t *testing.T) {
	clearGitHubEnv(t)
	m, _ := newTestManager("alice", &fakeCreds{}, &fakeRunner{})

	username, err := m.ResolveUsername()
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestResolveUsernameEnvCascade(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{"github_user wins", map[string]string{"GITHUB_USER": "user1", "GITHUB_ACTOR": "actor1"}, "user1"},
		{"actor before owner", map[string]string{"GITHUB_ACTOR": "actor1", "GITHUB_REPOSITORY_OWNER": "owner1"}, "actor1"},
		{"owner last", map[string]string{"GITHUB_REPOSITORY_OWNER": "owner1"}, "owner1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearGitHubEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			m, rec := newTestManager("", &fakeCreds{}, &fakeRunner{})
			username, err := m.ResolveUsername()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, username)
			require.NotEmpty(t, rec.infos)
			assert.Contains(t, rec.infos[0], "Detected GitHub username")
		})
	}
}

func TestResolveUsernamePrompts(t *testing.T) {
	clearGitHubEnv(t)
	creds := &fakeCreds{line: "prompted-user"}
	m, _ := newTestManager("", creds, &fakeRunner{})

	username, err := m.ResolveUsername()
	require.NoError(t, err)
	assert.Equal(t, "prompted-user", username)

	// Memoized, the prompt does not repeat.
	creds.line = "someone-else"
	again, err := m.ResolveUsername()
	require.NoError(t, err)
	assert.Equal(t, "prompted-user", again)
}

func TestResolveUsernameNoInputFails(t *testing.T) {
	clearGitHubEnv(t)
	m := NewManager("", &fakeCreds{}, &fakeRunner{}, &recordingFormatter{}, true)

	_, err := m.ResolveUsername()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")
}

func TestLoginWithExplicitToken(t *testing.T) {
	clearGitHubEnv(t)
	runner := &fakeRunner{}
	m, rec := newTestManager("alice", &fakeCreds{}, runner)

	err := m.Login(context.Background(), "tok-explicit")
	require.NoError(t, err)

	c := runner.lastCall(t)
	assert.Equal(t, "docker", c.name)
	assert.Equal(t, []string{"login", "ghcr.io", "-u", "alice", "--password-stdin"}, c.args)
	assert.Equal(t, "tok-explicit", c.input)
	require.NotEmpty(t, rec.successes)
	assert.Contains(t, rec.successes[0], "ghcr.io")
}

func TestLoginUsesStoredToken(t *testing.T) {
	clearGitHubEnv(t)
	runner := &fakeRunner{}
	creds := &fakeCreds{stored: map[string]string{"ghcr:alice": "tok-stored"}}
	m, rec := newTestManager("alice", creds, runner)

	err := m.Login(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "tok-stored", runner.lastCall(t).input)
	assert.Contains(t, rec.infos, "Using stored GitHub token")
}

func TestLoginAcceptedCodespacesToken(t *testing.T) {
	clearGitHubEnv(t)
	t.Setenv("GITHUB_TOKEN", "tok-env")
	runner := &fakeRunner{}
	creds := &fakeCreds{confirmNoYes: true}
	m, rec := newTestManager("alice", creds, runner)

	err := m.Login(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "tok-env", runner.lastCall(t).input)
	require.NotEmpty(t, rec.warnings)
	assert.Contains(t, rec.warnings[0], "limited package permissions")
}

func TestLoginDeclinedCodespacesTokenPrompts(t *testing.T) {
	clearGitHubEnv(t)
	t.Setenv("GITHUB_TOKEN", "tok-env")
	runner := &fakeRunner{}
	creds := &fakeCreds{confirmNoYes: false, promptSecret: "tok-pat"}
	m, _ := newTestManager("alice", creds, runner)

	err := m.Login(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "tok-pat", runner.lastCall(t).input)
	assert.Equal(t, "ghcr:alice", creds.promptService)
	assert.Contains(t, creds.promptText, "write:packages")
}

func TestLoginNoInputAutoAcceptsEnvToken(t *testing.T) {
	clearGitHubEnv(t)
	t.Setenv("GITHUB_TOKEN", "tok-env")
	runner := &fakeRunner{}
	m := NewManager("alice", &fakeCreds{}, runner, &recordingFormatter{}, true)

	err := m.Login(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "tok-env", runner.lastCall(t).input)
}

func TestLoginNoInputWithoutTokenFails(t *testing.T) {
	clearGitHubEnv(t)
	runner := &fakeRunner{}
	m := NewManager("alice", &fakeCreds{}, runner, &recordingFormatter{}, true)

	err := m.Login(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored token")
	assert.Empty(t, runner.calls)
}

func TestLoginFailureSurfacesError(t *testing.T) {
	clearGitHubEnv(t)
	runner := &fakeRunner{errs: map[string]error{"login": errors.New("unauthorized")}}
	m, _ := newTestManager("alice", &fakeCreds{}, runner)

	err := m.Login(context.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login to ghcr.io failed")
}

func TestLogout(t *testing.T) {
	runner := &fakeRunner{}
	m, _ := newTestManager("alice", &fakeCreds{}, runner)

	err := m.Logout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"logout", "ghcr.io"}, runner.lastCall(t).args)
}

func TestBuildSortsBuildArgs(t *testing.T) {
	clearGitHubEnv(t)
	runner := &fakeRunner{}
	m, _ := newTestManager("alice", &fakeCreds{}, runner)

	fullTag, err := m.Build(context.Background(), "docker/Dockerfile", "tool:v1", ".", map[string]string{
		"ZULU":  "2",
		"ALPHA": "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io/alice/tool:v1", fullTag)
	assert.Equal(t, []string{
		"build", "-f", "docker/Dockerfile", "-t", "ghcr.io/alice/tool:v1",
		"--build-arg", "ALPHA=1", "--build-arg", "ZULU=2", ".",
	}, runner.lastCall(t).args)
}

func TestPushLogsInFirst(t *testing.T) {
	clearGitHubEnv(t)
	runner := &fakeRunner{}
	creds := &fakeCreds{stored: map[string]string{"ghcr:alice": "tok"}}
	m, rec := newTestManager("alice", creds, runner)

	err := m.Push(context.Background(), "tool:v1")
	require.NoError(t, err)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "login", runner.calls[0].args[0])
	assert.Equal(t, []string{"push", "ghcr.io/alice/tool:v1"}, runner.calls[1].args)

	joined := strings.Join(rec.infos, "\n")
	assert.Contains(t, joined, "private by default")
	assert.Contains(t, joined, "https://github.com/alice?tab=packages")

	// A second push in the same process skips the login.
	runner.calls = nil
	require.NoError(t, m.Push(context.Background(), "tool:v2"))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "push", runner.calls[0].args[0])
}

func TestPullResolution(t *testing.T) {
	tests := []struct {
		name     string
		image    string
		tag      string
		expected string
	}{
		{"full reference", "ghcr.io/org/tool", "v2", "ghcr.io/org/tool:v2"},
		{"owner and name", "org/tool", "v2", "ghcr.io/org/tool:v2"},
		{"bare name", "tool", "v2", "ghcr.io/alice/tool:v2"},
		{"default tag", "tool", "", "ghcr.io/alice/tool:latest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearGitHubEnv(t)
			runner := &fakeRunner{}
			m, _ := newTestManager("alice", &fakeCreds{}, runner)

			pulled, err := m.Pull(context.Background(), tt.image, tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pulled)
			assert.Equal(t, []string{"pull", tt.expected}, runner.lastCall(t).args)
		})
	}
}

func TestTagDefaultsRemoteToLocal(t *testing.T) {
	clearGitHubEnv(t)
	runner := &fakeRunner{}
	m, _ := newTestManager("alice", &fakeCreds{}, runner)

	remote, err := m.Tag(context.Background(), "tool:v1", "")
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io/alice/tool:v1", remote)
	assert.Equal(t, []string{"tag", "tool:v1", "ghcr.io/alice/tool:v1"}, runner.lastCall(t).args)
}

// fakeDockerClient returns canned image summaries and records the
// options it was called with.
type fakeDockerClient struct {
	summaries []image.Summary
	err       error
	options   image.ListOptions
}

func (f *fakeDockerClient) ImageList(_ context.Context, options image.ListOptions) ([]image.Summary, error) {
	f.options = options
	return f.summaries, f.err
}

func TestImagesFiltersAndMapsSummaries(t *testing.T) {
	clearGitHubEnv(t)
	created := time.Now().Add(-2 * time.Hour).Unix()
	docker := &fakeDockerClient{summaries: []image.Summary{
		{
			ID:       "sha256:0123456789abcdef0123456789abcdef",
			RepoTags: []string{"ghcr.io/alice/tool:v1", "ghcr.io/alice/tool:latest"},
			Created:  created,
			Size:     5 * 1000 * 1000,
		},
		{
			ID:      "sha256:fedcba9876543210fedcba9876543210",
			Created: created,
			Size:    1000,
		},
	}}

	m, _ := newTestManager("alice", &fakeCreds{}, &fakeRunner{})
	m.docker = docker

	images, err := m.Images(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"ghcr.io/alice/*"}, docker.options.Filters.Get("reference"))

	require.Len(t, images, 3)
	assert.Equal(t, Image{
		Repository: "ghcr.io/alice/tool",
		Tag:        "v1",
		ID:         "0123456789ab",
		Created:    "2 hours ago",
		Size:       units.HumanSize(5 * 1000 * 1000),
	}, images[0])
	assert.Equal(t, "latest", images[1].Tag)
	assert.Equal(t, "<none>", images[2].Repository)
	assert.Equal(t, "<none>", images[2].Tag)
	assert.Equal(t, "fedcba987654", images[2].ID)
}

func TestImagesExplicitNamespace(t *testing.T) {
	docker := &fakeDockerClient{}
	m, _ := newTestManager("", &fakeCreds{}, &fakeRunner{})
	m.docker = docker

	_, err := m.Images(context.Background(), "ghcr.io/some-org")
	require.NoError(t, err)
	assert.Equal(t, []string{"ghcr.io/some-org/*"}, docker.options.Filters.Get("reference"))
}

func TestImagesClientErrors(t *testing.T) {
	docker := &fakeDockerClient{err: errors.New("cannot connect to the Docker daemon")}
	m, _ := newTestManager("alice", &fakeCreds{}, &fakeRunner{})
	m.docker = docker

	_, err := m.Images(context.Background(), "ghcr.io/alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list images")
}

func TestImagesLazyClientConstruction(t *testing.T) {
	constructed := 0
	docker := &fakeDockerClient{}
	m, _ := newTestManager("alice", &fakeCreds{}, &fakeRunner{})
	m.newDocker = func() (DockerClient, error) {
		constructed++
		return docker, nil
	}

	_, err := m.Images(context.Background(), "ghcr.io/alice")
	require.NoError(t, err)
	_, err = m.Images(context.Background(), "ghcr.io/alice")
	require.NoError(t, err)
	assert.Equal(t, 1, constructed)
}

func TestImagesClientConstructionError(t *testing.T) {
	m, _ := newTestManager("alice", &fakeCreds{}, &fakeRunner{})
	m.newDocker = func() (DockerClient, error) {
		return nil, errors.New("DOCKER_HOST unreachable")
	}

	_, err := m.Images(context.Background(), "ghcr.io/alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOCKER_HOST")
}

func TestSplitRepoTag(t *testing.T) {
	tests := []struct {
		repoTag string
		repo    string
		tag     string
	}{
		{"ghcr.io/alice/tool:v1", "ghcr.io/alice/tool", "v1"},
		{"localhost:5000/tool:v1", "localhost:5000/tool", "v1"},
		{"untagged", "untagged", "<none>"},
	}

	for _, tt := range tests {
		repo, tag := splitRepoTag(tt.repoTag)
		assert.Equal(t, tt.repo, repo, tt.repoTag)
		assert.Equal(t, tt.tag, tag, tt.repoTag)
	}
}

func TestCheckEnvMasksToken(t *testing.T) {
	clearGitHubEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp_abcdefgh1234")
	t.Setenv("GITHUB_USER", "alice")
	t.Setenv("CODESPACES", "")

	vars := CheckEnv()
	byName := make(map[string]EnvVar, len(vars))
	for _, v := range vars {
		byName[v.Name] = v
	}

	token := byName["GITHUB_TOKEN"]
	assert.True(t, token.Set)
	assert.Equal(t, "**********1234", token.Value)
	assert.NotContains(t, token.Value, "abcdefgh")

	assert.True(t, byName["GITHUB_USER"].Set)
	assert.Equal(t, "alice", byName["GITHUB_USER"].Value)
	assert.False(t, byName["CODESPACES"].Set)
}

func TestMaskTokenShort(t *testing.T) {
	assert.Equal(t, "****", MaskToken("abcd"))
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, fmt.Sprintf("%s89ab", strings.Repeat("*", 10)), MaskToken("0123456789ab"))
}

func TestInCodespaces(t *testing.T) {
	t.Setenv("CODESPACES", "true")
	assert.True(t, InCodespaces())
	t.Setenv("CODESPACES", "")
	assert.False(t, InCodespaces())
}
