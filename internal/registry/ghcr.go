package registry

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/go-units"

	"github.com/open-workflow-library/owlkit/internal/output"
	"github.com/open-workflow-library/owlkit/internal/run"
)

const (
	// DefaultRegistry is the container registry all operations target.
	DefaultRegistry = "ghcr.io"

	// CredentialService is the service name registry tokens are stored
	// under in the credential store.
	CredentialService = "ghcr"
)

// Credentials is the slice of the credential layer the registry
// manager needs. *secrets.Prompter satisfies it.
type Credentials interface {
	Get(service, identity string) (string, bool)
	Set(service, identity, secret string) error
	PromptAndStore(service, identity, promptText string) (string, error)
	Confirm(question string) (bool, error)
	ConfirmDefaultNo(question string) (bool, error)
	ReadLine(prompt string) (string, error)
}

// Manager wraps docker for GitHub Container Registry workflows. Builds,
// pushes and pulls shell out to the docker CLI so output streams to the
// terminal exactly as docker renders it; image listing goes through the
// Docker SDK instead of scraping CLI output.
type Manager struct {
	registry string
	username string
	creds    Credentials
	runner   run.Runner
	out      output.Formatter
	noInput  bool

	docker    DockerClient
	newDocker func() (DockerClient, error)

	authenticated bool
}

// NewManager returns a Manager targeting ghcr.io. username may be empty,
// in which case it is resolved from the environment or a prompt on
// first use. The SDK client is not constructed until an operation needs
// it, so a broken DOCKER_HOST cannot break CLI-only commands.
func NewManager(username string, creds Credentials, runner run.Runner, out output.Formatter, noInput bool) *Manager {
	return &Manager{
		registry:  DefaultRegistry,
		username:  username,
		creds:     creds,
		runner:    runner,
		out:       out,
		noInput:   noInput,
		newDocker: NewDockerClient,
	}
}

// ResolveUsername returns the GitHub username, consulting GITHUB_USER,
// GITHUB_ACTOR and GITHUB_REPOSITORY_OWNER before prompting. The result
// is memoized for the life of the Manager.
func (m *Manager) ResolveUsername() (string, error) {
	if m.username != "" {
		return m.username, nil
	}

	for _, key := range []string{"GITHUB_USER", "GITHUB_ACTOR", "GITHUB_REPOSITORY_OWNER"} {
		if v := os.Getenv(key); v != "" {
			m.username = v
			m.out.PrintInfo(fmt.Sprintf("Detected GitHub username: %s", v))
			return v, nil
		}
	}

	if m.noInput {
		return "", fmt.Errorf("github username not set; pass --username or set GITHUB_USER")
	}

	username, err := m.creds.ReadLine("Enter your GitHub username: ")
	if err != nil {
		return "", err
	}
	if username == "" {
		return "", fmt.Errorf("github username is required")
	}
	m.username = username
	return username, nil
}

// Login authenticates docker against the registry. An empty token
// triggers the lookup chain: stored credential, GITHUB_TOKEN, then an
// interactive prompt that offers to store the entered token.
func (m *Manager) Login(ctx context.Context, token string) error {
	username, err := m.ResolveUsername()
	if err != nil {
		return err
	}

	if token == "" {
		token, err = m.resolveToken(username)
		if err != nil {
			return err
		}
	}

	if err := m.runner.RunInput(ctx, "", token, "docker", "login", m.registry, "-u", username, "--password-stdin"); err != nil {
		return fmt.Errorf("login to %s failed: %w", m.registry, err)
	}

	m.out.PrintSuccess(fmt.Sprintf("Successfully logged in to %s", m.registry))
	m.authenticated = true
	return nil
}

func (m *Manager) resolveToken(username string) (string, error) {
	if stored, ok := m.creds.Get(CredentialService, username); ok {
		m.out.PrintInfo("Using stored GitHub token")
		return stored, nil
	}

	if envToken := os.Getenv("GITHUB_TOKEN"); envToken != "" {
		if m.noInput {
			m.out.PrintInfo("Using GITHUB_TOKEN from environment")
			return envToken, nil
		}
		m.out.PrintWarning("Codespaces token has limited package permissions")
		use, err := m.creds.ConfirmDefaultNo("Use Codespaces token anyway? (not recommended for pushing)")
		if err != nil {
			return "", err
		}
		if use {
			m.out.PrintInfo("Using GitHub Codespaces/Actions token")
			return envToken, nil
		}
	}

	if m.noInput {
		return "", fmt.Errorf("no stored token for %s; set GITHUB_TOKEN or run 'owlkit docker login' interactively", username)
	}

	return m.creds.PromptAndStore(CredentialService, username,
		"Enter GitHub Personal Access Token (needs 'write:packages' scope): ")
}

// Logout removes the registry login from docker's credential store. The
// stored owlkit credential is left in place so the next login does not
// have to prompt again.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.runner.Run(ctx, "", "docker", "logout", m.registry); err != nil {
		return fmt.Errorf("logout from %s failed: %w", m.registry, err)
	}
	m.out.PrintSuccess(fmt.Sprintf("Logged out from %s", m.registry))
	m.authenticated = false
	return nil
}

// Build builds dockerfile into <registry>/<username>/<tag> and returns
// the full tag. Build args are passed in sorted key order so the docker
// command line is stable. Build output streams to the terminal.
func (m *Manager) Build(ctx context.Context, dockerfile, tag, contextDir string, buildArgs map[string]string) (string, error) {
	username, err := m.ResolveUsername()
	if err != nil {
		return "", err
	}
	fullTag := fmt.Sprintf("%s/%s/%s", m.registry, username, tag)

	args := []string{"build", "-f", dockerfile, "-t", fullTag}
	for _, key := range sortedKeys(buildArgs) {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", key, buildArgs[key]))
	}
	args = append(args, contextDir)

	m.out.PrintInfo(fmt.Sprintf("Building %s...", fullTag))
	if err := m.runner.Run(ctx, "", "docker", args...); err != nil {
		return "", fmt.Errorf("build failed: %w", err)
	}
	m.out.PrintSuccess(fmt.Sprintf("Successfully built %s", fullTag))
	return fullTag, nil
}

// Push uploads <registry>/<username>/<tag>, logging in first when this
// process has not authenticated yet.
func (m *Manager) Push(ctx context.Context, tag string) error {
	if !m.authenticated {
		m.out.PrintInfo("Not authenticated, logging in first.")
		if err := m.Login(ctx, ""); err != nil {
			return err
		}
	}

	username, err := m.ResolveUsername()
	if err != nil {
		return err
	}
	fullTag := fmt.Sprintf("%s/%s/%s", m.registry, username, tag)

	m.out.PrintInfo(fmt.Sprintf("Pushing %s...", fullTag))
	if err := m.runner.Run(ctx, "", "docker", "push", fullTag); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	m.out.PrintSuccess(fmt.Sprintf("Successfully pushed %s", fullTag))

	m.out.PrintInfo("Note: new packages are private by default.")
	m.out.PrintInfo(fmt.Sprintf("To make public, visit: https://github.com/%s?tab=packages", username))
	return nil
}

// Pull downloads an image and returns the full reference it pulled.
// Full references are used as-is, owner/name pairs are prefixed with
// the registry, and bare names are namespaced under the resolved
// username. An empty tag means latest.
func (m *Manager) Pull(ctx context.Context, imageName, tag string) (string, error) {
	if tag == "" {
		tag = "latest"
	}

	var fullImage string
	switch {
	case strings.HasPrefix(imageName, m.registry):
		fullImage = fmt.Sprintf("%s:%s", imageName, tag)
	case strings.Contains(imageName, "/"):
		fullImage = fmt.Sprintf("%s/%s:%s", m.registry, imageName, tag)
	default:
		username, err := m.ResolveUsername()
		if err != nil {
			return "", err
		}
		fullImage = fmt.Sprintf("%s/%s/%s:%s", m.registry, username, imageName, tag)
	}

	m.out.PrintInfo(fmt.Sprintf("Pulling %s...", fullImage))
	if err := m.runner.Run(ctx, "", "docker", "pull", fullImage); err != nil {
		return "", fmt.Errorf("pull failed: %w", err)
	}
	m.out.PrintSuccess(fmt.Sprintf("Successfully pulled %s", fullImage))
	return fullImage, nil
}

// Tag tags a local image into the registry namespace and returns the
// remote reference. An empty remoteTag reuses localTag.
func (m *Manager) Tag(ctx context.Context, localTag, remoteTag string) (string, error) {
	username, err := m.ResolveUsername()
	if err != nil {
		return "", err
	}
	if remoteTag == "" {
		remoteTag = localTag
	}
	fullRemote := fmt.Sprintf("%s/%s/%s", m.registry, username, remoteTag)

	if err := m.runner.Run(ctx, "", "docker", "tag", localTag, fullRemote); err != nil {
		return "", fmt.Errorf("tag failed: %w", err)
	}
	m.out.PrintSuccess(fmt.Sprintf("Tagged %s as %s", localTag, fullRemote))
	return fullRemote, nil
}

// Image is one local image row, one per repo:tag pair.
type Image struct {
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
	ID         string `json:"id"`
	Created    string `json:"created"`
	Size       string `json:"size"`
}

// Images lists local images in a registry namespace via the Docker SDK.
// An empty namespace defaults to <registry>/<resolved username>.
func (m *Manager) Images(ctx context.Context, namespace string) ([]Image, error) {
	if namespace == "" {
		username, err := m.ResolveUsername()
		if err != nil {
			return nil, err
		}
		namespace = fmt.Sprintf("%s/%s", m.registry, username)
	}

	client, err := m.dockerClient()
	if err != nil {
		return nil, err
	}

	refFilter := filters.NewArgs()
	refFilter.Add("reference", namespace+"/*")

	summaries, err := client.ImageList(ctx, image.ListOptions{Filters: refFilter})
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	images := make([]Image, 0, len(summaries))
	for _, summary := range summaries {
		id := strings.TrimPrefix(summary.ID, "sha256:")
		if len(id) > 12 {
			id = id[:12]
		}
		created := units.HumanDuration(time.Since(time.Unix(summary.Created, 0))) + " ago"
		size := units.HumanSize(float64(summary.Size))

		if len(summary.RepoTags) == 0 {
			images = append(images, Image{
				Repository: "<none>",
				Tag:        "<none>",
				ID:         id,
				Created:    created,
				Size:       size,
			})
			continue
		}
		for _, repoTag := range summary.RepoTags {
			repo, tag := splitRepoTag(repoTag)
			images = append(images, Image{
				Repository: repo,
				Tag:        tag,
				ID:         id,
				Created:    created,
				Size:       size,
			})
		}
	}
	return images, nil
}

func (m *Manager) dockerClient() (DockerClient, error) {
	if m.docker != nil {
		return m.docker, nil
	}
	client, err := m.newDocker()
	if err != nil {
		return nil, err
	}
	m.docker = client
	return m.docker, nil
}

// splitRepoTag splits "repo:tag" at the last colon so registry ports
// stay inside the repository part.
func splitRepoTag(repoTag string) (string, string) {
	i := strings.LastIndex(repoTag, ":")
	if i < 0 {
		return repoTag, "<none>"
	}
	return repoTag[:i], repoTag[i+1:]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
