package registry

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// DockerClient is the subset of the Docker SDK the registry manager
// uses. Tests substitute a fake.
type DockerClient interface {
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
}

// NewDockerClient constructs a Docker SDK client from the environment
// (DOCKER_HOST and friends).
func NewDockerClient() (DockerClient, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return dockerClient, nil
}
