package compose

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// projectLabel is the label Compose stamps on every container it creates.
const projectLabel = "com.docker.compose.project"

// ContainerInfo summarizes one container of the stack for status output.
type ContainerInfo struct {
	ID      string
	Name    string
	Image   string
	State   string
	Status  string
	Service string
}

// newDockerClient creates a Docker SDK client from the environment and
// verifies the daemon is reachable.
func newDockerClient(ctx context.Context) (*client.Client, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := cli.Ping(pingCtx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("Docker daemon is not accessible: %w", err)
	}

	return cli, nil
}

// PingDaemon checks that the Docker daemon is reachable. Part of the
// launch preflight, before any state is written.
func PingDaemon(ctx context.Context) error {
	cli, err := newDockerClient(ctx)
	if err != nil {
		return err
	}
	return cli.Close()
}

// ListStackContainers returns the containers belonging to the Compose
// project, including stopped ones.
func ListStackContainers(ctx context.Context, project string) ([]ContainerInfo, error) {
	cli, err := newDockerClient(ctx)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=%s", projectLabel, project)),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	infos := make([]ContainerInfo, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = c.Names[0]
		}
		infos = append(infos, ContainerInfo{
			ID:      c.ID,
			Name:    name,
			Image:   c.Image,
			State:   string(c.State),
			Status:  c.Status,
			Service: c.Labels["com.docker.compose.service"],
		})
	}

	return infos, nil
}
