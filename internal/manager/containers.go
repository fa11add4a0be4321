package manager

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"dockhand/pkg/dockapi"
	"dockhand/pkg/duration"
)

// ContainerInfo is the plain-data view of a container.
type ContainerInfo struct {
	ID       string // short form
	FullID   string
	Name     string
	Status   string
	Image    string
	Created  string
	Ports    []dockapi.PortMapping
	Labels   map[string]string
	Networks []string
}

func containerInfo(c *dockapi.Container) ContainerInfo {
	info := ContainerInfo{
		ID:      c.ShortID(),
		FullID:  c.ID,
		Name:    c.Name,
		Status:  c.Status,
		Image:   c.Image,
		Created: c.Created,
		Ports:   c.Ports,
		Labels:  c.Labels,
	}
	if settings, ok := c.Attrs()["NetworkSettings"].(map[string]any); ok {
		if networks, ok := settings["Networks"].(map[string]any); ok {
			for name := range networks {
				info.Networks = append(info.Networks, name)
			}
		}
	}
	if len(info.Networks) == 0 {
		info.Networks = []string{"bridge"}
	}
	return info
}

// ListContainers returns all containers, or only running ones.
func (m *Manager) ListContainers(ctx context.Context, all bool) ([]ContainerInfo, error) {
	containers, err := m.client.Containers.List(ctx, dockapi.ListOptions{All: all})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	infos := make([]ContainerInfo, 0, len(containers))
	for _, c := range containers {
		infos = append(infos, containerInfo(c))
	}
	return infos, nil
}

// CreateContainerRequest is the plain-data input for container creation.
type CreateContainerRequest struct {
	Image       string
	Name        string
	Env         map[string]string
	Volumes     map[string]dockapi.VolumeBinding
	Ports       map[int]int
	NetworkMode string
	Hostname    string
	AutoRemove  bool
}

// CreateContainer creates a container, pulling the image first when the
// daemon does not have it. The hostname defaults to the container name.
func (m *Manager) CreateContainer(ctx context.Context, req CreateContainerRequest) (string, error) {
	if _, err := m.client.Images.Get(ctx, req.Image); err != nil {
		if !dockapi.IsNotFound(err) {
			return "", err
		}
		log.Info("image not found locally, pulling", "image", req.Image)
		if _, err := m.client.Images.Pull(ctx, req.Image, "", ""); err != nil {
			return "", fmt.Errorf("failed to pull %s: %w", req.Image, err)
		}
	}

	hostname := req.Hostname
	if hostname == "" {
		hostname = req.Name
	}
	container, err := m.client.Containers.Create(ctx, dockapi.CreateOptions{
		Image:       req.Image,
		Name:        req.Name,
		Env:         req.Env,
		Volumes:     req.Volumes,
		Ports:       req.Ports,
		NetworkMode: req.NetworkMode,
		Hostname:    hostname,
		AutoRemove:  req.AutoRemove,
		OpenStdin:   true,
		TTY:         true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", req.Name, err)
	}
	log.Info("container created", "name", req.Name, "id", container.ShortID())
	return container.ID, nil
}

// StartContainer starts a container by name.
func (m *Manager) StartContainer(ctx context.Context, name string) error {
	container, err := m.client.Containers.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := container.Start(ctx); err != nil {
		return err
	}
	log.Info("container started", "name", name)
	return nil
}

// StopContainer stops a container by name.
func (m *Manager) StopContainer(ctx context.Context, name string, timeout int) error {
	container, err := m.client.Containers.Get(ctx, name)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = 10
	}
	if err := container.Stop(ctx, timeout); err != nil {
		return err
	}
	log.Info("container stopped", "name", name)
	return nil
}

// RemoveContainer removes a container by name.
func (m *Manager) RemoveContainer(ctx context.Context, name string, force bool) error {
	container, err := m.client.Containers.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := container.Remove(ctx, force, false); err != nil {
		return err
	}
	log.Info("container removed", "name", name)
	return nil
}

// ContainerStatus returns a container's status string.
func (m *Manager) ContainerStatus(ctx context.Context, name string) (string, error) {
	container, err := m.client.Containers.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return container.Status, nil
}

// ExecCommand runs a shell command in a running container and returns the
// combined output.
func (m *Manager) ExecCommand(ctx context.Context, name, command string, user, workdir string, env map[string]string) (string, error) {
	container, err := m.client.Containers.Get(ctx, name)
	if err != nil {
		return "", err
	}
	result, err := container.ExecRun(ctx, dockapi.ExecOptions{
		Command: command,
		User:    user,
		WorkDir: workdir,
		Env:     env,
	})
	if err != nil {
		return "", fmt.Errorf("failed to exec in container %s: %w", name, err)
	}
	return result.Stdout + result.Stderr, nil
}

// ContainerLogs returns the last tail lines of a container's logs.
func (m *Manager) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	container, err := m.client.Containers.Get(ctx, name)
	if err != nil {
		return "", err
	}
	opts := dockapi.LogsOptions{}
	if tail > 0 {
		opts.Tail = strconv.Itoa(tail)
	}
	return container.Logs(ctx, opts)
}

// ContainerLogsSince returns logs emitted within the given window, e.g.
// "30m", "1d" or "2w".
func (m *Manager) ContainerLogsSince(ctx context.Context, name string, window string) (string, error) {
	d, err := duration.Parse(window)
	if err != nil {
		return "", fmt.Errorf("invalid log window: %w", err)
	}
	container, err := m.client.Containers.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return container.Logs(ctx, dockapi.LogsOptions{Since: time.Now().Add(-d).Unix()})
}
