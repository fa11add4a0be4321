package manager

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"dockhand/pkg/dockapi"
)

// NetworkInfo is the plain-data view of a network.
type NetworkInfo struct {
	ID         string // short form
	Name       string
	Driver     string
	Scope      string
	Containers int
}

// ListNetworks returns the daemon's networks.
func (m *Manager) ListNetworks(ctx context.Context) ([]NetworkInfo, error) {
	networks, err := m.client.Networks.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}
	infos := make([]NetworkInfo, 0, len(networks))
	for _, n := range networks {
		infos = append(infos, NetworkInfo{
			ID:         n.ShortID(),
			Name:       n.Name,
			Driver:     n.Driver,
			Scope:      n.Scope,
			Containers: n.ContainerCount(),
		})
	}
	return infos, nil
}

// CreateNetwork creates a network and returns its ID.
func (m *Manager) CreateNetwork(ctx context.Context, name, driver string, internal bool) (string, error) {
	network, err := m.client.Networks.Create(ctx, name, dockapi.CreateNetworkOptions{
		Driver:   driver,
		Internal: internal,
	})
	if err != nil {
		return "", err
	}
	log.Info("network created", "name", name, "id", network.ShortID())
	return network.ID, nil
}

// RemoveNetwork removes a network by ID or name.
func (m *Manager) RemoveNetwork(ctx context.Context, idOrName string) error {
	if err := m.client.Networks.Remove(ctx, idOrName); err != nil {
		return err
	}
	log.Info("network removed", "network", idOrName)
	return nil
}

// ConnectContainer attaches a container to a network.
func (m *Manager) ConnectContainer(ctx context.Context, network, container string) error {
	if err := m.client.Networks.Connect(ctx, network, container); err != nil {
		return err
	}
	log.Info("container connected to network", "container", container, "network", network)
	return nil
}

// DisconnectContainer detaches a container from a network.
func (m *Manager) DisconnectContainer(ctx context.Context, network, container string) error {
	if err := m.client.Networks.Disconnect(ctx, network, container, false); err != nil {
		return err
	}
	log.Info("container disconnected from network", "container", container, "network", network)
	return nil
}
