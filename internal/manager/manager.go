// Package manager is the plain-data facade consumed by presentation
// layers: structs in, structs out, no protocol handles.
package manager

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"dockhand/internal/config"
	"dockhand/pkg/dockapi"
	"dockhand/pkg/logger"
)

// Manager wraps the engine client behind operations that accept and
// return plain data only.
type Manager struct {
	client *dockapi.Client
	cfg    *config.Config
}

// New builds the engine client from cfg and verifies the daemon is
// reachable. An unreachable daemon is fatal to the caller.
func New(ctx context.Context, cfg *config.Config) (*Manager, error) {
	logger.Get().SetLevelString(cfg.LogLevel)
	logger.Get().ConfigureFromEnv()

	client, err := dockapi.New(dockapi.Options{
		SocketPath: cfg.SocketPath,
		Timeout:    cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	m := &Manager{client: client, cfg: cfg}
	version, err := client.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to engine daemon: %w", err)
	}
	log.Info("engine connected", "server", version.Version, "api", version.APIVersion)
	return m, nil
}

// NewWithClient wires a pre-built client (for testing).
func NewWithClient(client *dockapi.Client, cfg *config.Config) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Manager{client: client, cfg: cfg}
}

// VersionInfo is the engine version as shown to the presentation layer.
type VersionInfo struct {
	Server string
	API    string
	Os     string
	Arch   string
}

// EngineVersion reports the daemon version.
func (m *Manager) EngineVersion(ctx context.Context) (*VersionInfo, error) {
	v, err := m.client.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get engine version: %w", err)
	}
	return &VersionInfo{Server: v.Version, API: v.APIVersion, Os: v.Os, Arch: v.Arch}, nil
}
