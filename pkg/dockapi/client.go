// Package dockapi is a client for the container engine's remote API over
// a local Unix domain socket. It speaks plain HTTP/1.1 against the socket
// and depends on no engine SDK.
package dockapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// apiHost is the dummy authority used in request URLs; the transport
// ignores it and dials the socket.
const apiHost = "docker"

// DefaultTimeout bounds buffered (non-streaming) requests.
const DefaultTimeout = 60 * time.Second

// Options configures a Client. A zero SocketPath triggers auto-detection.
type Options struct {
	SocketPath string
	Timeout    time.Duration
}

// Client talks to the engine daemon. It is stateless beyond its
// configuration: every operation opens a fresh connection, so a single
// Client is safe for concurrent use.
type Client struct {
	socketPath string
	timeout    time.Duration
	http       *http.Client

	Containers *Containers
	Images     *Images
	Networks   *Networks
}

// New creates a Client. A socket path that does not exist is a fatal
// configuration error here, not at request time.
func New(opts Options) (*Client, error) {
	socketPath := opts.SocketPath
	if socketPath == "" {
		detected, err := DetectSocket()
		if err != nil {
			return nil, err
		}
		socketPath = detected
	} else {
		socketPath = strings.TrimPrefix(socketPath, "unix://")
		if _, err := os.Stat(socketPath); err != nil {
			return nil, fmt.Errorf("engine socket not found: %s", socketPath)
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		socketPath: socketPath,
		timeout:    timeout,
		http:       &http.Client{Transport: newUnixTransport(socketPath)},
	}
	c.Containers = &Containers{client: c}
	c.Images = &Images{client: c}
	c.Networks = &Networks{client: c}

	log.Debug("engine client initialized", "socket", socketPath, "timeout", timeout)
	return c, nil
}

// DetectSocket resolves the engine socket path: DOCKER_HOST (unix:// form
// only), then the user-scoped sockets, then the system-wide default. The
// first existing path wins.
func DetectSocket() (string, error) {
	var candidates []string

	if host := os.Getenv("DOCKER_HOST"); strings.HasPrefix(host, "unix://") {
		candidates = append(candidates, strings.TrimPrefix(host, "unix://"))
	}
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		candidates = append(candidates, filepath.Join(runtimeDir, "docker.sock"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".docker", "run", "docker.sock"))
	}
	candidates = append(candidates, "/var/run/docker.sock")

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no engine socket found (tried %s)", strings.Join(candidates, ", "))
}

// SocketPath returns the resolved socket path.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Ping checks daemon liveness.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, apiRequest{method: http.MethodGet, path: "/_ping"})
	if err != nil {
		return fmt.Errorf("failed to ping engine: %w", err)
	}
	return nil
}

// VersionInfo is the daemon's version document.
type VersionInfo struct {
	Version       string `json:"Version"`
	APIVersion    string `json:"ApiVersion"`
	MinAPIVersion string `json:"MinAPIVersion"`
	GitCommit     string `json:"GitCommit"`
	GoVersion     string `json:"GoVersion"`
	Os            string `json:"Os"`
	Arch          string `json:"Arch"`
}

// Version returns the daemon's version info.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	resp, err := c.do(ctx, apiRequest{method: http.MethodGet, path: "/version"})
	if err != nil {
		return nil, fmt.Errorf("failed to get engine version: %w", err)
	}
	var v VersionInfo
	if err := resp.decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Info returns the daemon's system info as a raw document.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	resp, err := c.do(ctx, apiRequest{method: http.MethodGet, path: "/info"})
	if err != nil {
		return nil, fmt.Errorf("failed to get engine info: %w", err)
	}
	var info map[string]any
	if err := resp.decode(&info); err != nil {
		return nil, err
	}
	return info, nil
}
