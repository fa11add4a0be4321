package dockapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/docker/go-connections/nat"
)

// Containers is the typed facade over the engine's container endpoints.
type Containers struct {
	client *Client
}

// PortMapping is one published port of a container.
type PortMapping struct {
	HostPort      string
	ContainerPort string
	Protocol      string
}

// Container is a read-only projection of the last-fetched server document.
// Commonly used keys are promoted to fields; everything else stays
// reachable through Attrs.
type Container struct {
	ID      string
	Name    string
	Status  string
	Image   string
	Labels  map[string]string
	Ports   []PortMapping
	Created string

	attrs map[string]any
	coll  *Containers
}

// newContainer derives the typed fields from either a list entry or an
// inspect document; the two shapes disagree on names, state and labels.
func newContainer(coll *Containers, attrs map[string]any) *Container {
	c := &Container{attrs: attrs, coll: coll, Labels: map[string]string{}}

	c.ID, _ = attrs["Id"].(string)

	if name, ok := attrs["Name"].(string); ok && name != "" {
		c.Name = trimSlash(name)
	} else if names, ok := attrs["Names"].([]any); ok && len(names) > 0 {
		if first, ok := names[0].(string); ok {
			c.Name = trimSlash(first)
		}
	}

	switch state := attrs["State"].(type) {
	case map[string]any:
		if s, ok := state["Status"].(string); ok && s != "" {
			c.Status = s
		}
	case string:
		c.Status = state
	}
	if c.Status == "" {
		if s, ok := attrs["Status"].(string); ok && s != "" {
			c.Status = s
		}
	}
	if c.Status == "" {
		c.Status = "unknown"
	}

	if img, ok := attrs["Image"].(string); ok && img != "" {
		c.Image = img
	} else if img, ok := attrs["ImageID"].(string); ok {
		c.Image = img
	}

	c.Labels = stringMap(attrs["Labels"])
	if len(c.Labels) == 0 {
		if cfg, ok := attrs["Config"].(map[string]any); ok {
			c.Labels = stringMap(cfg["Labels"])
		}
	}

	if created, ok := attrs["Created"].(string); ok {
		c.Created = created
	}

	if ports, ok := attrs["Ports"].([]any); ok {
		for _, p := range ports {
			entry, ok := p.(map[string]any)
			if !ok {
				continue
			}
			pm := PortMapping{Protocol: "tcp"}
			if t, ok := entry["Type"].(string); ok && t != "" {
				pm.Protocol = t
			}
			if private, ok := entry["PrivatePort"].(float64); ok {
				pm.ContainerPort = strconv.Itoa(int(private))
			}
			if public, ok := entry["PublicPort"].(float64); ok {
				pm.HostPort = strconv.Itoa(int(public))
			}
			c.Ports = append(c.Ports, pm)
		}
	}
	return c
}

// ShortID is the fixed 12-character prefix of the full ID.
func (c *Container) ShortID() string {
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}

// Attrs exposes the raw server document for keys not promoted to fields.
func (c *Container) Attrs() map[string]any {
	return c.attrs
}

func (c *Container) Start(ctx context.Context) error { return c.coll.Start(ctx, c.ID) }
func (c *Container) Stop(ctx context.Context, timeout int) error {
	return c.coll.Stop(ctx, c.ID, timeout)
}
func (c *Container) Restart(ctx context.Context, timeout int) error {
	return c.coll.Restart(ctx, c.ID, timeout)
}
func (c *Container) Kill(ctx context.Context, signal string) error {
	return c.coll.Kill(ctx, c.ID, signal)
}
func (c *Container) Remove(ctx context.Context, force, removeVolumes bool) error {
	return c.coll.Remove(ctx, c.ID, force, removeVolumes)
}
func (c *Container) ExecRun(ctx context.Context, opts ExecOptions) (*ExecResult, error) {
	return c.coll.ExecRun(ctx, c.ID, opts)
}
func (c *Container) Logs(ctx context.Context, opts LogsOptions) (string, error) {
	return c.coll.Logs(ctx, c.ID, opts)
}
func (c *Container) FollowLogs(ctx context.Context, opts LogsOptions) (*LogStream, error) {
	return c.coll.FollowLogs(ctx, c.ID, opts)
}
func (c *Container) PutArchive(ctx context.Context, path string, data []byte) error {
	return c.coll.PutArchive(ctx, c.ID, path, data)
}
func (c *Container) GetArchive(ctx context.Context, path string) ([]byte, error) {
	return c.coll.GetArchive(ctx, c.ID, path)
}

// ListOptions filters a container listing.
type ListOptions struct {
	All     bool
	Limit   int
	Filters map[string][]string
}

// List returns containers, running ones only unless All is set.
func (cs *Containers) List(ctx context.Context, opts ListOptions) ([]*Container, error) {
	q := url.Values{}
	queryBool(q, "all", opts.All)
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if len(opts.Filters) > 0 {
		if err := queryJSON(q, "filters", opts.Filters); err != nil {
			return nil, err
		}
	}

	resp, err := cs.client.do(ctx, apiRequest{method: http.MethodGet, path: "/containers/json", query: q})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	var docs []map[string]any
	if err := resp.decode(&docs); err != nil {
		return nil, err
	}

	containers := make([]*Container, 0, len(docs))
	for _, doc := range docs {
		containers = append(containers, newContainer(cs, doc))
	}
	return containers, nil
}

// Get inspects a container by ID or name. Absence yields a NotFoundError.
func (cs *Containers) Get(ctx context.Context, idOrName string) (*Container, error) {
	resp, err := cs.client.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/containers/" + idOrName + "/json",
	})
	if err != nil {
		return nil, notFoundOr(err, "container", idOrName)
	}
	var doc map[string]any
	if err := resp.decode(&doc); err != nil {
		return nil, err
	}
	return newContainer(cs, doc), nil
}

// VolumeBinding describes one host-path mount.
type VolumeBinding struct {
	Bind string // path inside the container
	Mode string // "rw" (default) or "ro"
}

// CreateOptions configures container creation. Command and Cmd are
// alternatives: Command is a shell string wrapped as ["sh", "-c", ...],
// Cmd is passed through unchanged.
type CreateOptions struct {
	Image       string
	Name        string
	Command     string
	Cmd         []string
	Env         map[string]string
	Volumes     map[string]VolumeBinding // host path -> binding
	Ports       map[int]int              // container port -> host port, tcp
	NetworkMode string
	Hostname    string
	Labels      map[string]string
	AutoRemove  bool
	TTY         bool
	OpenStdin   bool
	Platform    string
}

// Create creates a container (not yet running) and returns its re-fetched
// projection.
func (cs *Containers) Create(ctx context.Context, opts CreateOptions) (*Container, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("image is required")
	}

	config := map[string]any{
		"Image":        opts.Image,
		"Tty":          opts.TTY,
		"OpenStdin":    opts.OpenStdin,
		"StdinOnce":    false,
		"AttachStdin":  opts.OpenStdin,
		"AttachStdout": true,
		"AttachStderr": true,
	}
	if opts.Command != "" {
		config["Cmd"] = []string{"sh", "-c", opts.Command}
	} else if len(opts.Cmd) > 0 {
		config["Cmd"] = opts.Cmd
	}
	if len(opts.Env) > 0 {
		config["Env"] = envList(opts.Env)
	}
	if opts.Hostname != "" {
		config["Hostname"] = opts.Hostname
	}
	if len(opts.Labels) > 0 {
		config["Labels"] = opts.Labels
	}

	hostConfig := map[string]any{}
	if opts.AutoRemove {
		hostConfig["AutoRemove"] = true
	}
	if opts.NetworkMode != "" {
		hostConfig["NetworkMode"] = opts.NetworkMode
	}
	if len(opts.Volumes) > 0 {
		hostConfig["Binds"] = bindStrings(opts.Volumes)
	}
	if len(opts.Ports) > 0 {
		exposed, bindings := portMaps(opts.Ports)
		config["ExposedPorts"] = exposed
		hostConfig["PortBindings"] = bindings
	}
	if len(hostConfig) > 0 {
		config["HostConfig"] = hostConfig
	}

	q := url.Values{}
	if opts.Name != "" {
		q.Set("name", opts.Name)
	}
	if opts.Platform != "" {
		q.Set("platform", opts.Platform)
	}

	resp, err := cs.client.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/containers/create",
		query:  q,
		body:   config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	var created struct {
		ID string `json:"Id"`
	}
	if err := resp.decode(&created); err != nil {
		return nil, err
	}
	return cs.Get(ctx, created.ID)
}

// Run creates a container and starts it.
func (cs *Containers) Run(ctx context.Context, opts CreateOptions) (*Container, error) {
	container, err := cs.Create(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := container.Start(ctx); err != nil {
		return nil, err
	}
	return container, nil
}

// Start starts a created or stopped container.
func (cs *Containers) Start(ctx context.Context, id string) error {
	_, err := cs.client.do(ctx, apiRequest{method: http.MethodPost, path: "/containers/" + id + "/start"})
	if err != nil {
		return fmt.Errorf("failed to start container %s: %w", id, notFoundOr(err, "container", id))
	}
	return nil
}

// Stop stops a container, giving it timeout seconds before the kill.
func (cs *Containers) Stop(ctx context.Context, id string, timeout int) error {
	q := url.Values{}
	q.Set("t", strconv.Itoa(timeout))
	_, err := cs.client.do(ctx, apiRequest{method: http.MethodPost, path: "/containers/" + id + "/stop", query: q})
	if err != nil {
		return fmt.Errorf("failed to stop container %s: %w", id, notFoundOr(err, "container", id))
	}
	return nil
}

// Restart stops then starts a container.
func (cs *Containers) Restart(ctx context.Context, id string, timeout int) error {
	q := url.Values{}
	q.Set("t", strconv.Itoa(timeout))
	_, err := cs.client.do(ctx, apiRequest{method: http.MethodPost, path: "/containers/" + id + "/restart", query: q})
	if err != nil {
		return fmt.Errorf("failed to restart container %s: %w", id, notFoundOr(err, "container", id))
	}
	return nil
}

// Kill sends a signal (default SIGKILL) to a running container.
func (cs *Containers) Kill(ctx context.Context, id string, signal string) error {
	if signal == "" {
		signal = "SIGKILL"
	}
	q := url.Values{}
	q.Set("signal", signal)
	_, err := cs.client.do(ctx, apiRequest{method: http.MethodPost, path: "/containers/" + id + "/kill", query: q})
	if err != nil {
		return fmt.Errorf("failed to kill container %s: %w", id, notFoundOr(err, "container", id))
	}
	return nil
}

// Remove deletes a container. Any further operation on the same handle
// fails with not-found afterwards.
func (cs *Containers) Remove(ctx context.Context, id string, force, removeVolumes bool) error {
	q := url.Values{}
	queryBool(q, "force", force)
	queryBool(q, "v", removeVolumes)
	_, err := cs.client.do(ctx, apiRequest{method: http.MethodDelete, path: "/containers/" + id, query: q})
	if err != nil {
		return fmt.Errorf("failed to remove container %s: %w", id, notFoundOr(err, "container", id))
	}
	return nil
}

// ExecOptions configures a command execution inside a running container.
// Command is a shell string wrapped as ["sh", "-c", ...]; Cmd is passed
// through unchanged.
type ExecOptions struct {
	Cmd        []string
	Command    string
	User       string
	WorkDir    string
	Env        map[string]string
	TTY        bool
	Privileged bool
	Detach     bool
}

// ExecResult carries the demuxed output of a finished exec.
type ExecResult struct {
	Stdout string
	Stderr string
}

// ExecRun creates an exec instance and starts it, hiding the two engine
// calls behind one logical operation. Non-TTY output arrives multiplexed
// and is demuxed into stdout/stderr.
func (cs *Containers) ExecRun(ctx context.Context, id string, opts ExecOptions) (*ExecResult, error) {
	cmd := opts.Cmd
	if opts.Command != "" {
		cmd = []string{"sh", "-c", opts.Command}
	}
	if len(cmd) == 0 {
		return nil, fmt.Errorf("exec command is empty")
	}

	execConfig := map[string]any{
		"AttachStdout": true,
		"AttachStderr": true,
		"AttachStdin":  false,
		"Tty":          opts.TTY,
		"Privileged":   opts.Privileged,
		"Cmd":          cmd,
	}
	if opts.User != "" {
		execConfig["User"] = opts.User
	}
	if len(opts.Env) > 0 {
		execConfig["Env"] = envList(opts.Env)
	}
	if opts.WorkDir != "" {
		execConfig["WorkingDir"] = opts.WorkDir
	}

	resp, err := cs.client.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/containers/" + id + "/exec",
		body:   execConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec in container %s: %w", id, notFoundOr(err, "container", id))
	}
	var created struct {
		ID string `json:"Id"`
	}
	if err := resp.decode(&created); err != nil {
		return nil, err
	}

	startResp, err := cs.client.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/exec/" + created.ID + "/start",
		body:   map[string]any{"Detach": opts.Detach, "Tty": opts.TTY},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start exec in container %s: %w", id, err)
	}
	if opts.Detach {
		return &ExecResult{}, nil
	}
	if opts.TTY {
		return &ExecResult{Stdout: startResp.text()}, nil
	}

	stdout, stderr, err := demuxStream(bytes.NewReader(startResp.body))
	if err != nil {
		return nil, err
	}
	return &ExecResult{Stdout: string(stdout), Stderr: string(stderr)}, nil
}

// LogsOptions selects which log lines to fetch. The zero value means
// stdout+stderr with the full tail.
type LogsOptions struct {
	Stdout     bool
	Stderr     bool
	Timestamps bool
	Tail       string // line count, or "all"
	Since      int64  // unix timestamp
}

func (o LogsOptions) query(follow bool) url.Values {
	stdout, stderr := o.Stdout, o.Stderr
	if !stdout && !stderr {
		stdout, stderr = true, true
	}
	tail := o.Tail
	if tail == "" {
		tail = "all"
	}
	q := url.Values{}
	queryBool(q, "stdout", stdout)
	queryBool(q, "stderr", stderr)
	queryBool(q, "timestamps", o.Timestamps)
	queryBool(q, "follow", follow)
	q.Set("tail", tail)
	if o.Since > 0 {
		q.Set("since", strconv.FormatInt(o.Since, 10))
	}
	return q
}

// Logs fetches logs as one buffered string.
func (cs *Containers) Logs(ctx context.Context, id string, opts LogsOptions) (string, error) {
	resp, err := cs.client.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/containers/" + id + "/logs",
		query:  opts.query(false),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get logs for container %s: %w", id, notFoundOr(err, "container", id))
	}
	return resp.text(), nil
}

// FollowLogs returns a live log stream. The server blocks indefinitely
// when no new data arrives; callers needing bounded waits must drive
// their own read timeout and close the stream to cancel.
func (cs *Containers) FollowLogs(ctx context.Context, id string, opts LogsOptions) (*LogStream, error) {
	rc, err := cs.client.doStream(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/containers/" + id + "/logs",
		query:  opts.query(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to follow logs for container %s: %w", id, notFoundOr(err, "container", id))
	}
	return newLogStream(rc), nil
}

// PutArchive uploads a tar archive and extracts it at path inside the
// container.
func (cs *Containers) PutArchive(ctx context.Context, id string, path string, data []byte) error {
	q := url.Values{}
	q.Set("path", path)
	_, err := cs.client.do(ctx, apiRequest{
		method:  http.MethodPut,
		path:    "/containers/" + id + "/archive",
		query:   q,
		rawBody: data,
		headers: map[string]string{"Content-Type": "application/x-tar"},
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive to container %s: %w", id, notFoundOr(err, "container", id))
	}
	return nil
}

// GetArchive downloads path from the container as a tar archive.
func (cs *Containers) GetArchive(ctx context.Context, id string, path string) ([]byte, error) {
	q := url.Values{}
	q.Set("path", path)
	resp, err := cs.client.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/containers/" + id + "/archive",
		query:  q,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download archive from container %s: %w", id, notFoundOr(err, "container", id))
	}
	return resp.body, nil
}

// bindStrings renders the structured volume map into the engine's
// "host:container:mode" form, sorted for a stable request body.
func bindStrings(volumes map[string]VolumeBinding) []string {
	binds := make([]string, 0, len(volumes))
	for hostPath, binding := range volumes {
		mode := binding.Mode
		if mode == "" {
			mode = "rw"
		}
		binds = append(binds, fmt.Sprintf("%s:%s:%s", hostPath, binding.Bind, mode))
	}
	sort.Strings(binds)
	return binds
}

// portMaps renders the port map into the paired ExposedPorts/PortBindings
// structures.
func portMaps(ports map[int]int) (nat.PortSet, nat.PortMap) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for containerPort, hostPort := range ports {
		port := nat.Port(fmt.Sprintf("%d/tcp", containerPort))
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostPort: strconv.Itoa(hostPort)}}
	}
	return exposed, bindings
}

func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}

func stringMap(v any) map[string]string {
	out := map[string]string{}
	raw, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

func trimSlash(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}
