package dockapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Networks is the typed facade over the engine's network endpoints.
type Networks struct {
	client *Client
}

// Network is a read-only projection of an engine network document.
type Network struct {
	ID     string
	Name   string
	Driver string
	Scope  string

	attrs map[string]any
	coll  *Networks
}

func newNetwork(coll *Networks, attrs map[string]any) *Network {
	n := &Network{attrs: attrs, coll: coll}
	n.ID, _ = attrs["Id"].(string)
	n.Name, _ = attrs["Name"].(string)
	if driver, ok := attrs["Driver"].(string); ok && driver != "" {
		n.Driver = driver
	} else {
		n.Driver = "unknown"
	}
	if scope, ok := attrs["Scope"].(string); ok && scope != "" {
		n.Scope = scope
	} else {
		n.Scope = "local"
	}
	return n
}

// ShortID is the fixed 12-character prefix of the full ID.
func (n *Network) ShortID() string {
	if len(n.ID) > 12 {
		return n.ID[:12]
	}
	return n.ID
}

// Attrs exposes the raw server document.
func (n *Network) Attrs() map[string]any {
	return n.attrs
}

// ContainerCount returns how many containers are currently attached.
func (n *Network) ContainerCount() int {
	containers, ok := n.attrs["Containers"].(map[string]any)
	if !ok {
		return 0
	}
	return len(containers)
}

// Remove deletes this network.
func (n *Network) Remove(ctx context.Context) error {
	return n.coll.removeByID(ctx, n.ID)
}

// List returns the daemon's networks.
func (ns *Networks) List(ctx context.Context, filters map[string][]string) ([]*Network, error) {
	q := url.Values{}
	if len(filters) > 0 {
		if err := queryJSON(q, "filters", filters); err != nil {
			return nil, err
		}
	}

	resp, err := ns.client.do(ctx, apiRequest{method: http.MethodGet, path: "/networks", query: q})
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}
	var docs []map[string]any
	if err := resp.decode(&docs); err != nil {
		return nil, err
	}

	networks := make([]*Network, 0, len(docs))
	for _, doc := range docs {
		networks = append(networks, newNetwork(ns, doc))
	}
	return networks, nil
}

// Get inspects a network by ID or name. Absence yields a NotFoundError.
func (ns *Networks) Get(ctx context.Context, idOrName string) (*Network, error) {
	resp, err := ns.client.do(ctx, apiRequest{method: http.MethodGet, path: "/networks/" + idOrName})
	if err != nil {
		return nil, notFoundOr(err, "network", idOrName)
	}
	var doc map[string]any
	if err := resp.decode(&doc); err != nil {
		return nil, err
	}
	return newNetwork(ns, doc), nil
}

// CreateNetworkOptions configures network creation. The zero value of
// Driver means "bridge"; Attachable defaults to true via Create.
type CreateNetworkOptions struct {
	Driver     string
	Internal   bool
	Attachable *bool
	Options    map[string]string
	Labels     map[string]string
	IPAM       map[string]any
}

// Create creates a network and returns its inspected projection.
func (ns *Networks) Create(ctx context.Context, name string, opts CreateNetworkOptions) (*Network, error) {
	driver := opts.Driver
	if driver == "" {
		driver = "bridge"
	}
	attachable := true
	if opts.Attachable != nil {
		attachable = *opts.Attachable
	}

	body := map[string]any{
		"Name":           name,
		"Driver":         driver,
		"Internal":       opts.Internal,
		"Attachable":     attachable,
		"CheckDuplicate": true,
	}
	if len(opts.Options) > 0 {
		body["Options"] = opts.Options
	}
	if len(opts.Labels) > 0 {
		body["Labels"] = opts.Labels
	}
	if len(opts.IPAM) > 0 {
		body["IPAM"] = opts.IPAM
	}

	resp, err := ns.client.do(ctx, apiRequest{method: http.MethodPost, path: "/networks/create", body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to create network %s: %w", name, err)
	}
	var created struct {
		ID string `json:"Id"`
	}
	if err := resp.decode(&created); err != nil {
		return nil, err
	}
	return ns.Get(ctx, created.ID)
}

// Remove resolves a network by ID or name and deletes it.
func (ns *Networks) Remove(ctx context.Context, idOrName string) error {
	network, err := ns.Get(ctx, idOrName)
	if err != nil {
		return err
	}
	return network.Remove(ctx)
}

func (ns *Networks) removeByID(ctx context.Context, id string) error {
	_, err := ns.client.do(ctx, apiRequest{method: http.MethodDelete, path: "/networks/" + id})
	if err != nil {
		return fmt.Errorf("failed to remove network %s: %w", id, notFoundOr(err, "network", id))
	}
	return nil
}

// Connect attaches a container to this network by name or ID.
func (ns *Networks) Connect(ctx context.Context, network, container string) error {
	_, err := ns.client.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/networks/" + network + "/connect",
		body:   map[string]any{"Container": container},
	})
	if err != nil {
		return fmt.Errorf("failed to connect %s to network %s: %w", container, network, notFoundOr(err, "network", network))
	}
	return nil
}

// Disconnect detaches a container from this network.
func (ns *Networks) Disconnect(ctx context.Context, network, container string, force bool) error {
	_, err := ns.client.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/networks/" + network + "/disconnect",
		body:   map[string]any{"Container": container, "Force": force},
	})
	if err != nil {
		return fmt.Errorf("failed to disconnect %s from network %s: %w", container, network, notFoundOr(err, "network", network))
	}
	return nil
}

// PruneResult reports what a prune deleted.
type PruneResult struct {
	NetworksDeleted []string `json:"NetworksDeleted"`
}

// Prune removes unused networks.
func (ns *Networks) Prune(ctx context.Context, filters map[string][]string) (*PruneResult, error) {
	q := url.Values{}
	if len(filters) > 0 {
		if err := queryJSON(q, "filters", filters); err != nil {
			return nil, err
		}
	}
	resp, err := ns.client.do(ctx, apiRequest{method: http.MethodPost, path: "/networks/prune", query: q})
	if err != nil {
		return nil, fmt.Errorf("failed to prune networks: %w", err)
	}
	var result PruneResult
	if err := resp.decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
