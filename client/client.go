// Package client is a typed SDK for the voicemesh status surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voicemesh/pkg/cluster"
	"voicemesh/pkg/identity"
)

// Client talks to a voicemesh node's HTTP surface.
type Client struct {
	base string
	http *http.Client
}

// Options control Client behavior.
type Options struct {
	// Timeout bounds each request (default 5s).
	Timeout time.Duration
}

// New returns a client for the voicemesh server at address (host:port).
func New(address string, opts *Options) *Client {
	timeout := 5 * time.Second
	if opts != nil && opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	return &Client{
		base: "http://" + address,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ClusterStatus fetches the cluster status snapshot.
func (c *Client) ClusterStatus(ctx context.Context) (cluster.Status, error) {
	var status cluster.Status
	err := c.do(ctx, http.MethodGet, "/cluster/status", nil, &status)
	return status, err
}

// ClusterIdentity fetches the identity snapshot.
func (c *Client) ClusterIdentity(ctx context.Context) (identity.Identity, error) {
	var id identity.Identity
	err := c.do(ctx, http.MethodGet, "/cluster/identity", nil, &id)
	return id, err
}

// RegisterNode registers a peer in the target node's membership view.
func (c *Client) RegisterNode(ctx context.Context, nodeID, address string, port int) error {
	body := map[string]any{"node_id": nodeID, "address": address, "port": port}
	return c.do(ctx, http.MethodPost, "/cluster/nodes", body, nil)
}

// RemoveNode evicts a node from the target node's membership view.
func (c *Client) RemoveNode(ctx context.Context, nodeID string) error {
	return c.do(ctx, http.MethodDelete, "/cluster/nodes/"+nodeID, nil, nil)
}

// Allocate assigns a unit of work; an empty nodeID lets the server pick the
// least loaded node. Returns the chosen node id.
func (c *Client) Allocate(ctx context.Context, nodeID string) (string, error) {
	var resp struct {
		NodeID string `json:"node_id"`
	}
	body := map[string]string{"node_id": nodeID}
	if err := c.do(ctx, http.MethodPost, "/requests", body, &resp); err != nil {
		return "", err
	}
	return resp.NodeID, nil
}

// Release returns a previously allocated unit of work.
func (c *Client) Release(ctx context.Context, nodeID string) error {
	return c.do(ctx, http.MethodDelete, "/requests/"+nodeID, nil, nil)
}

// VerifyIdentity checks a candidate identity key against the cluster digest.
func (c *Client) VerifyIdentity(ctx context.Context, key string) (bool, error) {
	var resp struct {
		Valid bool `json:"valid"`
	}
	body := map[string]string{"identity_key": key}
	if err := c.do(ctx, http.MethodPost, "/identity/verify", body, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}
