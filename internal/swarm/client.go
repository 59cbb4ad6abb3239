package swarm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// ErrNotSwarmManager indicates the daemon is not an active swarm manager.
var ErrNotSwarmManager = errors.New("docker daemon is not an active swarm manager")

// Client wraps the Docker SDK client with the swarm operations used by the
// installer and the secret broker.
type Client struct {
	api SwarmAPI
}

// NewClient creates a Docker client from the environment.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Client{api: cli}, nil
}

// NewClientWithAPI creates a client with a custom API implementation,
// primarily for tests.
func NewClientWithAPI(api SwarmAPI) *Client {
	return &Client{api: api}
}

// API returns the underlying Docker API.
func (c *Client) API() SwarmAPI {
	return c.api
}

// Close closes the client connection.
func (c *Client) Close() error {
	if c.api != nil {
		return c.api.Close()
	}
	return nil
}

// CheckSwarmActive verifies that the daemon participates in an active swarm
// as a manager. Call this once during setup; swarm operations against a
// plain daemon fail with confusing API errors otherwise.
func (c *Client) CheckSwarmActive(ctx context.Context) error {
	info, err := c.api.Info(ctx)
	if err != nil {
		return fmt.Errorf("docker info: %w", err)
	}
	if info.Swarm.LocalNodeState != swarm.LocalNodeStateActive || !info.Swarm.ControlAvailable {
		return ErrNotSwarmManager
	}
	return nil
}

// FindSecret returns the secret with the exact given name, or false.
func (c *Client) FindSecret(ctx context.Context, name string) (*swarm.Secret, bool, error) {
	secrets, err := c.api.SecretList(ctx, swarm.SecretListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return nil, false, fmt.Errorf("list secrets: %w", err)
	}
	// The name filter matches prefixes, so compare exactly.
	for i := range secrets {
		if secrets[i].Spec.Name == name {
			return &secrets[i], true, nil
		}
	}
	return nil, false, nil
}

// CreateSecret creates a named secret with optional labels. Returns
// errdefs-conflict errors unchanged so callers can treat racing creates as
// success-via-existing-value.
func (c *Client) CreateSecret(ctx context.Context, name string, data []byte, labels map[string]string) error {
	_, err := c.api.SecretCreate(ctx, swarm.SecretSpec{
		Annotations: swarm.Annotations{Name: name, Labels: labels},
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("create secret %s: %w", name, err)
	}
	return nil
}

// IsConflict reports whether err is the store's name-already-exists error.
func IsConflict(err error) bool {
	return errdefs.IsConflict(err)
}

// HasConfig reports whether a config with the exact given name exists.
func (c *Client) HasConfig(ctx context.Context, name string) (bool, error) {
	configs, err := c.api.ConfigList(ctx, swarm.ConfigListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return false, fmt.Errorf("list configs: %w", err)
	}
	for _, cfg := range configs {
		if cfg.Spec.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// CreateConfigFromFile creates a named config from a file's contents.
func (c *Client) CreateConfigFromFile(ctx context.Context, name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	_, err = c.api.ConfigCreate(ctx, swarm.ConfigSpec{
		Annotations: swarm.Annotations{Name: name},
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("create config %s: %w", name, err)
	}
	return nil
}

// EnsureNetwork creates an attachable overlay network with the given name
// unless one already exists.
func (c *Client) EnsureNetwork(ctx context.Context, name string) error {
	networks, err := c.api.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return fmt.Errorf("list networks: %w", err)
	}
	for _, net := range networks {
		if net.Name == name {
			return nil
		}
	}

	_, err = c.api.NetworkCreate(ctx, name, network.CreateOptions{
		Driver:     "overlay",
		Attachable: true,
	})
	if err != nil {
		return fmt.Errorf("create network %s: %w", name, err)
	}
	return nil
}
