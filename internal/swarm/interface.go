// Package swarm provides the Docker Swarm client and the cluster-side
// operations used during a deployment: secrets, configs, networks, stack
// submission, and workload health waits.
package swarm

import (
	"context"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/client"
)

// SwarmAPI defines the Docker client operations this project depends on.
// The interface enables mocking for unit tests without a running daemon.
type SwarmAPI interface {
	// Info returns system-wide information about the Docker daemon.
	Info(ctx context.Context) (system.Info, error)

	// SecretList returns secrets matching the options.
	SecretList(ctx context.Context, options swarm.SecretListOptions) ([]swarm.Secret, error)

	// SecretCreate creates a new secret.
	SecretCreate(ctx context.Context, secret swarm.SecretSpec) (swarm.SecretCreateResponse, error)

	// ConfigList returns configs matching the options.
	ConfigList(ctx context.Context, options swarm.ConfigListOptions) ([]swarm.Config, error)

	// ConfigCreate creates a new config.
	ConfigCreate(ctx context.Context, config swarm.ConfigSpec) (swarm.ConfigCreateResponse, error)

	// NetworkList returns networks matching the options.
	NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error)

	// NetworkCreate creates a new network.
	NetworkCreate(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error)

	// ServiceCreate creates a new swarm service.
	ServiceCreate(ctx context.Context, service swarm.ServiceSpec, options swarm.ServiceCreateOptions) (swarm.ServiceCreateResponse, error)

	// ServiceInspectWithRaw returns detailed information about a service.
	ServiceInspectWithRaw(ctx context.Context, serviceID string, options swarm.ServiceInspectOptions) (swarm.Service, []byte, error)

	// ServiceList returns services matching the options.
	ServiceList(ctx context.Context, options swarm.ServiceListOptions) ([]swarm.Service, error)

	// ServiceRemove removes a swarm service.
	ServiceRemove(ctx context.Context, serviceID string) error

	// TaskList returns tasks matching the options.
	TaskList(ctx context.Context, options swarm.TaskListOptions) ([]swarm.Task, error)

	// Close closes the client connection.
	Close() error
}

// Compile-time verification that the Docker SDK client satisfies SwarmAPI.
var _ SwarmAPI = (*client.Client)(nil)
