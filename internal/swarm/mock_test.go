package swarm

import (
	"context"
	"errors"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/api/types/system"
)

var (
	errMockList   = errors.New("mock: list failed")
	errMockCreate = errors.New("mock: create failed")
)

// MockSwarmAPI implements SwarmAPI for tests. Each method delegates to its
// Func field when set and counts calls.
type MockSwarmAPI struct {
	InfoFunc                  func(ctx context.Context) (system.Info, error)
	SecretListFunc            func(ctx context.Context, options swarm.SecretListOptions) ([]swarm.Secret, error)
	SecretCreateFunc          func(ctx context.Context, secret swarm.SecretSpec) (swarm.SecretCreateResponse, error)
	ConfigListFunc            func(ctx context.Context, options swarm.ConfigListOptions) ([]swarm.Config, error)
	ConfigCreateFunc          func(ctx context.Context, config swarm.ConfigSpec) (swarm.ConfigCreateResponse, error)
	NetworkListFunc           func(ctx context.Context, options network.ListOptions) ([]network.Summary, error)
	NetworkCreateFunc         func(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error)
	ServiceCreateFunc         func(ctx context.Context, service swarm.ServiceSpec, options swarm.ServiceCreateOptions) (swarm.ServiceCreateResponse, error)
	ServiceInspectWithRawFunc func(ctx context.Context, serviceID string, options swarm.ServiceInspectOptions) (swarm.Service, []byte, error)
	ServiceListFunc           func(ctx context.Context, options swarm.ServiceListOptions) ([]swarm.Service, error)
	ServiceRemoveFunc         func(ctx context.Context, serviceID string) error
	TaskListFunc              func(ctx context.Context, options swarm.TaskListOptions) ([]swarm.Task, error)
	CloseFunc                 func() error

	InfoCalls                  int
	SecretListCalls            int
	SecretCreateCalls          int
	ConfigListCalls            int
	ConfigCreateCalls          int
	NetworkListCalls           int
	NetworkCreateCalls         int
	ServiceCreateCalls         int
	ServiceInspectWithRawCalls int
	ServiceListCalls           int
	ServiceRemoveCalls         int
	TaskListCalls              int
	CloseCalls                 int
}

func (m *MockSwarmAPI) Info(ctx context.Context) (system.Info, error) {
	m.InfoCalls++
	if m.InfoFunc != nil {
		return m.InfoFunc(ctx)
	}
	return system.Info{}, nil
}

func (m *MockSwarmAPI) SecretList(ctx context.Context, options swarm.SecretListOptions) ([]swarm.Secret, error) {
	m.SecretListCalls++
	if m.SecretListFunc != nil {
		return m.SecretListFunc(ctx, options)
	}
	return nil, nil
}

func (m *MockSwarmAPI) SecretCreate(ctx context.Context, secret swarm.SecretSpec) (swarm.SecretCreateResponse, error) {
	m.SecretCreateCalls++
	if m.SecretCreateFunc != nil {
		return m.SecretCreateFunc(ctx, secret)
	}
	return swarm.SecretCreateResponse{ID: "mock-secret-id"}, nil
}

func (m *MockSwarmAPI) ConfigList(ctx context.Context, options swarm.ConfigListOptions) ([]swarm.Config, error) {
	m.ConfigListCalls++
	if m.ConfigListFunc != nil {
		return m.ConfigListFunc(ctx, options)
	}
	return nil, nil
}

func (m *MockSwarmAPI) ConfigCreate(ctx context.Context, config swarm.ConfigSpec) (swarm.ConfigCreateResponse, error) {
	m.ConfigCreateCalls++
	if m.ConfigCreateFunc != nil {
		return m.ConfigCreateFunc(ctx, config)
	}
	return swarm.ConfigCreateResponse{ID: "mock-config-id"}, nil
}

func (m *MockSwarmAPI) NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error) {
	m.NetworkListCalls++
	if m.NetworkListFunc != nil {
		return m.NetworkListFunc(ctx, options)
	}
	return nil, nil
}

func (m *MockSwarmAPI) NetworkCreate(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error) {
	m.NetworkCreateCalls++
	if m.NetworkCreateFunc != nil {
		return m.NetworkCreateFunc(ctx, name, options)
	}
	return network.CreateResponse{ID: "mock-network-id"}, nil
}

func (m *MockSwarmAPI) ServiceCreate(ctx context.Context, service swarm.ServiceSpec, options swarm.ServiceCreateOptions) (swarm.ServiceCreateResponse, error) {
	m.ServiceCreateCalls++
	if m.ServiceCreateFunc != nil {
		return m.ServiceCreateFunc(ctx, service, options)
	}
	return swarm.ServiceCreateResponse{ID: "mock-service-id"}, nil
}

func (m *MockSwarmAPI) ServiceInspectWithRaw(ctx context.Context, serviceID string, options swarm.ServiceInspectOptions) (swarm.Service, []byte, error) {
	m.ServiceInspectWithRawCalls++
	if m.ServiceInspectWithRawFunc != nil {
		return m.ServiceInspectWithRawFunc(ctx, serviceID, options)
	}
	return swarm.Service{}, nil, nil
}

func (m *MockSwarmAPI) ServiceList(ctx context.Context, options swarm.ServiceListOptions) ([]swarm.Service, error) {
	m.ServiceListCalls++
	if m.ServiceListFunc != nil {
		return m.ServiceListFunc(ctx, options)
	}
	return nil, nil
}

func (m *MockSwarmAPI) ServiceRemove(ctx context.Context, serviceID string) error {
	m.ServiceRemoveCalls++
	if m.ServiceRemoveFunc != nil {
		return m.ServiceRemoveFunc(ctx, serviceID)
	}
	return nil
}

func (m *MockSwarmAPI) TaskList(ctx context.Context, options swarm.TaskListOptions) ([]swarm.Task, error) {
	m.TaskListCalls++
	if m.TaskListFunc != nil {
		return m.TaskListFunc(ctx, options)
	}
	return nil, nil
}

func (m *MockSwarmAPI) Close() error {
	m.CloseCalls++
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
