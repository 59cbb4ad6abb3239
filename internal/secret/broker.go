// Package secret implements idempotent provisioning of swarm secrets and
// the readback protocol that retrieves a secret's payload from a store that
// only delivers secrets to workloads, never to management callers.
package secret

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	swarmtypes "github.com/docker/docker/api/types/swarm"
	"github.com/google/uuid"

	"github.com/pishro-io/pishro/internal/swarm"
)

// Secret errors. ErrNotFound is the expected branch that triggers creation;
// the rest abort the current deployment.
var (
	// ErrNotFound indicates no secret with the given name exists.
	ErrNotFound = errors.New("secret not found")

	// ErrValueMissing indicates a secret source (env var, file, readback
	// output) held no value.
	ErrValueMissing = errors.New("secret value missing or empty")

	// ErrTaskFailed indicates the readback task failed or was rejected.
	ErrTaskFailed = errors.New("secret readback task failed")

	// ErrReadbackTimeout indicates the readback task did not complete in
	// time.
	ErrReadbackTimeout = errors.New("timed out waiting for secret readback task")
)

// Defaults for the readback polling loop. The task copies one file and is
// expected to complete almost instantly.
const (
	DefaultReadbackTimeout = 5 * time.Second
	DefaultPollInterval    = 500 * time.Millisecond

	// readbackImage runs the copy command of the readback task.
	readbackImage = "alpine:latest"
)

// Broker provisions named secrets in the swarm secret store. All creation
// paths go through GetOrCreate, so a secret is created at most once per
// name and an existing value is always preferred.
type Broker struct {
	client *swarm.Client

	// ReadbackTimeout bounds the readback polling loop.
	ReadbackTimeout time.Duration

	// PollInterval is the readback polling interval.
	PollInterval time.Duration
}

// NewBroker creates a broker backed by the given swarm client.
func NewBroker(client *swarm.Client) *Broker {
	return &Broker{
		client:          client,
		ReadbackTimeout: DefaultReadbackTimeout,
		PollInterval:    DefaultPollInterval,
	}
}

// Get returns the stored secret's metadata, or ErrNotFound. The payload is
// not part of the store's management API; use Value for that.
func (b *Broker) Get(ctx context.Context, name string) (*swarmtypes.Secret, error) {
	sec, found, err := b.client.FindSecret(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return sec, nil
}

// Create stores a new secret under the given name.
func (b *Broker) Create(ctx context.Context, name, value string, labels map[string]string) error {
	return b.client.CreateSecret(ctx, name, []byte(value), labels)
}

// GetOrCreate returns the existing secret's value, or invokes producer and
// creates the secret when none exists. A concurrent installer winning the
// creation race is resolved by reading the value it stored.
func (b *Broker) GetOrCreate(ctx context.Context, name string, producer func() (string, error)) (string, error) {
	value, err := b.Value(ctx, name)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	value, err = producer()
	if err != nil {
		return "", err
	}

	if err := b.Create(ctx, name, value, nil); err != nil {
		if swarm.IsConflict(err) {
			return b.Value(ctx, name)
		}
		return "", err
	}
	return value, nil
}

// RandomSecret gets or creates a secret holding length bytes of entropy,
// hex-encoded.
func (b *Broker) RandomSecret(ctx context.Context, name string, length int) (string, error) {
	return b.GetOrCreate(ctx, name, func() (string, error) {
		return b.RandomToken(length), nil
	})
}

// SecretFromEnv gets or creates a secret whose value is read from the named
// process environment variable.
func (b *Broker) SecretFromEnv(ctx context.Context, name, envVar string) (string, error) {
	return b.GetOrCreate(ctx, name, func() (string, error) {
		value, ok := os.LookupEnv(envVar)
		if !ok || value == "" {
			return "", fmt.Errorf("%w: environment variable %s", ErrValueMissing, envVar)
		}
		return value, nil
	})
}

// SecretFromFile gets or creates a secret whose value is the trimmed
// contents of a local file.
func (b *Broker) SecretFromFile(ctx context.Context, name, path string) (string, error) {
	return b.GetOrCreate(ctx, name, func() (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read secret file %s: %w", path, err)
		}
		value := strings.TrimSpace(string(data))
		if value == "" {
			return "", fmt.Errorf("%w: file %s", ErrValueMissing, path)
		}
		return value, nil
	})
}

// RandomToken returns a hex token of length bytes of entropy without
// touching the store.
func (b *Broker) RandomToken(length int) string {
	buf := make([]byte, length)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Value reads a secret's payload back out of the store.
//
// The store delivers secret payloads only to workloads, so Value runs a
// single-shot job that mounts the secret and copies it into a bind-mounted
// scratch directory, then polls the job's task until it completes. The
// scratch service and directory are removed on every exit path.
func (b *Broker) Value(ctx context.Context, name string) (string, error) {
	stored, err := b.Get(ctx, name)
	if err != nil {
		return "", err
	}

	scratchDir, err := os.MkdirTemp("", "pishro-secret-")
	if err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	const scratchFile = "s"
	serviceID, err := b.createReadbackTask(ctx, stored, scratchDir, scratchFile)
	if err != nil {
		return "", err
	}
	defer b.client.API().ServiceRemove(context.WithoutCancel(ctx), serviceID)

	if err := b.awaitReadbackTask(ctx, serviceID); err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(scratchDir, scratchFile))
	if err != nil {
		return "", fmt.Errorf("read scratch file for secret %s: %w", name, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: secret %s", ErrValueMissing, name)
	}
	return value, nil
}

func (b *Broker) createReadbackTask(ctx context.Context, stored *swarmtypes.Secret, scratchDir, scratchFile string) (string, error) {
	name := stored.Spec.Name
	spec := swarmtypes.ServiceSpec{
		Annotations: swarmtypes.Annotations{
			Name: "pishro-readback-" + uuid.New().String()[:8],
		},
		TaskTemplate: swarmtypes.TaskSpec{
			ContainerSpec: &swarmtypes.ContainerSpec{
				Image:   readbackImage,
				Command: []string{"cp", "/run/secrets/" + name, "/host-mount/" + scratchFile},
				Secrets: []*swarmtypes.SecretReference{{
					File: &swarmtypes.SecretReferenceFileTarget{
						Name: name,
						UID:  "0",
						GID:  "0",
						Mode: 0444,
					},
					SecretID:   stored.ID,
					SecretName: name,
				}},
				Mounts: []mount.Mount{{
					Type:   mount.TypeBind,
					Source: scratchDir,
					Target: "/host-mount",
				}},
			},
			LogDriver: &swarmtypes.Driver{Name: "json-file"},
			RestartPolicy: &swarmtypes.RestartPolicy{
				Condition: swarmtypes.RestartPolicyConditionNone,
			},
		},
		Mode: swarmtypes.ServiceMode{
			ReplicatedJob: &swarmtypes.ReplicatedJob{},
		},
	}

	resp, err := b.client.API().ServiceCreate(ctx, spec, swarmtypes.ServiceCreateOptions{})
	if err != nil {
		return "", fmt.Errorf("create readback task for secret %s: %w", name, err)
	}
	return resp.ID, nil
}

func (b *Broker) awaitReadbackTask(ctx context.Context, serviceID string) error {
	timeout := b.ReadbackTimeout
	if timeout <= 0 {
		timeout = DefaultReadbackTimeout
	}
	interval := b.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		tasks, err := b.client.API().TaskList(ctx, taskFilter(serviceID))
		if err != nil {
			return fmt.Errorf("list readback tasks: %w", err)
		}

		for _, task := range tasks {
			switch task.Status.State {
			case swarmtypes.TaskStateComplete:
				return nil
			case swarmtypes.TaskStateFailed, swarmtypes.TaskStateRejected:
				return fmt.Errorf("%w: %s", ErrTaskFailed, task.Status.Err)
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("%w after %s", ErrReadbackTimeout, timeout)
		}
	}
}

func taskFilter(serviceID string) swarmtypes.TaskListOptions {
	return swarmtypes.TaskListOptions{
		Filters: filters.NewArgs(filters.Arg("service", serviceID)),
	}
}
