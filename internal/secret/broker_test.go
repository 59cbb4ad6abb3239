package secret

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/docker/api/types/network"
	swarmtypes "github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pishro-io/pishro/internal/swarm"
)

// fakeStore simulates the swarm secret store and the readback job flow: a
// created readback service immediately writes the secret's payload into the
// bind-mounted scratch directory and its task reports the configured state.
type fakeStore struct {
	secrets map[string]string

	// taskState is what TaskList reports for readback tasks.
	taskState swarmtypes.TaskState
	taskErr   string

	// conflictOnCreate makes SecretCreate fail as if another writer won
	// the race, storing raceValue under the requested name.
	conflictOnCreate bool
	raceValue        string

	secretCreates  int
	serviceCreates int
	serviceRemoves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		secrets:   map[string]string{},
		taskState: swarmtypes.TaskStateComplete,
	}
}

func (f *fakeStore) Info(ctx context.Context) (system.Info, error) {
	return system.Info{}, nil
}

func (f *fakeStore) SecretList(ctx context.Context, options swarmtypes.SecretListOptions) ([]swarmtypes.Secret, error) {
	var out []swarmtypes.Secret
	for name := range f.secrets {
		sec := swarmtypes.Secret{ID: "id-" + name}
		sec.Spec.Name = name
		out = append(out, sec)
	}
	return out, nil
}

func (f *fakeStore) SecretCreate(ctx context.Context, secret swarmtypes.SecretSpec) (swarmtypes.SecretCreateResponse, error) {
	f.secretCreates++
	if f.conflictOnCreate {
		f.secrets[secret.Name] = f.raceValue
		return swarmtypes.SecretCreateResponse{}, errdefs.Conflict(errors.New("secret " + secret.Name + " already exists"))
	}
	f.secrets[secret.Name] = string(secret.Data)
	return swarmtypes.SecretCreateResponse{ID: "id-" + secret.Name}, nil
}

func (f *fakeStore) ConfigList(ctx context.Context, options swarmtypes.ConfigListOptions) ([]swarmtypes.Config, error) {
	return nil, nil
}

func (f *fakeStore) ConfigCreate(ctx context.Context, config swarmtypes.ConfigSpec) (swarmtypes.ConfigCreateResponse, error) {
	return swarmtypes.ConfigCreateResponse{}, nil
}

func (f *fakeStore) NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error) {
	return nil, nil
}

func (f *fakeStore) NetworkCreate(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error) {
	return network.CreateResponse{}, nil
}

func (f *fakeStore) ServiceCreate(ctx context.Context, service swarmtypes.ServiceSpec, options swarmtypes.ServiceCreateOptions) (swarmtypes.ServiceCreateResponse, error) {
	f.serviceCreates++

	spec := service.TaskTemplate.ContainerSpec
	if f.taskState == swarmtypes.TaskStateComplete && len(spec.Secrets) > 0 && len(spec.Mounts) > 0 {
		name := spec.Secrets[0].SecretName
		scratch := filepath.Join(spec.Mounts[0].Source, "s")
		if err := os.WriteFile(scratch, []byte(f.secrets[name]+"\n"), 0o600); err != nil {
			return swarmtypes.ServiceCreateResponse{}, err
		}
	}
	return swarmtypes.ServiceCreateResponse{ID: "readback-svc"}, nil
}

func (f *fakeStore) ServiceInspectWithRaw(ctx context.Context, serviceID string, options swarmtypes.ServiceInspectOptions) (swarmtypes.Service, []byte, error) {
	return swarmtypes.Service{}, nil, nil
}

func (f *fakeStore) ServiceList(ctx context.Context, options swarmtypes.ServiceListOptions) ([]swarmtypes.Service, error) {
	return nil, nil
}

func (f *fakeStore) ServiceRemove(ctx context.Context, serviceID string) error {
	f.serviceRemoves++
	return nil
}

func (f *fakeStore) TaskList(ctx context.Context, options swarmtypes.TaskListOptions) ([]swarmtypes.Task, error) {
	task := swarmtypes.Task{}
	task.Status.State = f.taskState
	task.Status.Err = f.taskErr
	return []swarmtypes.Task{task}, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestBroker(store *fakeStore) *Broker {
	b := NewBroker(swarm.NewClientWithAPI(store))
	b.ReadbackTimeout = 100 * time.Millisecond
	b.PollInterval = 5 * time.Millisecond
	return b
}

func TestGetNotFound(t *testing.T) {
	broker := newTestBroker(newFakeStore())

	_, err := broker.Get(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "absent")
}

func TestGetExisting(t *testing.T) {
	store := newFakeStore()
	store.secrets["db-pass"] = "hunter2"
	broker := newTestBroker(store)

	sec, err := broker.Get(context.Background(), "db-pass")
	require.NoError(t, err)
	assert.Equal(t, "db-pass", sec.Spec.Name)
}

func TestValueReadback(t *testing.T) {
	store := newFakeStore()
	store.secrets["db-pass"] = "hunter2"
	broker := newTestBroker(store)

	value, err := broker.Value(context.Background(), "db-pass")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)
	assert.Equal(t, 1, store.serviceCreates)
	assert.Equal(t, 1, store.serviceRemoves, "readback service must be removed")
}

func TestValueTaskFailed(t *testing.T) {
	store := newFakeStore()
	store.secrets["db-pass"] = "hunter2"
	store.taskState = swarmtypes.TaskStateFailed
	store.taskErr = "task: non-zero exit (1)"
	broker := newTestBroker(store)

	_, err := broker.Value(context.Background(), "db-pass")
	require.ErrorIs(t, err, ErrTaskFailed)
	assert.Contains(t, err.Error(), "non-zero exit")
	assert.Equal(t, 1, store.serviceRemoves, "failed readback service must still be removed")
}

func TestValueTaskRejected(t *testing.T) {
	store := newFakeStore()
	store.secrets["db-pass"] = "hunter2"
	store.taskState = swarmtypes.TaskStateRejected
	broker := newTestBroker(store)

	_, err := broker.Value(context.Background(), "db-pass")
	assert.ErrorIs(t, err, ErrTaskFailed)
}

func TestValueTimeout(t *testing.T) {
	store := newFakeStore()
	store.secrets["db-pass"] = "hunter2"
	store.taskState = swarmtypes.TaskStateRunning
	broker := newTestBroker(store)
	broker.ReadbackTimeout = 30 * time.Millisecond

	_, err := broker.Value(context.Background(), "db-pass")
	require.ErrorIs(t, err, ErrReadbackTimeout)
	assert.Equal(t, 1, store.serviceRemoves)
}

func TestValueEmptyPayload(t *testing.T) {
	store := newFakeStore()
	store.secrets["empty"] = ""
	broker := newTestBroker(store)

	_, err := broker.Value(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrValueMissing)
}

func TestGetOrCreateCreatesOnce(t *testing.T) {
	store := newFakeStore()
	broker := newTestBroker(store)

	first, err := broker.GetOrCreate(context.Background(), "api-key", func() (string, error) {
		return "generated", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", first)
	assert.Equal(t, 1, store.secretCreates)

	// A second call reads the stored value and must not create again.
	second, err := broker.GetOrCreate(context.Background(), "api-key", func() (string, error) {
		t.Fatal("producer must not run when the secret exists")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", second)
	assert.Equal(t, 1, store.secretCreates)
}

func TestGetOrCreateProducerError(t *testing.T) {
	store := newFakeStore()
	broker := newTestBroker(store)

	wantErr := errors.New("no entropy today")
	_, err := broker.GetOrCreate(context.Background(), "api-key", func() (string, error) {
		return "", wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Zero(t, store.secretCreates)
}

func TestGetOrCreateConflictRace(t *testing.T) {
	store := newFakeStore()
	store.conflictOnCreate = true
	store.raceValue = "their-value"
	broker := newTestBroker(store)

	value, err := broker.GetOrCreate(context.Background(), "api-key", func() (string, error) {
		return "our-value", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "their-value", value, "a lost creation race must yield the stored value")
}

func TestRandomSecret(t *testing.T) {
	store := newFakeStore()
	broker := newTestBroker(store)

	value, err := broker.RandomSecret(context.Background(), "session-key", 16)
	require.NoError(t, err)

	raw, err := hex.DecodeString(value)
	require.NoError(t, err)
	assert.Len(t, raw, 16)
	assert.Equal(t, value, store.secrets["session-key"])
}

func TestSecretFromEnv(t *testing.T) {
	t.Setenv("PISHRO_TEST_TOKEN", "from-env")
	store := newFakeStore()
	broker := newTestBroker(store)

	value, err := broker.SecretFromEnv(context.Background(), "api-token", "PISHRO_TEST_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
}

func TestSecretFromEnvUnset(t *testing.T) {
	broker := newTestBroker(newFakeStore())

	_, err := broker.SecretFromEnv(context.Background(), "api-token", "PISHRO_TEST_UNSET")
	assert.ErrorIs(t, err, ErrValueMissing)
}

func TestSecretFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  file-value\n"), 0o600))

	broker := newTestBroker(newFakeStore())
	value, err := broker.SecretFromFile(context.Background(), "api-token", path)
	require.NoError(t, err)
	assert.Equal(t, "file-value", value, "file contents are trimmed")
}

func TestSecretFromFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	broker := newTestBroker(newFakeStore())
	_, err := broker.SecretFromFile(context.Background(), "api-token", path)
	assert.ErrorIs(t, err, ErrValueMissing)
}

func TestRandomTokenLength(t *testing.T) {
	broker := newTestBroker(newFakeStore())

	token := broker.RandomToken(32)
	raw, err := hex.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.NotEqual(t, token, broker.RandomToken(32))
}
