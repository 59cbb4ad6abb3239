package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtensions records secret function calls and answers with
// deterministic values.
type fakeExtensions struct {
	randomCalls  []string
	fromEnvCalls []string
}

func (f *fakeExtensions) RandomSecret(_ context.Context, name string, length int) (string, error) {
	f.randomCalls = append(f.randomCalls, name)
	return fmt.Sprintf("random(%s,%d)", name, length), nil
}

func (f *fakeExtensions) SecretFromEnv(_ context.Context, name, envVar string) (string, error) {
	f.fromEnvCalls = append(f.fromEnvCalls, name)
	return fmt.Sprintf("env(%s,%s)", name, envVar), nil
}

func (f *fakeExtensions) SecretFromFile(_ context.Context, name, path string) (string, error) {
	return fmt.Sprintf("file(%s,%s)", name, path), nil
}

func (f *fakeExtensions) RandomToken(length int) string {
	return fmt.Sprintf("token(%d)", length)
}

func TestRenderString(t *testing.T) {
	r := &Renderer{}

	out, err := r.RenderString(context.Background(), "t", "hello {{ .name }}", map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestRenderStringSprigFunctions(t *testing.T) {
	r := &Renderer{}

	out, err := r.RenderString(context.Background(), "t", `{{ .name | upper }}-{{ .name | trunc 2 }}`, map[string]any{"name": "redis"})
	require.NoError(t, err)
	assert.Equal(t, "REDIS-re", out)
}

func TestRenderStringMissingKeyPermissive(t *testing.T) {
	r := &Renderer{}

	out, err := r.RenderString(context.Background(), "t", "[{{ .missing }}]", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestRenderStringMissingKeyStrict(t *testing.T) {
	r := &Renderer{Strict: true}

	_, err := r.RenderString(context.Background(), "t", "{{ .missing }}", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRenderStringParseError(t *testing.T) {
	r := &Renderer{}

	_, err := r.RenderString(context.Background(), "broken", "{{ .open", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRenderStringSecretFunctions(t *testing.T) {
	ext := &fakeExtensions{}
	r := &Renderer{Extensions: ext}

	out, err := r.RenderString(context.Background(), "t",
		`{{ random_docker_secret "db-pass" 16 }}|{{ docker_secret_from_env "api-key" "API_KEY" }}|{{ random_secret 8 }}`,
		nil)
	require.NoError(t, err)
	assert.Equal(t, "random(db-pass,16)|env(api-key,API_KEY)|token(8)", out)
	assert.Equal(t, []string{"db-pass"}, ext.randomCalls)
	assert.Equal(t, []string{"api-key"}, ext.fromEnvCalls)
}

func TestRenderStringNilExtensions(t *testing.T) {
	r := &Renderer{}

	_, err := r.RenderString(context.Background(), "t", `{{ random_secret 8 }}`, nil)
	assert.Error(t, err)
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("port: {{ .port }}"), 0o644))

	r := &Renderer{}
	out, err := r.RenderFile(context.Background(), path, map[string]any{"port": 8080})
	require.NoError(t, err)
	assert.Equal(t, "port: 8080", out)
}

func TestRenderTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(src, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("stack.yaml", "image: {{ .image }}")
	write("config/{{ .service }}/app.conf", "name={{ .service }}")
	write(".hidden", "skip me")
	write(".git/config", "skip me too")

	r := &Renderer{}
	data := map[string]any{"image": "nginx:1.27", "service": "web"}
	require.NoError(t, r.RenderTree(context.Background(), src, dst, data))

	stack, err := os.ReadFile(filepath.Join(dst, "stack.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "image: nginx:1.27", string(stack))

	conf, err := os.ReadFile(filepath.Join(dst, "config", "web", "app.conf"))
	require.NoError(t, err)
	assert.Equal(t, "name=web", string(conf))

	_, err = os.Stat(filepath.Join(dst, ".hidden"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dst, ".git"))
	assert.True(t, os.IsNotExist(err))
}
