// Package installer generates a package's deployment bundle (stack file
// plus config artifacts) from its templates and submits it to the swarm.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pishro-io/pishro/internal/catalog"
	"github.com/pishro-io/pishro/internal/render"
	"github.com/pishro-io/pishro/internal/swarm"
	"github.com/pishro-io/pishro/internal/values"
)

// Bundle layout errors.
var (
	// ErrNoStackFile indicates neither stack.yaml nor stack.yml exists.
	ErrNoStackFile = errors.New("no stack file found")

	// ErrAmbiguousStackFile indicates both stack.yaml and stack.yml exist.
	ErrAmbiguousStackFile = errors.New("both stack.yaml and stack.yml exist, only one is expected")

	// ErrConfigNotSingleFile indicates a config directory not holding
	// exactly one regular file.
	ErrConfigNotSingleFile = errors.New("config directory must hold exactly one file")
)

// Installer deploys single packages.
type Installer struct {
	Client   *swarm.Client
	Renderer *render.Renderer
	Merger   *values.Merger

	// Progress, when set, receives human-readable progress lines.
	Progress func(format string, args ...any)

	// Deploy submits a rendered stack file. Defaults to
	// Client.DeployStack, which shells out to the docker CLI.
	Deploy func(ctx context.Context, stackName, stackFile string) error
}

// Options describe one package deployment.
type Options struct {
	// StackName is the name the stack is deployed under.
	StackName string

	// PackageDir is the package's catalog directory.
	PackageDir string

	// OverrideFiles are extra values layers, applied in ascending sort
	// order after the package's own values.yaml.
	OverrideFiles []string

	// ServiceName is the service this package backs inside an
	// application. Empty for standalone installs, in which case the
	// package name is used.
	ServiceName string

	// Extra is merged over the values context before rendering, e.g.
	// application_stack_name.
	Extra map[string]any

	// Environments and SecretEnvs hold the per-service environment
	// variable maps accumulated over previously deployed services. The
	// current service's own maps are added before rendering.
	Environments map[string]map[string]string
	SecretEnvs   map[string]map[string]string
}

// Generate validates the package layout, merges its values with the
// override layers, and renders the template tree into dest. The merge
// result is returned so callers can carry the declared environment
// variables forward to dependent services.
func (i *Installer) Generate(ctx context.Context, opts Options, dest string) (*values.Result, error) {
	pkg, err := catalog.LoadPackage(filepath.Join(opts.PackageDir, catalog.PackageFile))
	if err != nil {
		return nil, err
	}

	valuesFile := filepath.Join(opts.PackageDir, catalog.ValuesFile)
	if _, err := os.Stat(valuesFile); err != nil {
		return nil, fmt.Errorf("%w: %s", catalog.ErrMissingFile, valuesFile)
	}

	templatesDir := filepath.Join(opts.PackageDir, catalog.TemplatesDir)
	if _, err := findStackFile(templatesDir); err != nil {
		return nil, fmt.Errorf("package %s: %w", pkg.Name, err)
	}

	result, err := i.Merger.Merge(ctx, opts.StackName, valuesFile, opts.OverrideFiles)
	if err != nil {
		return nil, err
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = pkg.Name
	}

	renderCtx := values.DeepMerge(result.Values, opts.Extra)
	renderCtx["environments"] = withService(opts.Environments, serviceName, result.Env)
	renderCtx["secrets"] = withService(opts.SecretEnvs, serviceName, result.Secrets)

	if err := i.Renderer.RenderTree(ctx, templatesDir, dest, renderCtx); err != nil {
		return nil, fmt.Errorf("render package %s: %w", pkg.Name, err)
	}
	return result, nil
}

// Install generates the package bundle into a scratch directory, submits
// its config artifacts, ensures declared external networks exist, and
// deploys the stack. The scratch directory never outlives the call.
func (i *Installer) Install(ctx context.Context, opts Options) (*values.Result, error) {
	dest, err := os.MkdirTemp("", "pishro-bundle-")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(dest)

	result, err := i.Generate(ctx, opts, dest)
	if err != nil {
		return nil, err
	}

	if err := i.submitConfigs(ctx, opts.StackName, dest); err != nil {
		return nil, err
	}

	stackFile, err := findStackFile(dest)
	if err != nil {
		return nil, err
	}
	if err := i.ensureNetworks(ctx, stackFile); err != nil {
		return nil, err
	}

	deploy := i.Deploy
	if deploy == nil {
		deploy = i.Client.DeployStack
	}
	i.progress("deploying stack %s", opts.StackName)
	if err := deploy(ctx, opts.StackName, stackFile); err != nil {
		return nil, err
	}
	return result, nil
}

// submitConfigs creates a swarm config for each config/<name>/ artifact of
// the rendered bundle. Each directory must hold exactly one file; configs
// already present by name are left alone.
func (i *Installer) submitConfigs(ctx context.Context, stackName, dest string) error {
	configDir := filepath.Join(dest, "config")
	entries, err := os.ReadDir(configDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(configDir, entry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read config directory %s: %w", dir, err)
		}
		if len(files) != 1 || files[0].IsDir() {
			return fmt.Errorf("%w: %s", ErrConfigNotSingleFile, dir)
		}

		configName := stackName + "-" + entry.Name()
		exists, err := i.Client.HasConfig(ctx, configName)
		if err != nil {
			return err
		}
		if exists {
			i.progress("config %s already exists, skipping", configName)
			continue
		}

		i.progress("creating config %s", configName)
		if err := i.Client.CreateConfigFromFile(ctx, configName, filepath.Join(dir, files[0].Name())); err != nil {
			return err
		}
	}
	return nil
}

// ensureNetworks creates any external network the stack file declares that
// does not exist yet. Non-external networks are namespaced and created by
// the stack submission itself.
func (i *Installer) ensureNetworks(ctx context.Context, stackFile string) error {
	data, err := os.ReadFile(stackFile)
	if err != nil {
		return fmt.Errorf("read stack file: %w", err)
	}

	var doc struct {
		Networks map[string]struct {
			External bool `yaml:"external"`
		} `yaml:"networks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse stack file %s: %w", stackFile, err)
	}

	for name, def := range doc.Networks {
		if !def.External {
			continue
		}
		i.progress("ensuring network %s", name)
		if err := i.Client.EnsureNetwork(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (i *Installer) progress(format string, args ...any) {
	if i.Progress != nil {
		i.Progress(format, args...)
	}
}

// findStackFile returns the stack file inside dir, which may be named
// stack.yaml or stack.yml but not both.
func findStackFile(dir string) (string, error) {
	var found []string
	for _, name := range []string{"stack.yaml", "stack.yml"} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			found = append(found, path)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoStackFile, dir)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w in %s", ErrAmbiguousStackFile, dir)
	}
}

// withService copies the accumulated per-service maps and adds the current
// service's entries, converting to the shape templates index into.
func withService(acc map[string]map[string]string, service string, current map[string]string) map[string]any {
	out := make(map[string]any, len(acc)+1)
	for svc, vars := range acc {
		out[svc] = toAnyMap(vars)
	}
	if len(current) > 0 {
		out[service] = toAnyMap(current)
	}
	return out
}

func toAnyMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
