// Package application orchestrates a whole application install: structural
// validation, dependency resolution, and the per-service deploy loop.
package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pishro-io/pishro/internal/catalog"
	"github.com/pishro-io/pishro/internal/fileutil"
	"github.com/pishro-io/pishro/internal/installer"
	"github.com/pishro-io/pishro/internal/resolve"
	"github.com/pishro-io/pishro/internal/swarm"
)

// ErrInvalidStructure indicates the application's catalog layout is missing
// a required element. Raised before any deployment action is taken.
var ErrInvalidStructure = errors.New("invalid application structure")

// DefaultEnvironment is used when no environment is selected.
const DefaultEnvironment = "production"

// Deployer installs applications service by service in dependency order.
type Deployer struct {
	Installer *installer.Installer
	Client    *swarm.Client

	// Wait bounds the per-service health wait after each stack
	// submission.
	Wait swarm.WaitOptions

	// StrictHealth makes a health-wait timeout fatal instead of a
	// warning.
	StrictHealth bool

	// Progress and Warn, when set, receive human-readable status lines.
	Progress func(format string, args ...any)
	Warn     func(format string, args ...any)
}

// InstallOptions select what to install and where.
type InstallOptions struct {
	// Application is the application name inside the catalog.
	Application string

	// StackName is the application-level stack name; each service is
	// deployed as {StackName}-{package}.
	StackName string

	// Environment selects the override-values tree.
	Environment string

	// Catalog is the local catalog root.
	Catalog catalog.Layout
}

func (o *InstallOptions) environment() string {
	if o.Environment == "" {
		return DefaultEnvironment
	}
	return o.Environment
}

// Install validates the application, resolves the deployment order, and
// deploys every service in turn. The first failing service aborts the
// install; services already deployed are left running.
func (d *Deployer) Install(ctx context.Context, opts InstallOptions) error {
	deploy, err := d.Validate(opts)
	if err != nil {
		return err
	}

	order, err := resolve.Order(deploy)
	if err != nil {
		return fmt.Errorf("application %s: %w", opts.Application, err)
	}
	d.progress("deployment order: %v", order)

	envBySvc := map[string]map[string]string{}
	secretsBySvc := map[string]map[string]string{}

	for _, serviceName := range order {
		svc := deploy.Service(serviceName)
		stackName := opts.StackName + "-" + svc.Package
		d.progress("deploying service %s as stack %s", serviceName, stackName)

		overrides, err := serviceOverrideFiles(opts.Catalog.ServiceValuesDir(opts.Application, opts.environment(), serviceName))
		if err != nil {
			return fmt.Errorf("service %s: %w", serviceName, err)
		}

		result, err := d.Installer.Install(ctx, installer.Options{
			StackName:     stackName,
			PackageDir:    opts.Catalog.PackageDir(svc.Package),
			OverrideFiles: overrides,
			ServiceName:   serviceName,
			Extra:         map[string]any{"application_stack_name": opts.StackName},
			Environments:  envBySvc,
			SecretEnvs:    secretsBySvc,
		})
		if err != nil {
			return fmt.Errorf("service %s: install: %w", serviceName, err)
		}

		if len(result.Env) > 0 {
			envBySvc[serviceName] = result.Env
		}
		if len(result.Secrets) > 0 {
			secretsBySvc[serviceName] = result.Secrets
		}

		if err := d.Client.WaitForStack(ctx, stackName, &d.Wait); err != nil {
			if errors.Is(err, swarm.ErrWaitTimeout) && !d.StrictHealth {
				d.warn("service %s: %v", serviceName, err)
				continue
			}
			return fmt.Errorf("service %s: wait for health: %w", serviceName, err)
		}
		d.progress("service %s is ready", serviceName)
	}

	return nil
}

// Validate confirms the application's structural expectations before any
// deployment action: the application and deploy definitions, and for every
// service its package directory and its environment value directory.
func (d *Deployer) Validate(opts InstallOptions) (*catalog.Deploy, error) {
	if !fileutil.IsDir(opts.Catalog.Root) {
		return nil, fmt.Errorf("%w: catalog %s does not exist", ErrInvalidStructure, opts.Catalog.Root)
	}
	if _, err := catalog.LoadApplication(opts.Catalog.ApplicationYAML(opts.Application)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructure, err)
	}

	deploy, err := catalog.LoadDeploy(opts.Catalog.DeployYAML(opts.Application))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructure, err)
	}

	envDir := opts.Catalog.EnvironmentDir(opts.Application, opts.environment())
	if !fileutil.IsDir(envDir) {
		return nil, fmt.Errorf("%w: environment directory %s does not exist", ErrInvalidStructure, envDir)
	}

	for _, serviceName := range deploy.ServiceNames() {
		svc := deploy.Service(serviceName)
		if pkgDir := opts.Catalog.PackageDir(svc.Package); !fileutil.IsDir(pkgDir) {
			return nil, fmt.Errorf("%w: package %s does not exist", ErrInvalidStructure, pkgDir)
		}
		if valuesDir := opts.Catalog.ServiceValuesDir(opts.Application, opts.environment(), serviceName); !fileutil.IsDir(valuesDir) {
			return nil, fmt.Errorf("%w: value directory %s does not exist", ErrInvalidStructure, valuesDir)
		}
	}

	return deploy, nil
}

// serviceOverrideFiles lists a service's override value files in ascending
// name order.
func serviceOverrideFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read value directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (d *Deployer) progress(format string, args ...any) {
	if d.Progress != nil {
		d.Progress(format, args...)
	}
}

func (d *Deployer) warn(format string, args ...any) {
	if d.Warn != nil {
		d.Warn(format, args...)
	} else {
		d.progress(format, args...)
	}
}
