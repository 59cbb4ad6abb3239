package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File names that make up a catalog entry.
const (
	PackageFile     = "package.yaml"
	ValuesFile      = "values.yaml"
	ApplicationFile = "application.yaml"
	DeployFile      = "deploy.yaml"
	TemplatesDir    = "templates"
)

// ErrMissingFile indicates a required catalog file does not exist.
var ErrMissingFile = errors.New("catalog file not found")

// LoadPackage reads and validates a package.yaml file.
func LoadPackage(path string) (*Package, error) {
	pkg := &Package{}
	if err := loadYAML(path, pkg); err != nil {
		return nil, err
	}
	if err := pkg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pkg, nil
}

// LoadApplication reads and validates an application.yaml file.
func LoadApplication(path string) (*Application, error) {
	app := &Application{}
	if err := loadYAML(path, app); err != nil {
		return nil, err
	}
	if err := app.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return app, nil
}

// LoadDeploy reads and validates a deploy.yaml file. Dangling dependency
// references are rejected here, at load time.
func LoadDeploy(path string) (*Deploy, error) {
	deploy := &Deploy{}
	if err := loadYAML(path, deploy); err != nil {
		return nil, err
	}
	if err := deploy.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return deploy, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Layout resolves paths inside a local catalog directory. A catalog holds
// packages/<name>/ and applications/<name>/ trees.
type Layout struct {
	Root string
}

// PackageDir returns the directory of a package in the catalog.
func (l Layout) PackageDir(name string) string {
	return filepath.Join(l.Root, "packages", name)
}

// PackagesDir returns the packages tree of the catalog.
func (l Layout) PackagesDir() string {
	return filepath.Join(l.Root, "packages")
}

// ApplicationDir returns the directory of an application in the catalog.
func (l Layout) ApplicationDir(name string) string {
	return filepath.Join(l.Root, "applications", name)
}

// ApplicationYAML returns the application.yaml path for an application.
func (l Layout) ApplicationYAML(name string) string {
	return filepath.Join(l.ApplicationDir(name), ApplicationFile)
}

// DeployYAML returns the deploy.yaml path for an application.
func (l Layout) DeployYAML(name string) string {
	return filepath.Join(l.ApplicationDir(name), DeployFile)
}

// EnvironmentDir returns the override-values root for one environment.
func (l Layout) EnvironmentDir(application, environment string) string {
	return filepath.Join(l.ApplicationDir(application), "environments", environment)
}

// ServiceValuesDir returns the override-values directory for one service in
// one environment.
func (l Layout) ServiceValuesDir(application, environment, service string) string {
	return filepath.Join(l.EnvironmentDir(application, environment), service)
}
