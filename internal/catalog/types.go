// Package catalog defines the package and application models that make up
// a pishro catalog, along with their validation rules and YAML loaders.
package catalog

import (
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Validation errors for catalog entities.
var (
	// ErrInvalidName indicates a name with characters outside [A-Za-z0-9_-].
	ErrInvalidName = errors.New("invalid name format")

	// ErrInvalidVersion indicates a version not matching X.Y.Z.
	ErrInvalidVersion = errors.New("invalid version format")

	// ErrInvalidTag indicates a tag with characters outside [A-Za-z0-9_ -].
	ErrInvalidTag = errors.New("invalid tag format")

	// ErrUnknownDependency indicates a service dependency that names no
	// service in the same deploy.
	ErrUnknownDependency = errors.New("unknown service dependency")

	// ErrNotMapping indicates a YAML document whose root is not a mapping.
	ErrNotMapping = errors.New("YAML root must be a mapping")
)

var (
	namePattern    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	tagPattern     = regexp.MustCompile(`^[a-zA-Z0-9_ -]+$`)
)

// Package identifies a versioned deployable unit in the catalog.
type Package struct {
	// Name is the package name. Letters, digits, '-' and '_' only.
	Name string `yaml:"name"`

	// Version follows the X.Y.Z format.
	Version string `yaml:"version"`

	// Description is a short free-form summary.
	Description string `yaml:"description,omitempty"`

	// Maintainers lists the package maintainers.
	Maintainers []string `yaml:"maintainers,omitempty"`

	// Tags classify the package. Letters, digits, spaces, '-' and '_'.
	Tags []string `yaml:"tags,omitempty"`
}

// Validate checks the package fields against the catalog naming rules.
func (p *Package) Validate() error {
	if !namePattern.MatchString(p.Name) {
		return fmt.Errorf("%w: package name %q (letters, digits, '-' and '_' only)", ErrInvalidName, p.Name)
	}
	if !versionPattern.MatchString(p.Version) {
		return fmt.Errorf("%w: %q (expected X.Y.Z)", ErrInvalidVersion, p.Version)
	}
	for _, tag := range p.Tags {
		if !tagPattern.MatchString(tag) {
			return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
		}
	}
	return nil
}

// Application identifies a named set of services deployed together.
type Application struct {
	// Name is the application name. Letters, digits, '-' and '_' only.
	Name string `yaml:"name"`

	// Description is a short free-form summary.
	Description string `yaml:"description,omitempty"`

	// Maintainers lists the application maintainers.
	Maintainers []string `yaml:"maintainers,omitempty"`

	// Tags classify the application.
	Tags []string `yaml:"tags,omitempty"`
}

// Validate checks the application fields against the catalog naming rules.
func (a *Application) Validate() error {
	if !namePattern.MatchString(a.Name) {
		return fmt.Errorf("%w: application name %q (letters, digits, '-' and '_' only)", ErrInvalidName, a.Name)
	}
	for _, tag := range a.Tags {
		if !tagPattern.MatchString(tag) {
			return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
		}
	}
	return nil
}

// Service is one package instance inside an application's deploy.
type Service struct {
	// Package names the catalog package backing this service.
	Package string `yaml:"package"`

	// Version is the package version to deploy, empty for the default.
	Version string `yaml:"version,omitempty"`

	// Repository references the catalog repository holding the package.
	Repository string `yaml:"repository,omitempty"`

	// Dependencies lists service names (not package names) that must be
	// deployed before this one.
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// Validate checks the service fields against the catalog naming rules.
func (s *Service) Validate() error {
	if !namePattern.MatchString(s.Package) {
		return fmt.Errorf("%w: package reference %q (letters, digits, '-' and '_' only)", ErrInvalidName, s.Package)
	}
	return nil
}

// Deploy maps service names to services for one application. The insertion
// order of the deploy.yaml mapping is preserved so dependency resolution
// stays deterministic.
type Deploy struct {
	services map[string]*Service
	order    []string
}

// UnmarshalYAML decodes the deploy document, keeping the mapping order.
func (d *Deploy) UnmarshalYAML(node *yaml.Node) error {
	var doc struct {
		Services yaml.Node `yaml:"services"`
	}
	if err := node.Decode(&doc); err != nil {
		return err
	}
	if doc.Services.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: services", ErrNotMapping)
	}

	d.services = make(map[string]*Service, len(doc.Services.Content)/2)
	d.order = make([]string, 0, len(doc.Services.Content)/2)
	for i := 0; i < len(doc.Services.Content); i += 2 {
		name := doc.Services.Content[i].Value
		svc := &Service{}
		if err := doc.Services.Content[i+1].Decode(svc); err != nil {
			return fmt.Errorf("service %q: %w", name, err)
		}
		d.services[name] = svc
		d.order = append(d.order, name)
	}
	return nil
}

// Validate checks every service and verifies that all dependencies name a
// service in this deploy. Cycle detection is the resolver's job.
func (d *Deploy) Validate() error {
	for _, name := range d.order {
		svc := d.services[name]
		if err := svc.Validate(); err != nil {
			return fmt.Errorf("service %q: %w", name, err)
		}
		for _, dep := range svc.Dependencies {
			if _, ok := d.services[dep]; !ok {
				return fmt.Errorf("%w: service %q depends on %q", ErrUnknownDependency, name, dep)
			}
		}
	}
	return nil
}

// Service returns the service with the given name, or nil.
func (d *Deploy) Service(name string) *Service {
	return d.services[name]
}

// ServiceNames returns the service names in deploy.yaml order.
func (d *Deploy) ServiceNames() []string {
	names := make([]string, len(d.order))
	copy(names, d.order)
	return names
}

// Len returns the number of services in the deploy.
func (d *Deploy) Len() int {
	return len(d.order)
}
