// Package gitrepo provides the version-control collaborator: catalog
// repository definitions and scoped checkouts used to read packages and
// applications from a git host.
package gitrepo

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Repository definition errors.
var (
	// ErrInvalidRepoName indicates a repository name with characters
	// outside [A-Za-z0-9_-].
	ErrInvalidRepoName = errors.New("invalid repository name format")

	// ErrInvalidRepoURL indicates a URL that is not a usable git URL.
	ErrInvalidRepoURL = errors.New("invalid git repository URL")
)

var (
	repoNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	sshURLPattern   = regexp.MustCompile(`^git@[^:]+:.+\.git$`)
)

// Repository describes a catalog repository and how to authenticate
// against it.
type Repository struct {
	// Name identifies the repository locally. Letters, digits, '-' and
	// '_' only.
	Name string `yaml:"name"`

	// URL is the clone URL, https or ssh.
	URL string `yaml:"url"`

	// Username and Token authenticate https clones when set. The token is
	// never logged.
	Username string `yaml:"username,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// Validate checks the repository definition.
func (r *Repository) Validate() error {
	if !repoNamePattern.MatchString(r.Name) {
		return fmt.Errorf("%w: %q (letters, digits, '-' and '_' only)", ErrInvalidRepoName, r.Name)
	}
	if sshURLPattern.MatchString(r.URL) {
		return nil
	}
	parsed, err := url.Parse(r.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || !strings.HasSuffix(parsed.Path, ".git") {
		return fmt.Errorf("%w: %q (expected https://host/org/repo.git or git@host:org/repo.git)", ErrInvalidRepoURL, r.URL)
	}
	return nil
}

// Branch returns the catalog branch convention for a versioned entity:
// {entity}-{version}, or main when no version is given.
func Branch(entity, version string) string {
	if version == "" {
		return "main"
	}
	return entity + "-" + version
}
