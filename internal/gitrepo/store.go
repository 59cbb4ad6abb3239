package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pishro-io/pishro/internal/fileutil"
)

// ErrRepoNotFound indicates no repository with the given name is defined.
var ErrRepoNotFound = errors.New("repository not defined")

// Store persists repository definitions in a YAML file under the user
// config directory.
type Store struct {
	Path string
}

// DefaultStore locates the repository definitions file, honoring the user
// config directory.
func DefaultStore() (*Store, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locate user config directory: %w", err)
	}
	return &Store{Path: filepath.Join(base, "pishro", "repositories.yaml")}, nil
}

type storeFile struct {
	Repositories []*Repository `yaml:"repositories"`
}

// List returns all defined repositories.
func (s *Store) List() ([]*Repository, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return file.Repositories, nil
}

// Get returns the repository with the given name.
func (s *Store) Get(name string) (*Repository, error) {
	repos, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, repo := range repos {
		if repo.Name == name {
			return repo, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, name)
}

// Add stores a repository definition, replacing any existing one with the
// same name. The file is written with owner-only permissions because it
// may hold tokens.
func (s *Store) Add(repo *Repository) error {
	if err := repo.Validate(); err != nil {
		return err
	}

	repos, err := s.List()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range repos {
		if existing.Name == repo.Name {
			repos[i] = repo
			replaced = true
			break
		}
	}
	if !replaced {
		repos = append(repos, repo)
	}
	return s.save(repos)
}

// Remove deletes a repository definition by name.
func (s *Store) Remove(name string) error {
	repos, err := s.List()
	if err != nil {
		return err
	}

	kept := repos[:0]
	for _, repo := range repos {
		if repo.Name != name {
			kept = append(kept, repo)
		}
	}
	if len(kept) == len(repos) {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, name)
	}
	return s.save(kept)
}

func (s *Store) save(repos []*Repository) error {
	data, err := yaml.Marshal(&storeFile{Repositories: repos})
	if err != nil {
		return fmt.Errorf("marshal repositories: %w", err)
	}
	return fileutil.WriteFile(s.Path, data, 0600)
}
