package gitrepo

import (
	"context"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// WithClone checks out one branch of the repository into a temporary
// directory, invokes fn with the checkout path, and removes the checkout
// again regardless of fn's outcome.
func WithClone(ctx context.Context, repo *Repository, branch string, fn func(dir string) error) error {
	if err := repo.Validate(); err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "pishro-clone-")
	if err != nil {
		return fmt.Errorf("create checkout directory: %w", err)
	}
	defer os.RemoveAll(dir)

	opts := &git.CloneOptions{
		URL:           repo.URL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
	}
	if repo.Username != "" && repo.Token != "" {
		opts.Auth = &http.BasicAuth{Username: repo.Username, Password: repo.Token}
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return fmt.Errorf("clone %s branch %s: %w", repo.Name, branch, err)
	}

	return fn(dir)
}
