package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pishro-io/pishro/internal/fileutil"
	"github.com/pishro-io/pishro/internal/gitrepo"
)

// DownloadPackage copies one package out of a catalog repository into the
// local catalog. Versioned packages live on a {package}-{version} branch,
// unversioned ones on main.
func DownloadPackage(ctx context.Context, repo *gitrepo.Repository, packageName, version string, layout Layout) error {
	branch := gitrepo.Branch(packageName, version)
	return gitrepo.WithClone(ctx, repo, branch, func(dir string) error {
		source := filepath.Join(dir, "packages", packageName)
		if !fileutil.IsDir(source) {
			return fmt.Errorf("package %q not found in repository %q", packageName, repo.Name)
		}
		return fileutil.CopyDir(source, layout.PackageDir(packageName))
	})
}

// ListPackages returns every package defined on the repository's main
// branch.
func ListPackages(ctx context.Context, repo *gitrepo.Repository) ([]*Package, error) {
	var packages []*Package
	err := gitrepo.WithClone(ctx, repo, "main", func(dir string) error {
		entries, err := os.ReadDir(filepath.Join(dir, "packages"))
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read packages directory: %w", err)
		}

		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || strings.HasPrefix(entry.Name(), "_") {
				continue
			}
			packageYAML := filepath.Join(dir, "packages", entry.Name(), PackageFile)
			if !fileutil.IsFile(packageYAML) {
				continue
			}
			pkg, err := LoadPackage(packageYAML)
			if err != nil {
				return err
			}
			packages = append(packages, pkg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return packages, nil
}

// GetPackage returns one package's definition from the repository's main
// branch.
func GetPackage(ctx context.Context, repo *gitrepo.Repository, packageName string) (*Package, error) {
	packages, err := ListPackages(ctx, repo)
	if err != nil {
		return nil, err
	}
	for _, pkg := range packages {
		if pkg.Name == packageName {
			return pkg, nil
		}
	}
	return nil, fmt.Errorf("package %q not found in repository %q", packageName, repo.Name)
}
