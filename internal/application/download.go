package application

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pishro-io/pishro/internal/catalog"
	"github.com/pishro-io/pishro/internal/fileutil"
	"github.com/pishro-io/pishro/internal/gitrepo"
)

// Download copies an application out of a catalog repository into the
// local catalog, then downloads every package its deploy references.
// Versioned applications live on a {application}-{version} branch,
// unversioned ones on main.
func Download(ctx context.Context, repo *gitrepo.Repository, applicationName, version string, layout catalog.Layout) error {
	branch := gitrepo.Branch(applicationName, version)
	err := gitrepo.WithClone(ctx, repo, branch, func(dir string) error {
		source := filepath.Join(dir, "applications", applicationName)
		if !fileutil.IsDir(source) {
			return fmt.Errorf("application %q not found in repository %q", applicationName, repo.Name)
		}
		return fileutil.CopyDir(source, layout.ApplicationDir(applicationName))
	})
	if err != nil {
		return err
	}

	deploy, err := catalog.LoadDeploy(layout.DeployYAML(applicationName))
	if err != nil {
		return err
	}

	for _, serviceName := range deploy.ServiceNames() {
		svc := deploy.Service(serviceName)
		if err := catalog.DownloadPackage(ctx, repo, svc.Package, svc.Version, layout); err != nil {
			return fmt.Errorf("service %s: %w", serviceName, err)
		}
	}
	return nil
}
