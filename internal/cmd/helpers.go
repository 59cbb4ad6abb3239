package cmd

import (
	"context"

	"github.com/pishro-io/pishro/internal/application"
	"github.com/pishro-io/pishro/internal/catalog"
	"github.com/pishro-io/pishro/internal/gitrepo"
	"github.com/pishro-io/pishro/internal/installer"
	"github.com/pishro-io/pishro/internal/render"
	"github.com/pishro-io/pishro/internal/secret"
	"github.com/pishro-io/pishro/internal/swarm"
	"github.com/pishro-io/pishro/internal/ui"
	"github.com/pishro-io/pishro/internal/values"
)

// newSwarmClient connects to the Docker daemon and verifies it is an
// active swarm manager.
func newSwarmClient(ctx context.Context) *swarm.Client {
	client, err := swarm.NewClient()
	if err != nil {
		ui.Fatal("connect to docker: %v", err)
	}
	if err := client.CheckSwarmActive(ctx); err != nil {
		client.Close()
		ui.Fatal("%v", err)
	}
	return client
}

// newInstaller wires the installer with the secret broker as the template
// extension surface.
func newInstaller(client *swarm.Client, strict, verbose bool) *installer.Installer {
	broker := secret.NewBroker(client)
	renderer := &render.Renderer{Extensions: broker, Strict: strict}

	inst := &installer.Installer{
		Client:   client,
		Renderer: renderer,
		Merger:   &values.Merger{Renderer: renderer},
	}
	if verbose {
		inst.Progress = ui.Step
	}
	return inst
}

// newDeployer wires the application deployer.
func newDeployer(client *swarm.Client, strict, strictHealth, verbose bool) *application.Deployer {
	d := &application.Deployer{
		Installer:    newInstaller(client, strict, verbose),
		Client:       client,
		StrictHealth: strictHealth,
		Warn:         ui.Warning,
	}
	if verbose {
		d.Progress = ui.Step
		d.Wait.Progress = ui.Step
	}
	return d
}

// repoFromStore loads a named repository definition.
func repoFromStore(name string) *gitrepo.Repository {
	store, err := gitrepo.DefaultStore()
	if err != nil {
		ui.Fatal("%v", err)
	}
	repo, err := store.Get(name)
	if err != nil {
		ui.Fatal("%v", err)
	}
	return repo
}

func layoutFlag(path string) catalog.Layout {
	return catalog.Layout{Root: path}
}
