// Package cmd provides the CLI commands for pishro.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pishro",
	Short: "Dependency-ordered application deployment for Docker Swarm",
	Long: `pishro deploys multi-service applications onto Docker Swarm.

Applications are sets of versioned packages wired together with
dependencies and environment-specific values. pishro resolves the
deployment order, renders each package's stack manifest from templates
and layered values, provisions declared secrets on demand, and waits for
every service to become healthy.

APPLICATION COMMANDS
  app install <name>     Install an application from the local catalog
    --stack, -s          Stack name prefix (default: application name)
    --environment, -e    Environment to deploy (default: production)
    --catalog, -c        Local catalog path (default: ./pishro-catalog)
    --strict-health      Treat health-wait timeouts as fatal
  app download <name>    Copy an application and its packages from a
                         catalog repository into the local catalog

PACKAGE COMMANDS
  package list           List packages in a catalog repository
  package download       Copy one package into the local catalog
  package install        Install a single package as a stack

REPOSITORY COMMANDS
  repo add <name> <url>  Define a catalog repository (token prompted)
  repo list              List defined repositories
  repo remove <name>     Remove a repository definition

TOOLING
  render <package-dir>   Render a package bundle without deploying
  secret                 Provision or read back swarm secrets
  update                 Update pishro to the latest release`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("pishro version {{.Version}}\n")
}
