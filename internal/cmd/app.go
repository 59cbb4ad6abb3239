package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pishro-io/pishro/internal/application"
	"github.com/pishro-io/pishro/internal/ui"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Install and download applications",
}

var (
	appStackName    string
	appEnvironment  string
	appCatalogPath  string
	appStrictHealth bool
	appVerbose      bool
)

var appInstallCmd = &cobra.Command{
	Use:   "install <application>",
	Short: "Install an application from the local catalog",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		stackName := appStackName
		if stackName == "" {
			stackName = name
		}

		ctx := cmd.Context()
		client := newSwarmClient(ctx)
		defer client.Close()

		deployer := newDeployer(client, false, appStrictHealth, appVerbose)
		err := deployer.Install(ctx, application.InstallOptions{
			Application: name,
			StackName:   stackName,
			Environment: appEnvironment,
			Catalog:     layoutFlag(appCatalogPath),
		})
		if err != nil {
			ui.Fatal("install %s: %v", name, err)
		}
		ui.Success("application %s installed", name)
	},
}

var (
	appRepoName string
	appVersion  string
)

var appDownloadCmd = &cobra.Command{
	Use:   "download <application>",
	Short: "Copy an application and its packages from a catalog repository",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		repo := repoFromStore(appRepoName)

		err := application.Download(cmd.Context(), repo, name, appVersion, layoutFlag(appCatalogPath))
		if err != nil {
			ui.Fatal("download %s: %v", name, err)
		}
		ui.Success("application %s downloaded to %s", name, appCatalogPath)
	},
}

func init() {
	appInstallCmd.Flags().StringVarP(&appStackName, "stack", "s", "", "stack name prefix (default: application name)")
	appInstallCmd.Flags().StringVarP(&appEnvironment, "environment", "e", application.DefaultEnvironment, "environment to deploy")
	appInstallCmd.Flags().BoolVar(&appStrictHealth, "strict-health", false, "treat health-wait timeouts as fatal")
	appInstallCmd.Flags().BoolVarP(&appVerbose, "verbose", "v", false, "print progress while deploying")

	appDownloadCmd.Flags().StringVarP(&appRepoName, "repo", "r", "", "catalog repository name")
	appDownloadCmd.Flags().StringVar(&appVersion, "version", "", "application version (default: main branch)")
	appDownloadCmd.MarkFlagRequired("repo")

	appCmd.PersistentFlags().StringVarP(&appCatalogPath, "catalog", "c", "./pishro-catalog", "local catalog path")
	appCmd.AddCommand(appInstallCmd, appDownloadCmd)
	rootCmd.AddCommand(appCmd)
}
