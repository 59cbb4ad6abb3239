package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pishro-io/pishro/internal/catalog"
	"github.com/pishro-io/pishro/internal/installer"
	"github.com/pishro-io/pishro/internal/ui"
)

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "List, download, and install packages",
}

var (
	pkgRepoName    string
	pkgVersion     string
	pkgCatalogPath string
)

var packageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List packages in a catalog repository",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		repo := repoFromStore(pkgRepoName)
		packages, err := catalog.ListPackages(cmd.Context(), repo)
		if err != nil {
			ui.Fatal("list packages: %v", err)
		}

		if len(packages) == 0 {
			ui.Info("no packages in repository %s", repo.Name)
			return
		}
		ui.Header("%-24s %-10s %s", "NAME", "VERSION", "DESCRIPTION")
		for _, pkg := range packages {
			ui.Info("%-24s %-10s %s", pkg.Name, pkg.Version, pkg.Description)
		}
	},
}

var packageDownloadCmd = &cobra.Command{
	Use:   "download <package>",
	Short: "Copy one package from a catalog repository into the local catalog",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		repo := repoFromStore(pkgRepoName)

		err := catalog.DownloadPackage(cmd.Context(), repo, name, pkgVersion, layoutFlag(pkgCatalogPath))
		if err != nil {
			ui.Fatal("download %s: %v", name, err)
		}
		ui.Success("package %s downloaded to %s", name, pkgCatalogPath)
	},
}

var (
	pkgStackName string
	pkgValues    []string
	pkgVerbose   bool
)

var packageInstallCmd = &cobra.Command{
	Use:   "install <package>",
	Short: "Install a single package from the local catalog as a stack",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		stackName := pkgStackName
		if stackName == "" {
			stackName = name
		}

		ctx := cmd.Context()
		client := newSwarmClient(ctx)
		defer client.Close()

		inst := newInstaller(client, false, pkgVerbose)
		layout := layoutFlag(pkgCatalogPath)
		_, err := inst.Install(ctx, installer.Options{
			StackName:     stackName,
			PackageDir:    layout.PackageDir(name),
			OverrideFiles: pkgValues,
		})
		if err != nil {
			ui.Fatal("install %s: %v", name, err)
		}
		ui.Success("package %s deployed as stack %s", name, stackName)
	},
}

func init() {
	packageListCmd.Flags().StringVarP(&pkgRepoName, "repo", "r", "", "catalog repository name")
	packageListCmd.MarkFlagRequired("repo")

	packageDownloadCmd.Flags().StringVarP(&pkgRepoName, "repo", "r", "", "catalog repository name")
	packageDownloadCmd.Flags().StringVar(&pkgVersion, "version", "", "package version (default: main branch)")
	packageDownloadCmd.MarkFlagRequired("repo")

	packageInstallCmd.Flags().StringVarP(&pkgStackName, "stack", "s", "", "stack name (default: package name)")
	packageInstallCmd.Flags().StringSliceVarP(&pkgValues, "values", "f", nil,
		"override values file, repeatable; layers apply in ascending name order")
	packageInstallCmd.Flags().BoolVarP(&pkgVerbose, "verbose", "v", false, "print progress while deploying")

	packageCmd.PersistentFlags().StringVarP(&pkgCatalogPath, "catalog", "c", "./pishro-catalog", "local catalog path")
	packageCmd.AddCommand(packageListCmd, packageDownloadCmd, packageInstallCmd)
	rootCmd.AddCommand(packageCmd)
}
