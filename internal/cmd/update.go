package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pishro-io/pishro/internal/ui"
	"github.com/pishro-io/pishro/internal/update"
)

var updateCheckOnly bool

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"upgrade", "selfupdate"},
	Short:   "Update pishro to the latest release",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		if updateCheckOnly {
			release, available, err := update.Check(ctx, version)
			if err != nil {
				ui.Fatal("check for update: %v", err)
			}
			if !available {
				ui.Success("pishro %s is up to date", version)
				return
			}
			ui.Info("version %s available (released %s): %s", release.Version, release.PublishedAt, release.ReleaseURL)
			return
		}

		release, err := update.Apply(ctx, version)
		if err != nil {
			ui.Fatal("update: %v", err)
		}
		if release == nil {
			ui.Success("pishro %s is up to date", version)
			return
		}
		ui.Success("updated to %s", release.Version)
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "only check whether an update is available")
	rootCmd.AddCommand(updateCmd)
}
