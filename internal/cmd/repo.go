package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pishro-io/pishro/internal/gitrepo"
	"github.com/pishro-io/pishro/internal/ui"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage catalog repository definitions",
}

var repoUsername string

var repoAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Define a catalog repository",
	Long: `Define a catalog repository. When --username is given, an access
token is prompted for and stored with owner-only file permissions.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		repo := &gitrepo.Repository{
			Name:     args[0],
			URL:      args[1],
			Username: repoUsername,
		}

		if repoUsername != "" {
			fmt.Print("Access token: ")
			token, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				ui.Fatal("read token: %v", err)
			}
			repo.Token = strings.TrimSpace(string(token))
		}

		store, err := gitrepo.DefaultStore()
		if err != nil {
			ui.Fatal("%v", err)
		}
		if err := store.Add(repo); err != nil {
			ui.Fatal("add repository: %v", err)
		}
		ui.Success("repository %s added", repo.Name)
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List defined repositories",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store, err := gitrepo.DefaultStore()
		if err != nil {
			ui.Fatal("%v", err)
		}
		repos, err := store.List()
		if err != nil {
			ui.Fatal("list repositories: %v", err)
		}

		if len(repos) == 0 {
			ui.Info("no repositories defined")
			return
		}
		ui.Header("%-24s %s", "NAME", "URL")
		for _, repo := range repos {
			ui.Info("%-24s %s", repo.Name, repo.URL)
		}
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a repository definition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := gitrepo.DefaultStore()
		if err != nil {
			ui.Fatal("%v", err)
		}
		if err := store.Remove(args[0]); err != nil {
			ui.Fatal("remove repository: %v", err)
		}
		ui.Success("repository %s removed", args[0])
	},
}

func init() {
	repoAddCmd.Flags().StringVarP(&repoUsername, "username", "u", "", "username for https authentication")
	repoCmd.AddCommand(repoAddCmd, repoListCmd, repoRemoveCmd)
	rootCmd.AddCommand(repoCmd)
}
