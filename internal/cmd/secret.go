package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pishro-io/pishro/internal/secret"
	"github.com/pishro-io/pishro/internal/ui"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Provision and read back swarm secrets",
}

var secretLength int

var secretRandomCmd = &cobra.Command{
	Use:   "random <name>",
	Short: "Get or create a random secret",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := newSwarmClient(ctx)
		defer client.Close()

		broker := secret.NewBroker(client)
		if _, err := broker.RandomSecret(ctx, args[0], secretLength); err != nil {
			ui.Fatal("provision secret %s: %v", args[0], err)
		}
		ui.Success("secret %s provisioned", args[0])
	},
}

var secretFromEnvCmd = &cobra.Command{
	Use:   "from-env <name> <env-var>",
	Short: "Get or create a secret from an environment variable",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := newSwarmClient(ctx)
		defer client.Close()

		broker := secret.NewBroker(client)
		if _, err := broker.SecretFromEnv(ctx, args[0], args[1]); err != nil {
			ui.Fatal("provision secret %s: %v", args[0], err)
		}
		ui.Success("secret %s provisioned", args[0])
	},
}

var secretFromFileCmd = &cobra.Command{
	Use:   "from-file <name> <path>",
	Short: "Get or create a secret from a file's trimmed contents",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := newSwarmClient(ctx)
		defer client.Close()

		broker := secret.NewBroker(client)
		if _, err := broker.SecretFromFile(ctx, args[0], args[1]); err != nil {
			ui.Fatal("provision secret %s: %v", args[0], err)
		}
		ui.Success("secret %s provisioned", args[0])
	},
}

var secretGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Read a secret's value back through the readback task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := newSwarmClient(ctx)
		defer client.Close()

		broker := secret.NewBroker(client)
		value, err := broker.Value(ctx, args[0])
		if err != nil {
			ui.Fatal("read secret %s: %v", args[0], err)
		}
		fmt.Println(value)
	},
}

func init() {
	secretRandomCmd.Flags().IntVarP(&secretLength, "length", "l", 32, "entropy length in bytes")
	secretCmd.AddCommand(secretRandomCmd, secretFromEnvCmd, secretFromFileCmd, secretGetCmd)
	rootCmd.AddCommand(secretCmd)
}
