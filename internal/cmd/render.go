package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pishro-io/pishro/internal/installer"
	"github.com/pishro-io/pishro/internal/render"
	"github.com/pishro-io/pishro/internal/ui"
	"github.com/pishro-io/pishro/internal/values"
)

var (
	renderStackName string
	renderValues    []string
	renderOutput    string
	renderStrict    bool
)

var renderCmd = &cobra.Command{
	Use:   "render <package-dir>",
	Short: "Render a package bundle without deploying it",
	Long: `Render a package's templates against its values and optional
override layers, writing the bundle to the output directory. No swarm
connection is made: secret template functions produce local values and
nothing is stored.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		packageDir := args[0]
		stackName := renderStackName
		if stackName == "" {
			stackName = "preview"
		}

		renderer := &render.Renderer{Extensions: localExtensions{}, Strict: renderStrict}
		inst := &installer.Installer{
			Renderer: renderer,
			Merger:   &values.Merger{Renderer: renderer},
		}

		_, err := inst.Generate(cmd.Context(), installer.Options{
			StackName:     stackName,
			PackageDir:    packageDir,
			OverrideFiles: renderValues,
		}, renderOutput)
		if err != nil {
			ui.Fatal("render %s: %v", packageDir, err)
		}
		ui.Success("bundle rendered to %s", renderOutput)
	},
}

// localExtensions satisfies the template extension surface without a
// secret store, for previewing bundles. Values are produced locally and
// never persisted.
type localExtensions struct{}

func (localExtensions) RandomSecret(_ context.Context, _ string, length int) (string, error) {
	return localExtensions{}.RandomToken(length), nil
}

func (localExtensions) SecretFromEnv(_ context.Context, _, envVar string) (string, error) {
	value, ok := os.LookupEnv(envVar)
	if !ok || value == "" {
		return "", fmt.Errorf("environment variable %s not set", envVar)
	}
	return value, nil
}

func (localExtensions) SecretFromFile(_ context.Context, _, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret file %s: %w", path, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return value, nil
}

func (localExtensions) RandomToken(length int) string {
	buf := make([]byte, length)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

func init() {
	renderCmd.Flags().StringVarP(&renderStackName, "stack", "s", "", "stack name used in the render context (default: preview)")
	renderCmd.Flags().StringSliceVarP(&renderValues, "values", "f", nil, "override values file, repeatable")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "./rendered", "output directory")
	renderCmd.Flags().BoolVar(&renderStrict, "strict", false, "fail on undefined template variables")
	rootCmd.AddCommand(renderCmd)
}
