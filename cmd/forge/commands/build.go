package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the deployable artifact for a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			profile, _ := cmd.Flags().GetString("profile")
			sets, _ := cmd.Flags().GetStringArray("set")
			jobs, _ := cmd.Flags().GetInt("jobs")
			force, _ := cmd.Flags().GetBool("force")

			overrides, err := parseOverrides(sets)
			if err != nil {
				return err
			}

			_, err = c.components.App.Build(cmd.Context(), app.BuildOptions{
				ConfigPath: configPath,
				Profile:    profile,
				Overrides:  overrides,
				Jobs:       jobs,
				Force:      force,
			})
			return err
		},
	}

	cmd.Flags().StringP("config", "c", "forge.yaml", "Path to the build configuration file")
	cmd.Flags().StringP("profile", "p", "", "Named profile to build")
	cmd.Flags().StringArrayP("set", "s", nil, "Override a configuration parameter (key=value, repeatable)")
	cmd.Flags().IntP("jobs", "j", 0, "Maximum stages to run in parallel (0 = number of CPUs)")
	cmd.Flags().BoolP("force", "f", false, "Force rebuild, bypassing cached artifacts")

	return cmd
}

// parseOverrides turns repeated key=value flags into an override map.
func parseOverrides(sets []string) (map[string]string, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	overrides := make(map[string]string, len(sets))
	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok || key == "" {
			return nil, zerr.With(
				zerr.Wrap(domain.ErrConfiguration, "override must have the form key=value"),
				"flag", set,
			)
		}
		overrides[key] = value
	}
	return overrides, nil
}
