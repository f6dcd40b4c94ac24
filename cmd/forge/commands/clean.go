package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove all cached artifacts and stage records",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := c.components.Store.Prune(); err != nil {
				return err
			}
			c.components.Logger.Info("artifact store pruned")
			return nil
		},
	}
}
