package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/nodestore/pkg/install"
)

func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect the project's package store",
	}

	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storePruneCommand())

	return cmd
}

func (c *CLI) storeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List store entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dir, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			entries, err := install.ListStore(dir, cfg.StoreRoot)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				c.ui.info("Store is empty")
				return nil
			}
			for _, e := range entries {
				if !e.Parsed {
					c.ui.warning("%s (not a store key)", e.Key)
					continue
				}
				c.ui.keyValue(e.Identity.Name, e.Identity.Version)
			}
			c.ui.stats(stat{len(entries), "entries"})
			return nil
		},
	}
}

func (c *CLI) storePruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove store entries the lock file no longer needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, project, err := c.plan(cmd)
			if err != nil || project == nil {
				return err
			}
			cfg, dir, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			removed, err := install.Prune(dir, cfg.StoreRoot, steps)
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				c.ui.info("Nothing to prune")
				return nil
			}
			for _, key := range removed {
				c.ui.pkg(2, iconSkip, key, "")
			}
			c.ui.success("Pruned %d store entries", len(removed))
			return nil
		},
	}
}
