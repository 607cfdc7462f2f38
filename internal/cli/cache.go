package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodestore/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the archive integrity cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatsCommand())

	return cmd
}

// openCache opens the configured file cache directory.
func (c *CLI) openCache(cmd *cobra.Command) (*cache.FileCache, error) {
	cfg, _, err := c.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cache.NewFileCache(cfg.CacheDir)
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget every verified archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.openCache(cmd)
			if err != nil {
				return err
			}
			n, err := fc.Clear()
			if err != nil {
				return err
			}
			if n == 0 {
				c.ui.info("Cache is empty")
				return nil
			}
			c.ui.success("Cleared %d cached entries", n)
			c.ui.detail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, cfg.CacheDir)
			return nil
		},
	}
}

func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.openCache(cmd)
			if err != nil {
				return err
			}
			entries, size, err := fc.Stats()
			if err != nil {
				return err
			}
			c.ui.keyValue("directory", fc.Dir())
			c.ui.keyValue("entries", fmt.Sprint(entries))
			c.ui.keyValue("size", formatBytes(size))
			return nil
		},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
