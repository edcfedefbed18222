package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fastroot/pkg/cache"
	ferrors "github.com/matzehuels/fastroot/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheInfoCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached rootings and drawings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openCache(false)
			if err != nil {
				return err
			}
			defer store.Close()

			clearer, ok := store.(cache.Clearer)
			if !ok {
				printInfo("Cache is disabled")
				return nil
			}
			count, err := clearer.Clear(cmd.Context())
			if err != nil {
				return ferrors.Wrap(ferrors.ErrCodeCache, err, "clear cache")
			}

			printSuccess("Cleared %d cached entries", count)
			if loc, err := c.cacheLocation(); err == nil {
				printDetail("Location: %s", loc)
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory or redis URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := c.cacheLocation()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), loc)
			return nil
		},
	}
}

// cacheInfoCommand creates the "cache info" subcommand.
func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache location and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openCache(false)
			if err != nil {
				return err
			}
			defer store.Close()

			switch s := store.(type) {
			case *cache.FileCache:
				entries, size, err := s.Stats()
				if err != nil {
					return ferrors.Wrap(ferrors.ErrCodeCache, err, "read cache")
				}
				printKeyValue("Backend", "file")
				printKeyValue("Directory", s.Dir())
				printKeyValue("Entries", fmt.Sprint(entries))
				printKeyValue("Size", formatBytes(size))
			case *cache.RedisCache:
				printKeyValue("Backend", "redis")
				if err := s.Ping(cmd.Context()); err != nil {
					printWarning("redis unreachable: %v", err)
				}
				loc, _ := c.cacheLocation()
				printKeyValue("URL", loc)
			default:
				printKeyValue("Backend", fmt.Sprint(s))
			}
			printKeyValue("TTL", c.Config.Cache.TTL.String())
			return nil
		},
	}
}

// formatBytes renders n with a binary unit suffix.
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
