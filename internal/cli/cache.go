package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Ning0612/linksync/internal/cachetree"
)

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the cache document",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [cache]",
		Short: "Print every cached path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			forest, err := loadCache(opts, args)
			if err != nil {
				return err
			}
			for _, path := range forest.Flatten().Sorted() {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check [cache]",
		Short: "Check the cache document for conflicting entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			forest, err := loadCache(opts, args)
			if err != nil {
				return err
			}
			if err := forest.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d roots, %d entries\n", len(forest.Roots), forest.LeafCount())
			return nil
		},
	})

	return cmd
}

// loadCache reads the cache named by the argument or --cache.
// It needs no configuration file.
func loadCache(opts *rootOptions, args []string) (*cachetree.Forest, error) {
	if len(args) == 1 {
		opts.cachePath = args[0]
	}
	path := opts.cacheFile()
	if path == "" {
		return nil, fmt.Errorf("no cache document given (use --cache)")
	}

	forest, found, err := cachetree.NewStore(afero.NewOsFs(), path).Load()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("cache document %s does not exist", path)
	}
	return forest, nil
}
