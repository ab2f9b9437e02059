package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"thirdcoast.systems/tubestats/internal/dataset"
	"thirdcoast.systems/tubestats/internal/extract"
	"thirdcoast.systems/tubestats/internal/rawstore"
	"thirdcoast.systems/tubestats/pkg/utils/format"
)

func newTransformCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "transform",
		Short: "Rebuild the tables from the newest raw snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := c.openTables(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			start := time.Now()
			builder := dataset.NewBuilder(rawstore.New(c.cfg.RawDir), extract.New(), store)
			summary, err := builder.Build(ctx)
			if err != nil {
				return fmt.Errorf("transform failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", summary.RunID)
			fmt.Fprintf(out, "  channel:      %d\n", summary.Channels)
			fmt.Fprintf(out, "  videos:       %d\n", summary.Videos)
			fmt.Fprintf(out, "  comments:     %d\n", summary.Comments)
			fmt.Fprintf(out, "  denormalized: %d\n", summary.Denormalized)
			fmt.Fprintf(out, "  took:         %s\n", format.Elapsed(time.Since(start)))
			return nil
		},
	}
}
