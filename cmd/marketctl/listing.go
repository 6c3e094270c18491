package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newListingCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "listing <id>",
		Short: "Show a single listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := printer{out: cmd.OutOrStdout(), useColors: root.colors}

			l, err := root.client().Listing(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error fetching listing %s: %w", args[0], err)
			}

			out.header("%s", l.Title)
			rows := [][]string{
				{"ID", l.ID},
				{"PRICE", out.price(l.ListingSummary)},
				{"CATEGORY", l.Category},
				{"SELLER", l.SellerID},
				{"CREATED", l.CreatedAt.Format(time.DateTime)},
				{"IMAGES", strings.Join(l.Images, "\n")},
			}
			table := newTable(out.out)
			if err := table.Bulk(rows); err != nil {
				return fmt.Errorf("error building table: %w", err)
			}
			if err := table.Render(); err != nil {
				return fmt.Errorf("error rendering table: %w", err)
			}
			if l.Description != "" {
				fmt.Fprintf(out.out, "\n%s\n", l.Description)
			}

			return nil
		},
	}
}
