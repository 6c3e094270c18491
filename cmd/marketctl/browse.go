package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jdholdren/bazaar/internal/feed"
	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/price"
)

type browseOpts struct {
	keyword  string
	category string
	minPrice string
	maxPrice string
	pages    int
	pageSize int
	jsonOut  bool
}

func newBrowseCmd(root *rootOpts) *cobra.Command {
	opts := &browseOpts{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through listings matching a search",
		Long: `Page through listings matching a search.

Without --pages, each Enter loads the next page, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.keyword, "keyword", "k", "", "search text")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "one of "+strings.Join(market.Categories, ", "))
	cmd.Flags().StringVar(&opts.minPrice, "min-price", "", "lowest price, e.g. 100 or 99.90")
	cmd.Flags().StringVar(&opts.maxPrice, "max-price", "", "highest price")
	cmd.Flags().IntVarP(&opts.pages, "pages", "n", 0, "pages to load without prompting, 0 to prompt")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", feed.DefaultPageSize, "listings per page")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print every loaded listing as JSON at the end")

	return cmd
}

func (o *browseOpts) criteria() (market.FilterCriteria, error) {
	c := market.FilterCriteria{Keyword: o.keyword, Category: o.category}

	if o.minPrice != "" {
		p, err := price.Parse(o.minPrice)
		if err != nil {
			return c, fmt.Errorf("invalid --min-price: %w", err)
		}
		c.MinPrice = &p
	}
	if o.maxPrice != "" {
		p, err := price.Parse(o.maxPrice)
		if err != nil {
			return c, fmt.Errorf("invalid --max-price: %w", err)
		}
		c.MaxPrice = &p
	}

	return c, nil
}

func runBrowse(cmd *cobra.Command, root *rootOpts, opts *browseOpts) error {
	var (
		ctx = cmd.Context()
		out = printer{out: cmd.OutOrStdout(), useColors: root.colors}

		mu      sync.Mutex
		loadErr error
	)

	criteria, err := opts.criteria()
	if err != nil {
		return err
	}

	ctrl := feed.New(root.client(),
		feed.WithPageSize(opts.pageSize),
		feed.WithReporter(func(err error) {
			mu.Lock()
			loadErr = err
			mu.Unlock()
		}),
	)
	if err := ctrl.ResetAndSearch(criteria); err != nil {
		return err
	}

	var (
		in     = bufio.NewScanner(cmd.InOrStdin())
		shown  int
		loaded int
	)
	for {
		if !ctrl.OnVisibilityReached(ctx) {
			break
		}
		ctrl.Wait()

		mu.Lock()
		err := loadErr
		mu.Unlock()
		if err != nil {
			return fmt.Errorf("error loading page %d: %w", loaded+1, err)
		}
		loaded++

		st := ctrl.State()
		if !opts.jsonOut {
			if fresh := st.Items[shown:]; len(fresh) > 0 {
				out.header("Page %d", st.Page)
				if err := out.listingTable(fresh, shown); err != nil {
					return err
				}
			}
		}
		shown = len(st.Items)

		if !st.HasMore {
			if !opts.jsonOut {
				out.info("no more listings (%d shown)", shown)
			}
			break
		}
		if opts.pages > 0 {
			if loaded >= opts.pages {
				break
			}
			continue
		}

		if !opts.jsonOut {
			out.info("Enter for more, q to quit")
		}
		if !in.Scan() || strings.EqualFold(strings.TrimSpace(in.Text()), "q") {
			break
		}
	}

	if opts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(ctrl.State().Items); err != nil {
			return fmt.Errorf("error encoding listings: %w", err)
		}
	}

	return nil
}
