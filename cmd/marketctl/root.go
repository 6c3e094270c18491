package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdholdren/bazaar/internal/marketapi"
	"github.com/jdholdren/bazaar/internal/session"
)

type rootOpts struct {
	apiURL  string
	timeout time.Duration
	colors  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}

	root := &cobra.Command{
		Use:   "marketctl",
		Short: "Browse marketplace listings",
		Long: `marketctl pages through marketplace listings from a terminal.

Example usage:
  marketctl browse --keyword lamp            # Press Enter for each next page
  marketctl browse --category books --pages 3
  marketctl listing 42                       # Show a single listing`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	apiURL := os.Getenv("MARKET_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api", apiURL, "market backend base URL (env MARKET_API_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "timeout of each backend call")
	root.PersistentFlags().BoolVar(&opts.colors, "color", os.Getenv("NO_COLOR") == "", "colored output")

	root.AddCommand(newBrowseCmd(opts), newListingCmd(opts))
	return root
}

func (o *rootOpts) client() *marketapi.Client {
	return marketapi.New(o.apiURL, session.New(), marketapi.WithTimeout(o.timeout))
}
