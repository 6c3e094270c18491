// Marketctl browses the marketplace from a terminal.
//
// It drives the same listing feed the BFF serves: every Enter press is the end
// of the feed coming into view.
package main

import (
	"os"

	_ "golang.org/x/crypto/x509roots/fallback"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
