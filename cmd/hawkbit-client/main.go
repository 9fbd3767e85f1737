// Command hawkbit-client polls a hawkBit update server, downloads and
// installs deployments into a spare firmware slot, and reports feedback.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
