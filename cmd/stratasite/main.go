// Command stratasite runs the marketing site and CMS admin API, plus a few
// operator utilities.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "stratasite:", err)
		os.Exit(1)
	}
}
