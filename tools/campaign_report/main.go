// Campaign report tool previews ad account performance from the command line.
//
// Usage:
//
//	go run ./tools/campaign_report preview --account-id=<id> --from=2024-03-01 --to=2024-03-31 [--insights]
//	go run ./tools/campaign_report add-account --user-id=<id> --platform=meta --platform-account-id=123 --access-token=...
//
// The preview command fetches the period and its comparison period from the
// ad platform, normalizes and aggregates them and prints totals with
// period-over-period changes. Nothing is stored. Configuration is read from
// the same environment variables as the server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
