// Command statsagg aggregates ranked battle logs into per-map statistics and
// publishes them as JSON files.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/brawlstats/statsagg/internal/logic"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var stageErr *logic.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprintf(os.Stderr, "statsagg: %s stage failed: %v\n", stageErr.Stage, stageErr.Err)
		} else {
			fmt.Fprintln(os.Stderr, "statsagg:", err)
		}
		os.Exit(1)
	}
}
