// Command stackgo trains and applies stacked regression models.
//
//	stackgo train --config experiment.yaml
//	stackgo predict --model stack.gob --data rows.csv --out labels.csv
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/YuminosukeSato/stackgo/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("stackgo failed", log.ErrAttr(err))
		os.Exit(1)
	}
}
