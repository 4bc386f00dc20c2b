// Command migrate applies versioned SQL migrations and tracks them in a
// ledger table.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aqasim81/ledger-migrate/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cli.Execute(ctx)

	stop()
	os.Exit(code)
}
