package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zenGate-Global/palmyra-tenancy/apps/cli/root"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "palmyra:", err)
		stop()
		os.Exit(1)
	}
}
