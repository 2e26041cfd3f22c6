package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/beacon/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override beacon config path (optional)")
	serverURL := flag.String("url", "", "server URL to connect to on start (optional)")
	refreshSeconds := flag.Int("refresh", 0, "stats refresh interval in seconds (optional, defaults to 5s)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath, ServerURL: *serverURL}
	if refresh := *refreshSeconds; refresh > 0 {
		opts.RefreshSeconds = refresh
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "beacon: %v\n", err)
		return 1
	}
	return 0
}
