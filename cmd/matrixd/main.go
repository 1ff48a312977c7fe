package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/matrixd/internal/config"
	"github.com/danmuck/matrixd/internal/observability"
	"github.com/danmuck/matrixd/internal/server"
)

func main() {
	configPath := flag.String("config", "", "server config path (defaults built in when empty)")
	addr := flag.String("addr", "", "listen address override")
	flag.Parse()

	logger := observability.InitLogger("matrixd")

	cfg := server.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadServerConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "matrixd: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", cfg.Addr).Str("admin_addr", cfg.AdminAddr).Msg("starting")
	if err := server.New(cfg).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "matrixd: %v\n", err)
		os.Exit(1)
	}
}
