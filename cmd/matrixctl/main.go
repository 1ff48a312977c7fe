package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/matrixd/internal/client"
	"github.com/danmuck/matrixd/internal/config"
	"github.com/danmuck/matrixd/internal/observability"
	"github.com/danmuck/matrixd/internal/protocol"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "matrixctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("matrixctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "client config path (defaults built in when empty)")
	addr := fs.String("addr", "", "server address override")
	n := fs.Int("n", -1, "matrix size override")
	workers := fs.Int("workers", -1, "worker count override")
	seed := fs.Int64("seed", 0, "matrix generator seed override (0 keeps config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	observability.InitLogger("matrixctl")

	cfg := client.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadClientConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *n >= 0 {
		cfg.MatrixSize = *n
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if err := config.ValidateClientConfig(cfg); err != nil {
		return err
	}

	d, err := client.Dial(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Addr, err)
	}
	defer d.Close()

	res, err := d.Run(ctx, client.Params{MatrixSize: cfg.MatrixSize, Workers: cfg.Workers})
	if err != nil {
		return err
	}
	printSummary(out, res)
	return nil
}

func printSummary(out io.Writer, res protocol.Result) {
	fmt.Fprintf(out, "matrix size:  %d\n", res.MatrixSize)
	fmt.Fprintf(out, "workers used: %d\n", res.Workers)
	fmt.Fprintf(out, "elapsed:      %.6f s\n", res.ElapsedSeconds)
}
