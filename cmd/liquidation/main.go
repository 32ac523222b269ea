package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
)

const usage = `usage: liquidation <command> [flags]

commands:
  run      process one document (-in) or a directory (-dir) and print or export the result
  serve    start the gRPC service and the metrics endpoint
  watch    process documents as they appear in a directory
  export   render a record JSON file as xlsx, csv or txt
  migrate  apply database migrations
`

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	logger := newLogger(os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = runCmd(ctx, cfg, logger, args)
	case "serve":
		err = serveCmd(ctx, cfg, logger, args)
	case "watch":
		err = watchCmd(ctx, cfg, logger, args)
	case "export":
		err = exportCmd(cfg, logger, args)
	case "migrate":
		err = migrateCmd(ctx, cfg, logger)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		stop()
		os.Exit(1)
	}
}

// newLogger writes JSON to stderr so stdout stays free for command output.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
