package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/source"
)

// watchCmd processes documents in the foreground as they appear and writes
// one workbook per extracted document into -out.
func watchCmd(ctx context.Context, cfg *common.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	var (
		dirs     = fs.String("dir", "", "comma separated directories to watch (required)")
		out      = fs.String("out", "", "directory for the generated workbooks (optional)")
		initial  = fs.Bool("initial", false, "also process documents already present")
		debounce = fs.Duration("debounce", 500*time.Millisecond, "quiet period before a changed file is processed")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	roots := splitList(*dirs)
	if len(roots) == 0 {
		return fmt.Errorf("%w: -dir is required", common.ErrInvalidInput)
	}

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	paths, errs, err := source.Watch(ctx, source.WatchConfig{Roots: roots, InitialScan: *initial, Debounce: *debounce}, logger)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	logger.Info("watching for documents", "roots", roots, "initial_scan", *initial)

	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			doc, err := a.processor.ProcessFile(ctx, p)
			if doc == nil || doc.Status != constants.DocumentStatusExtracted {
				logger.Warn("watch.process_failed", "path", p, "error", err)
				continue
			}
			if *out == "" {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) + ".xlsx"
			if err := writeExports(a.exporter, doc, filepath.Join(*out, name), "", false, logger); err != nil {
				logger.Warn("watch.export_failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch.error", "error", err)
		}
	}
}
