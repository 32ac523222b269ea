package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/liquidation-ocr/internal/async"
	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/metrics"
	"github.com/joseph-ayodele/liquidation-ocr/internal/server"
	"github.com/joseph-ayodele/liquidation-ocr/internal/source"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(ctx context.Context, cfg *common.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	watchDirs := fs.String("watch", "", "comma separated directories whose new documents are submitted automatically")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		pq    *async.ProcessorQueue
		queue async.Queue
	)
	if a.repo != nil {
		pq = async.NewProcessorQueue(a.processor, logger,
			async.WithWorkers(cfg.Server.Workers),
			async.WithQueueSize(cfg.Server.QueueSize),
			async.WithProcessTimeout(cfg.Server.ProcessTimeout),
		)
		queue = pq
	} else {
		logger.Warn("document storage disabled; submit and get calls will be rejected")
	}

	roots := splitList(*watchDirs)
	if len(roots) > 0 && queue == nil {
		return fmt.Errorf("%w: -watch needs document storage", common.ErrInvalidInput)
	}

	svc := server.NewLiquidationService(a.extractor, a.selector, a.exporter, a.repo, queue, logger)
	gs, hs := server.NewGRPCServer(svc, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("grpc listening", "addr", lis.Addr().String(), "service", server.ServiceName)
		return gs.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	if len(roots) > 0 {
		g.Go(func() error { return submitWatched(gctx, roots, svc, logger) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		hs.Shutdown()
		gs.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
		if pq != nil {
			pq.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}

// submitWatched hands every document appearing under roots to the queue.
func submitWatched(ctx context.Context, roots []string, svc *server.LiquidationService, logger *slog.Logger) error {
	paths, errs, err := source.Watch(ctx, source.WatchConfig{Roots: roots, Debounce: 500 * time.Millisecond}, logger)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	logger.Info("watching for documents", "roots", roots)
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			doc, err := svc.Submit(ctx, p)
			if err != nil {
				logger.Warn("watch.submit_failed", "path", p, "error", err)
				continue
			}
			logger.Info("watch.submitted", "path", p, "document_id", doc.ID)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch.error", "error", err)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
