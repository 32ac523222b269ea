package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
	"github.com/joseph-ayodele/liquidation-ocr/internal/export"
	"github.com/joseph-ayodele/liquidation-ocr/internal/source"
)

func runCmd(ctx context.Context, cfg *common.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var (
		in      = fs.String("in", "", "document to process (pdf, image or heic)")
		dir     = fs.String("dir", "", "directory of documents to process")
		xlsxOut = fs.String("xlsx", "", "write the distribution workbook to this path")
		csvOut  = fs.String("csv", "", "write the distribution CSV to this path")
		asJSON  = fs.Bool("json", false, "print processed documents as JSON instead of a summary")
		inmem   = fs.Bool("inmem", false, "do not persist documents")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*in == "") == (*dir == "") {
		return fmt.Errorf("%w: exactly one of -in or -dir is required", common.ErrInvalidInput)
	}

	paths := []string{*in}
	if *dir != "" {
		found, stats, err := source.ScanDirectory(*dir, nil, true)
		if err != nil {
			return fmt.Errorf("scan %s: %w", *dir, err)
		}
		logger.Info("directory scanned", "dir", *dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
		if len(found) == 0 {
			return fmt.Errorf("%w: no supported documents in %s", common.ErrNoPages, *dir)
		}
		paths = found
	}

	a, err := newApp(ctx, cfg, logger, !*inmem)
	if err != nil {
		return err
	}
	defer a.Close()

	docs := make([]*entity.Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Server.Workers))
	for i, p := range paths {
		g.Go(func() error {
			doc, err := a.processor.ProcessFile(gctx, p)
			if doc == nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	multi := len(docs) > 1
	failed := 0
	for _, doc := range docs {
		if doc.Status != constants.DocumentStatusExtracted {
			failed++
			continue
		}
		if err := writeExports(a.exporter, doc, *xlsxOut, *csvOut, multi, logger); err != nil {
			return err
		}
	}

	if err := printDocuments(os.Stdout, a.exporter, docs, *asJSON); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

func writeExports(exp *export.Service, doc *entity.Document, xlsxOut, csvOut string, multi bool, logger *slog.Logger) error {
	if xlsxOut != "" {
		b, err := exp.XLSX(doc.Record)
		if err != nil {
			return fmt.Errorf("xlsx for %s: %w", doc.SourcePath, err)
		}
		if err := writeFile(outputPath(xlsxOut, doc.SourcePath, multi), b); err != nil {
			return err
		}
	}
	if csvOut != "" {
		b, err := exp.CSV(doc.Record)
		switch {
		case errors.Is(err, common.ErrInvalidInput):
			logger.Warn("csv skipped", "path", doc.SourcePath, "reason", err)
		case err != nil:
			return fmt.Errorf("csv for %s: %w", doc.SourcePath, err)
		default:
			if err := writeFile(outputPath(csvOut, doc.SourcePath, multi), b); err != nil {
				return err
			}
		}
	}
	return nil
}

// outputPath suffixes out with the source name when several documents share
// one output flag: out.xlsx + a.pdf -> out-a.xlsx.
func outputPath(out, src string, multi bool) string {
	if !multi {
		return out
	}
	ext := filepath.Ext(out)
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return strings.TrimSuffix(out, ext) + "-" + base + ext
}

func writeFile(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("file written", "path", path, "bytes", len(b))
	return nil
}

func printDocuments(w io.Writer, exp *export.Service, docs []*entity.Document, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(docs) == 1 {
			return enc.Encode(docs[0])
		}
		return enc.Encode(docs)
	}

	for _, doc := range docs {
		fmt.Fprintf(w, "== %s [%s]\n", doc.SourcePath, doc.Status)
		if doc.Status != constants.DocumentStatusExtracted {
			fmt.Fprintf(w, "error: %s\n\n", doc.ErrorMessage)
			continue
		}
		summary, err := exp.Text(doc.Record)
		if err != nil {
			return err
		}
		_, _ = w.Write(summary)
		for _, m := range doc.Missing {
			fmt.Fprintf(w, "missing: %s\n", m)
		}
		for _, warn := range doc.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warn)
		}
		fmt.Fprintf(w, "mean confidence: %.1f\n\n", doc.MeanConfidence())
	}
	return nil
}
