// Package source turns a document on disk into the ordered page images the
// ensemble works on.
package source

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/ocr"
	"github.com/joseph-ayodele/liquidation-ocr/internal/raster"
)

// Page is one page of a document. Image is nil when Data could not be
// decoded locally; the caller may still hand Data to a remote engine.
type Page struct {
	Index int
	Image *image.NRGBA
	Data  []byte
}

type Config struct {
	Pdftoppm         string
	DPI              int
	MaxPages         int // 0 = unlimited
	HeicConverter    string
	ArtifactCacheDir string
}

type Loader struct {
	cfg    Config
	runner ocr.Runner
	logger *slog.Logger
}

func NewLoader(cfg Config, runner ocr.Runner, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.NewExecRunner()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Loader{cfg: cfg, runner: runner, logger: logger}
}

// Format reports the document format for path, or ErrUnsupportedFormat.
func Format(path string) (constants.Format, error) {
	f := constants.MapExtToFormat(filepath.Ext(path))
	if f == "" {
		return "", fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, filepath.Ext(path))
	}
	return f, nil
}

// Pages loads the pages of path in reading order. Warnings describe pages
// that were skipped or could not be decoded.
func (l *Loader) Pages(ctx context.Context, path string) ([]Page, []string, error) {
	format, err := Format(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read source: %w", err)
	}

	var (
		payloads [][]byte
		warnings []string
	)
	switch format {
	case constants.IMAGE:
		payloads = [][]byte{data}
	case constants.HEIC:
		png, w, err := l.convertHEIC(ctx, path, data)
		warnings = append(warnings, w...)
		if err != nil {
			return nil, warnings, err
		}
		payloads = [][]byte{png}
	case constants.PDF:
		payloads = CarveJPEGs(data)
		if len(payloads) == 0 {
			l.logger.Debug("no embedded jpeg, rasterizing pdf", "path", path)
			payloads, err = l.rasterizePDF(ctx, path)
			if err != nil {
				return nil, warnings, err
			}
		}
	}

	if l.cfg.MaxPages > 0 && len(payloads) > l.cfg.MaxPages {
		warnings = append(warnings, fmt.Sprintf("truncated to %d of %d pages", l.cfg.MaxPages, len(payloads)))
		payloads = payloads[:l.cfg.MaxPages]
	}
	if len(payloads) == 0 {
		return nil, warnings, fmt.Errorf("%w: %s", common.ErrNoPages, path)
	}

	pages := make([]Page, 0, len(payloads))
	for i, p := range payloads {
		page := Page{Index: i, Data: p}
		img, err := raster.DecodeBytes(p)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i+1, err))
			l.logger.Warn("page decode failed", "path", path, "page", i+1, "error", err)
		} else {
			page.Image = img
		}
		pages = append(pages, page)
	}
	l.logger.Info("source loaded", "path", path, "format", format, "pages", len(pages))
	return pages, warnings, nil
}
