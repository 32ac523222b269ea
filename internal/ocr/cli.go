package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type CLIConfig struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	PSM         int    // e.g., 6 is good for uniform block of text
	OEM         int    // 1 = LSTM; leave 0 to use default
	TessdataDir string
}

// CLIEngine shells out to the tesseract binary in TSV mode so text and
// word confidences come from a single run.
type CLIEngine struct {
	cfg    CLIConfig
	runner Runner
	logger *slog.Logger
}

func NewCLIEngine(cfg CLIConfig, runner Runner, logger *slog.Logger) *CLIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	return &CLIEngine{cfg: cfg, runner: runner, logger: logger}
}

func (e *CLIEngine) Name() string { return "tesseract-cli" }

func (e *CLIEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "liq-ocr-*")
	if err != nil {
		return Result{}, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	ext := ".png"
	switch in.Format {
	case FormatJPEG:
		ext = ".jpg"
	case FormatTIFF:
		ext = ".tif"
	}
	path := filepath.Join(tmpDir, "variant"+ext)
	if err := os.WriteFile(path, in.Image, 0o600); err != nil {
		return Result{}, fmt.Errorf("write variant: %w", err)
	}

	// tesseract <file> stdout -l ita+eng [--psm N] [--oem N] [--tessdata-dir D] tsv
	args := []string{path, "stdout", "-l", strings.Join(TesseractLanguages(in.Languages), "+")}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract TSV: %w: %s", err, truncate(string(errb), 512))
	}
	text, conf := ParseTSV(string(out))
	return Result{Text: text, Confidence: conf}, nil
}

// ParseTSV rebuilds the text from tesseract TSV word rows (one output line
// per layout line) and returns the mean word confidence in 0..100.
func ParseTSV(tsv string) (string, float64) {
	var (
		b       strings.Builder
		lineKey string
		sum, n  float64
	)
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue // header
		}
		// level page block par line word left top width height conf text
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		word := strings.TrimSpace(cols[11])
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 || word == "" {
			continue
		}
		sum += conf
		n++

		key := strings.Join(cols[1:5], ".")
		switch {
		case b.Len() == 0:
		case key != lineKey:
			b.WriteByte('\n')
		default:
			b.WriteByte(' ')
		}
		lineKey = key
		b.WriteString(word)
	}
	if n == 0 {
		return b.String(), 0
	}
	return b.String(), sum / n
}
