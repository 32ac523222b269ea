package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// convertHEIC converts a HEIC/HEIF photo to PNG bytes. When an artifact cache
// dir is configured the PNG is kept as {cache}/{sha256}.png and reused.
func (l *Loader) convertHEIC(ctx context.Context, in string, data []byte) ([]byte, []string, error) {
	sum := sha256.Sum256(data)
	hashHex := hex.EncodeToString(sum[:])

	var cached string
	if l.cfg.ArtifactCacheDir != "" {
		cached = filepath.Join(l.cfg.ArtifactCacheDir, hashHex+".png")
		if b, err := os.ReadFile(cached); err == nil {
			l.logger.Debug("using cached heic->png", "cache", cached)
			return b, nil, nil
		}
		if err := os.MkdirAll(l.cfg.ArtifactCacheDir, 0o755); err != nil {
			return nil, nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "liq-heic-*")
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	out := filepath.Join(tmpDir, "page.png")

	var args []string
	switch l.cfg.HeicConverter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return nil, nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if _, errb, err := l.runner.Run(ctx, l.cfg.HeicConverter, l.logger, args...); err != nil {
		return nil, []string{string(errb)}, fmt.Errorf("%s failed: %w", l.cfg.HeicConverter, err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		return nil, nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}

	if cached != "" {
		if err := writeAtomic(cached, b); err != nil {
			l.logger.Warn("failed to cache heic->png", "cache", cached, "error", err)
		} else {
			l.logger.Debug("cached heic->png", "cache", cached)
		}
	}
	return b, nil, nil
}

// writeAtomic writes via a sibling temp file so concurrent readers never see
// a partial PNG.
func writeAtomic(path string, b []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".heic-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
