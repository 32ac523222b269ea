package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var (
	jpegSOI = []byte{0xFF, 0xD8, 0xFF}
	jpegEOI = []byte{0xFF, 0xD9}
)

// CarveJPEGs returns the JPEG streams embedded in a PDF, in file order.
// Scanned PDFs usually store each page as one DCT image, so this recovers the
// pages without a PDF renderer. Streams whose header does not parse are dropped.
func CarveJPEGs(data []byte) [][]byte {
	var out [][]byte
	for i := 0; i < len(data); {
		start := bytes.Index(data[i:], jpegSOI)
		if start < 0 {
			break
		}
		start += i
		end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
		if end < 0 {
			break
		}
		end += start + len(jpegSOI) + len(jpegEOI)

		chunk := data[start:end]
		if _, format, err := image.DecodeConfig(bytes.NewReader(chunk)); err == nil && format == "jpeg" {
			out = append(out, bytes.Clone(chunk))
		}
		i = end
	}
	return out
}

// rasterizePDF renders every page with pdftoppm into a temp dir and reads the
// PNGs back in page order.
func (l *Loader) rasterizePDF(ctx context.Context, path string) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp("", "liq-pdf-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	args := []string{"-r", strconv.Itoa(l.cfg.DPI), "-png"}
	if l.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(l.cfg.MaxPages))
	}
	args = append(args, path, filepath.Join(tmpDir, "page"))
	if _, stderr, err := l.runner.Run(ctx, l.cfg.Pdftoppm, l.logger, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(string(stderr)))
	}

	files, err := filepath.Glob(filepath.Join(tmpDir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return pageNumber(files[i]) < pageNumber(files[j]) })

	out := make([][]byte, 0, len(files))
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read rendered page: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

// pageNumber parses N from ".../page-N.png"; pdftoppm zero-pads N by page count.
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	n, _ := strconv.Atoi(base[strings.LastIndexByte(base, '-')+1:])
	return n
}
