package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
)

func TestBuildEngine(t *testing.T) {
	tests := []struct {
		engine, apiKey, want string
	}{
		{"vision", "key", "vision"},
		{"tesseract", "", "tesseract"},
		{"cli", "", "tesseract-cli"},
		{"chain", "", "chain(tesseract,tesseract-cli)"},
		{"chain", "key", "chain(vision,tesseract,tesseract-cli)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := common.LoadConfig()
			cfg.OCR.Engine = tt.engine
			cfg.Vision.APIKey = tt.apiKey
			e, err := buildEngine(cfg, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Name())
		})
	}

	cfg := common.LoadConfig()
	cfg.OCR.Engine = "abbyy"
	_, err := buildEngine(cfg, nil, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "out/riparto.xlsx", outputPath("out/riparto.xlsx", "docs/a.pdf", false))
	assert.Equal(t, "out/riparto-a.xlsx", outputPath("out/riparto.xlsx", "docs/a.pdf", true))
	assert.Equal(t, "riparto-scan 1.csv", outputPath("riparto.csv", "/x/scan 1.jpeg", true))
}

func TestDecodeRecordFile(t *testing.T) {
	bare := []byte(`{"gross_amount": 100, "heirs": [{"name": "Anna Neri", "percentage": "100.00"}]}`)
	rec, err := decodeRecordFile(bare)
	require.NoError(t, err)
	require.Len(t, rec.Heirs, 1)
	assert.Equal(t, "Anna Neri", rec.Heirs[0].Name)

	doc := []byte(`{"id": "x", "status": "EXTRACTED", "record": {"heirs": [], "policy_number": "42"}}`)
	rec, err = decodeRecordFile(doc)
	require.NoError(t, err)
	assert.Equal(t, "42", rec.PolicyNumber)

	_, err = decodeRecordFile([]byte(`{"heirs": [], "policy_number": "A-1"}`))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"/a", "/b"}, splitList(" /a, ,/b "))
	assert.Nil(t, splitList(""))
}
