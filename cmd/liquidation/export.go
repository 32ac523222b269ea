package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
	"github.com/joseph-ayodele/liquidation-ocr/internal/export"
)

// exportCmd renders a record, or a document printed by `run -json`, after
// it may have been corrected by hand.
func exportCmd(cfg *common.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var (
		recordPath = fs.String("record", "", "record or document JSON file (required)")
		format     = fs.String("format", export.FormatXLSX, "xlsx, csv or txt")
		out        = fs.String("out", "", "output file; stdout when empty")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *recordPath == "" {
		return fmt.Errorf("%w: -record is required", common.ErrInvalidInput)
	}

	data, err := os.ReadFile(*recordPath)
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}
	rec, err := decodeRecordFile(data)
	if err != nil {
		return err
	}

	b, contentType, err := export.NewService(cfg.Export.Currency, logger).Render(rec, *format)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err := os.Stdout.Write(b)
		return err
	}
	logger.Info("export rendered", "format", *format, "content_type", contentType)
	return writeFile(*out, b)
}

// decodeRecordFile accepts a bare record or a document carrying one.
func decodeRecordFile(data []byte) (entity.ExtractedRecord, error) {
	var wrapper struct {
		Record json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Record) > 0 && string(wrapper.Record) != "null" {
		data = wrapper.Record
	}
	rec, err := entity.DecodeRecord(data)
	if err != nil {
		return entity.ExtractedRecord{}, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return rec, nil
}
