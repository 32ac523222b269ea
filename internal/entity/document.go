package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
)

// PageOutcome is the ensemble result for one page of a document.
type PageOutcome struct {
	Index int `json:"index"`
	EnsembleOutcome
}

// Document represents a processed source file for data transfer between layers.
type Document struct {
	ID           uuid.UUID                `json:"id"`
	SourcePath   string                   `json:"source_path"`
	Format       constants.Format         `json:"format"`
	Status       constants.DocumentStatus `json:"status"`
	ErrorMessage string                   `json:"error_message,omitempty"`
	Pages        []PageOutcome            `json:"pages"`
	Text         string                   `json:"text"`
	Record       ExtractedRecord          `json:"record"`
	Missing      MissingFieldReport       `json:"missing"`
	Warnings     []string                 `json:"warnings,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// MeanConfidence averages best confidence over recognized pages.
func (d *Document) MeanConfidence() float64 {
	var sum float64
	var n int
	for _, p := range d.Pages {
		if p.Recognized() {
			sum += p.BestConfidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
