package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRecordJSON(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"minimal", `{"heirs":[]}`, false},
		{"full", `{"gross_amount":12345.67,"policy_number":"123456","fiscal_code":"RSSMRA80A12H5011","death_date":"03/04/2023","heirs":[{"id":"a","name":"Maria Rossi","relationship":"Coniuge","percentage":"50.00"},{"name":"","percentage":""}]}`, false},
		{"missing heirs", `{"gross_amount":1}`, true},
		{"negative amount", `{"heirs":[],"gross_amount":-1}`, true},
		{"bad percentage", `{"heirs":[{"name":"x","percentage":"50%"}]}`, true},
		{"bad date", `{"heirs":[],"birth_date":"1980-01-01"}`, true},
		{"unknown field", `{"heirs":[],"iban":"IT00"}`, true},
		{"not json", `{`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecordJSON([]byte(tt.json))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"gross_amount":1000,"heirs":[{"name":"Luca Rossi","relationship":"Figlio","percentage":"50.00"}]}`))
	require.NoError(t, err)
	require.NotNil(t, rec.GrossAmount)
	assert.Equal(t, 1000.0, *rec.GrossAmount)
	assert.Equal(t, "Luca Rossi", rec.Heirs[0].Name)

	require.NoError(t, ExtractedRecord{}.Validate(), "nil heirs are treated as empty")
}

func TestDocumentMeanConfidence(t *testing.T) {
	doc := Document{Pages: []PageOutcome{
		{Index: 0, EnsembleOutcome: EnsembleOutcome{BestConfidence: 90}},
		{Index: 1},
		{Index: 2, EnsembleOutcome: EnsembleOutcome{BestConfidence: 80}},
	}}
	assert.InDelta(t, 85.0, doc.MeanConfidence(), 1e-9)
	assert.Zero(t, (&Document{}).MeanConfidence())
}
