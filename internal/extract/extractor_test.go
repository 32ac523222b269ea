package extract

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
)

func newTestExtractor() *Extractor {
	n := 0
	return NewExtractor(nil, WithIDFunc(func() string {
		n++
		return "heir-" + strconv.Itoa(n)
	}))
}

func TestExtractAmount(t *testing.T) {
	rec, missing := newTestExtractor().Extract("Importo liquidabile € 12.345,67")
	require.NotNil(t, rec.GrossAmount)
	assert.InDelta(t, 12345.67, *rec.GrossAmount, 1e-9)
	assert.NotContains(t, missing, MissingAmount)
	assert.Empty(t, rec.Heirs)
}

func TestExtractAmountSynonyms(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"CAPITALE ASSICURATO: 50.000,00", 50000},
		{"Somma assicurata euro 7.500", 7500},
		{"Massimale\n€ 1.250,50", 1250.50},
		{"Importo lordo 980,00", 980},
		{"Importo liquidabile € 1234,5", 1234.5},
		{"Capitale 2.500,7", 2500.7},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			rec, _ := newTestExtractor().Extract(tt.text)
			require.NotNil(t, rec.GrossAmount)
			assert.InDelta(t, tt.want, *rec.GrossAmount, 1e-9)
		})
	}
}

func TestExtractHeirLines(t *testing.T) {
	rec, missing := newTestExtractor().Extract("Coniuge Maria Rossi 50%\nFiglio Luca Rossi 1/2")

	assert.Equal(t, []entity.HeirShare{
		{ID: "heir-1", Name: "Maria Rossi", Relationship: "Coniuge", Percentage: "50.00"},
		{ID: "heir-2", Name: "Luca Rossi", Relationship: "Figlio", Percentage: "50.00"},
	}, rec.Heirs)
	assert.Equal(t, entity.MissingFieldReport{MissingAmount}, missing)
}

func TestExtractMissingPercentage(t *testing.T) {
	rec, missing := newTestExtractor().Extract("Erede Mario Bianchi tre quarti")

	require.Len(t, rec.Heirs, 1)
	assert.Equal(t, "Mario Bianchi", rec.Heirs[0].Name)
	assert.Equal(t, "", rec.Heirs[0].Percentage)
	assert.Nil(t, rec.GrossAmount)
	assert.Equal(t, entity.MissingFieldReport{MissingAmount, MissingPercentage}, missing)
}

func TestExtractHeirWithoutName(t *testing.T) {
	rec, missing := newTestExtractor().Extract("Capitale 10.000,00\nnipote: un terzo")

	require.Len(t, rec.Heirs, 1)
	assert.Equal(t, "Nipote", rec.Heirs[0].Relationship)
	assert.Equal(t, "33.33", rec.Heirs[0].Percentage)
	assert.Equal(t, entity.MissingFieldReport{MissingName}, missing)
}

func TestExtractGlobalNamePatterns(t *testing.T) {
	rec, _ := newTestExtractor().Extract("Anna Verdi - 25%\nPAOLO NERI: 75")

	require.Len(t, rec.Heirs, 2)
	assert.Equal(t, "Anna Verdi", rec.Heirs[0].Name)
	assert.Equal(t, "25.00", rec.Heirs[0].Percentage)
	assert.Equal(t, "", rec.Heirs[0].Relationship)
	assert.Equal(t, "PAOLO NERI", rec.Heirs[1].Name)
	assert.Equal(t, "75.00", rec.Heirs[1].Percentage)
}

func TestExtractOverlappingStrategiesKeepOneEntry(t *testing.T) {
	rec, _ := newTestExtractor().Extract("Figlia ANNA BIANCHI 1/3\nConiuge Maria Rossi 2/3\nLuigi Verdi 10%")

	require.Len(t, rec.Heirs, 3)
	assert.Equal(t, "ANNA BIANCHI", rec.Heirs[0].Name)
	assert.Equal(t, "33.33", rec.Heirs[0].Percentage)
	assert.Equal(t, "Maria Rossi", rec.Heirs[1].Name)
	assert.Equal(t, "66.67", rec.Heirs[1].Percentage)
	assert.Equal(t, "Luigi Verdi", rec.Heirs[2].Name)
	assert.Equal(t, "", rec.Heirs[2].Relationship)
}

func TestExtractIgnoresAmountsAsShares(t *testing.T) {
	rec, _ := newTestExtractor().Extract("Totale Liquidato 12.345,67")
	assert.Empty(t, rec.Heirs)
}

func TestExtractHeirLineWithAmountHasNoShare(t *testing.T) {
	rec, missing := newTestExtractor().Extract("Coniuge Maria Rossi importo 12.345,67")

	require.Len(t, rec.Heirs, 1)
	assert.Equal(t, "Maria Rossi", rec.Heirs[0].Name)
	assert.Equal(t, "Coniuge", rec.Heirs[0].Relationship)
	assert.Equal(t, "", rec.Heirs[0].Percentage)
	assert.Contains(t, missing, MissingPercentage)
}

func TestExtractLabeledFields(t *testing.T) {
	text := `Polizza n. 123456
Nome e cognome dell'assicurato: Mario Rossi
Codice fiscale: RSSMRA8OA12H501I
Data di nascita dell'assicurato 7.11.65
Data del decesso: 3/4/23`

	rec, _ := newTestExtractor().Extract(text)
	assert.Equal(t, "123456", rec.PolicyNumber)
	assert.Equal(t, "Mario Rossi", rec.InsuredName)
	assert.Equal(t, "RSSMRA80A12H5011", rec.FiscalCode)
	assert.Equal(t, "07/11/1965", rec.BirthDate)
	assert.Equal(t, "03/04/2023", rec.DeathDate)
}

func TestExtractLowerCaseInsuredName(t *testing.T) {
	rec, _ := newTestExtractor().Extract("nome e cognome dell'assicurato: mario rossi")
	assert.Equal(t, "mario rossi", rec.InsuredName)
}

func TestExtractPreprocessing(t *testing.T) {
	rec, _ := newTestExtractor().Extract("\r\n   Codice fiscale   RSSMRA80A12H50|I  \r\n\r\n")
	assert.Equal(t, "RSSMRA80A12H5011", rec.FiscalCode)

	lines, joined := prepare("  a \n\n  b|c  \n")
	assert.Equal(t, []string{"a", "bIc"}, lines)
	assert.Equal(t, "a\nbIc", joined)
}

func TestExtractEmptyText(t *testing.T) {
	rec, missing := newTestExtractor().Extract("")
	assert.NotNil(t, rec.Heirs)
	assert.Empty(t, rec.Heirs)
	assert.Equal(t, entity.MissingFieldReport{MissingAmount}, missing)
}

func TestExtractAssignsFreshIDs(t *testing.T) {
	rec, _ := NewExtractor(nil).Extract("Padre Carlo Neri 50\nMadre Lucia Neri 50")
	require.Len(t, rec.Heirs, 2)
	assert.NotEmpty(t, rec.Heirs[0].ID)
	assert.NotEqual(t, rec.Heirs[0].ID, rec.Heirs[1].ID)
}

func TestCheck(t *testing.T) {
	amount := 10.0
	report := Check(entity.ExtractedRecord{
		GrossAmount: &amount,
		Heirs: []entity.HeirShare{
			{Name: "", Percentage: "50.00"},
			{Name: "Luca", Percentage: " "},
		},
	})
	assert.Equal(t, entity.MissingFieldReport{MissingName, MissingPercentage}, report)
}
