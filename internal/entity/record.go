package entity

// HeirShare is one beneficiary line: who, how related, what share.
// Percentage is a fixed two-decimal string ("33.33") or empty when unknown.
type HeirShare struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Percentage   string `json:"percentage"`
}

// ExtractedRecord holds the fields read from a liquidation document.
// Heirs keep the order in which they appear in the text.
type ExtractedRecord struct {
	GrossAmount  *float64    `json:"gross_amount,omitempty"`
	Heirs        []HeirShare `json:"heirs"`
	PolicyNumber string      `json:"policy_number,omitempty"`
	InsuredName  string      `json:"insured_name,omitempty"`
	FiscalCode   string      `json:"fiscal_code,omitempty"`
	BirthDate    string      `json:"birth_date,omitempty"` // dd/mm/yyyy
	DeathDate    string      `json:"death_date,omitempty"` // dd/mm/yyyy
}

// MissingFieldReport lists human readable gaps found by the last extraction.
type MissingFieldReport []string

// EnsembleOutcome is the winning recognition for one page.
type EnsembleOutcome struct {
	BestText       string  `json:"best_text"`
	BestConfidence float64 `json:"best_confidence"`
	VariantLabel   string  `json:"variant_label"`
	Evaluated      int     `json:"evaluated"`
	EarlyStopped   bool    `json:"early_stopped"`
}

// Recognized reports whether any variant produced a usable result.
func (o EnsembleOutcome) Recognized() bool {
	return o.BestConfidence > 0
}
