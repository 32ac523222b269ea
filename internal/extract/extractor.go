// Package extract turns recognized liquidation text into a structured record.
// Every strategy is tolerant: a pattern that does not match leaves its field
// empty and the gap is reported, never returned as an error.
package extract

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
)

// Report entries.
const (
	MissingAmount     = "amount not found"
	MissingName       = "name missing"
	MissingPercentage = "percentage missing"
)

type Option func(*Extractor)

// WithIDFunc replaces the heir id generator.
func WithIDFunc(fn func() string) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

type Extractor struct {
	newID  func() string
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{newID: uuid.NewString, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type span struct{ start, end int }

func (s span) overlaps(o span) bool { return s.start < o.end && o.start < s.end }

type heirMatch struct {
	span
	heir entity.HeirShare
}

// Extract reads every known field from text and reports what is missing.
func (e *Extractor) Extract(text string) (entity.ExtractedRecord, entity.MissingFieldReport) {
	lines, joined := prepare(text)

	rec := entity.ExtractedRecord{Heirs: []entity.HeirShare{}}
	if m := amountRe.FindStringSubmatch(joined); m != nil {
		if v, ok := ParseLocaleNumber(m[1]); ok {
			rec.GrossAmount = &v
		}
	}
	if m := policyRe.FindStringSubmatch(joined); m != nil {
		rec.PolicyNumber = m[1]
	}
	if m := deathDateRe.FindStringSubmatch(joined); m != nil {
		rec.DeathDate = formatDate(m[1], m[2], m[3], "20")
	}
	if m := birthDateRe.FindStringSubmatch(joined); m != nil {
		rec.BirthDate = formatDate(m[1], m[2], m[3], "19")
	}
	if m := insuredRe.FindStringSubmatch(joined); m != nil {
		rec.InsuredName = strings.TrimSpace(spacesRe.ReplaceAllString(m[1], " "))
	}
	if m := fiscalCodeRe.FindStringSubmatch(joined); m != nil {
		rec.FiscalCode = correctFiscalCode(m[1])
	}

	for _, h := range e.heirs(lines, joined) {
		rec.Heirs = append(rec.Heirs, h.heir)
	}

	missing := Check(rec)
	e.logger.Debug("extract.done",
		"heirs", len(rec.Heirs),
		"has_amount", rec.GrossAmount != nil,
		"missing", len(missing),
	)
	return rec, missing
}

// heirs runs the labeled line pattern first, then the mixed-case and then
// the all-caps name patterns; on overlap that is the order of precedence.
// A later match whose span overlaps an accepted one is the same text read
// twice and is dropped; the rest come back in text order.
func (e *Extractor) heirs(lines []string, joined string) []heirMatch {
	var accepted []heirMatch
	accept := func(m heirMatch) {
		for _, a := range accepted {
			if a.overlaps(m.span) {
				return
			}
		}
		accepted = append(accepted, m)
	}

	offset := 0
	for _, line := range lines {
		if idx := heirLineRe.FindStringSubmatchIndex(line); idx != nil {
			rel, _ := constants.CanonicalizeRelationship(line[idx[2]:idx[3]])
			name := ""
			if idx[4] >= 0 {
				name = strings.TrimSpace(line[idx[4]:idx[5]])
			}
			// an amount on the line is not a share; keep the heir so it is reported
			pct := ""
			if !continuesNumber(line, idx[7]) {
				pct = sharePercent(line[idx[6]:idx[7]])
			}
			accept(heirMatch{
				span: span{offset + idx[0], offset + idx[1]},
				heir: entity.HeirShare{
					ID:           e.newID(),
					Name:         name,
					Relationship: string(rel),
					Percentage:   pct,
				},
			})
		}
		offset += len(line) + 1
	}

	for _, re := range []*regexp.Regexp{mixedCaseHeirRe, upperCaseHeirRe} {
		for _, idx := range re.FindAllStringSubmatchIndex(joined, -1) {
			if continuesNumber(joined, idx[5]) {
				continue
			}
			accept(heirMatch{
				span: span{idx[0], idx[1]},
				heir: entity.HeirShare{
					ID:         e.newID(),
					Name:       strings.TrimSpace(joined[idx[2]:idx[3]]),
					Percentage: sharePercent(joined[idx[4]:idx[5]]),
				},
			})
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })
	return accepted
}

// Check builds the advisory report for rec.
func Check(rec entity.ExtractedRecord) entity.MissingFieldReport {
	report := entity.MissingFieldReport{}
	if rec.GrossAmount == nil {
		report = append(report, MissingAmount)
	}
	for _, h := range rec.Heirs {
		if strings.TrimSpace(h.Name) == "" {
			report = append(report, MissingName)
		}
		if strings.TrimSpace(h.Percentage) == "" {
			report = append(report, MissingPercentage)
		}
	}
	return report
}

// prepare fixes the '|' for 'I' confusion, trims lines and drops blank ones.
func prepare(text string) ([]string, string) {
	text = strings.ReplaceAll(text, "|", "I")
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, strings.Join(lines, "\n")
}

// continuesNumber reports whether the number ending at pos is really the
// head of a longer one, e.g. "12" in "12.345,67".
func continuesNumber(s string, pos int) bool {
	if pos >= len(s) {
		return false
	}
	if isDigit(s[pos]) {
		return true
	}
	return (s[pos] == '.' || s[pos] == ',') && pos+1 < len(s) && isDigit(s[pos+1])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func formatDate(day, month, year, century string) string {
	if len(year) == 2 {
		year = century + year
	}
	return pad2(day) + "/" + pad2(month) + "/" + year
}

func pad2(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func correctFiscalCode(code string) string {
	return strings.NewReplacer("O", "0", "I", "1").Replace(strings.ToUpper(strings.TrimSpace(code)))
}
