package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
)

// Format names accepted by Service.Render.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatText = "txt"
)

const (
	sheetName = "Riparto"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeText = "text/plain; charset=utf-8"
)

var hundred = decimal.NewFromInt(100)

// Line is one heir of the liquidation with its computed payout.
type Line struct {
	Name          string
	Relationship  string
	Percentage    decimal.Decimal
	HasPercentage bool
	Payout        *money.Money
}

// Summary is the distribution of the gross amount across the heirs.
type Summary struct {
	Gross        *money.Money // nil when the record carries no amount
	Lines        []Line
	PercentTotal decimal.Decimal
	PayoutTotal  *money.Money
	Balanced     bool
}

// Service renders extracted records into downloadable files.
type Service struct {
	currency string
	logger   *slog.Logger
}

func NewService(currency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if currency == "" {
		currency = money.EUR
	}
	return &Service{currency: strings.ToUpper(currency), logger: logger}
}

// Summarize computes per-heir payouts as gross × pct / 100, rounded to cents.
// Heirs without a usable percentage count as zero.
func (s *Service) Summarize(rec entity.ExtractedRecord) (Summary, error) {
	if money.GetCurrency(s.currency) == nil {
		return Summary{}, fmt.Errorf("%w: unknown currency %q", common.ErrInvalidInput, s.currency)
	}

	gross := decimal.Zero
	sum := Summary{PayoutTotal: money.New(0, s.currency)}
	if rec.GrossAmount != nil {
		gross = decimal.NewFromFloat(*rec.GrossAmount)
		sum.Gross = s.fromDecimal(gross)
	}

	for _, h := range rec.Heirs {
		line := Line{Name: h.Name, Relationship: h.Relationship, Percentage: decimal.Zero}
		if p := strings.TrimSpace(h.Percentage); p != "" {
			pct, err := decimal.NewFromString(p)
			if err != nil {
				return Summary{}, fmt.Errorf("%w: heir %q percentage %q", common.ErrValidation, h.Name, h.Percentage)
			}
			line.Percentage = pct
			line.HasPercentage = true
		}
		line.Payout = s.fromDecimal(gross.Mul(line.Percentage).Div(hundred))

		total, err := sum.PayoutTotal.Add(line.Payout)
		if err != nil {
			return Summary{}, fmt.Errorf("sum payouts: %w", err)
		}
		sum.PayoutTotal = total
		sum.PercentTotal = sum.PercentTotal.Add(line.Percentage)
		sum.Lines = append(sum.Lines, line)
	}
	sum.Balanced = len(sum.Lines) > 0 && sum.PercentTotal.Equal(hundred)
	return sum, nil
}

// fromDecimal converts to minor units using the currency fraction.
func (s *Service) fromDecimal(amount decimal.Decimal) *money.Money {
	fraction := int32(money.GetCurrency(s.currency).Fraction)
	minor := amount.Shift(fraction).Round(0).IntPart()
	return money.New(minor, s.currency)
}

type csvRow struct {
	Name         string `csv:"Nome"`
	Relationship string `csv:"Rapporto"`
	Percentage   string `csv:"Percentuale"`
	Amount       string `csv:"Importo"`
}

// CSV renders the distribution as semicolon separated values with decimal commas.
func (s *Service) CSV(rec entity.ExtractedRecord) ([]byte, error) {
	sum, err := s.Summarize(rec)
	if err != nil {
		return nil, err
	}
	if len(sum.Lines) == 0 {
		return nil, fmt.Errorf("%w: no heirs to export", common.ErrInvalidInput)
	}

	rows := make([]*csvRow, 0, len(sum.Lines))
	for _, l := range sum.Lines {
		rows = append(rows, &csvRow{
			Name:         l.Name,
			Relationship: l.Relationship,
			Percentage:   decimalComma(l.Percentage),
			Amount:       decimalComma(s.toDecimal(l.Payout)),
		})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	sw := gocsv.NewSafeCSVWriter(w)
	if err := gocsv.MarshalCSV(rows, sw); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}
	sw.Flush()
	if err := sw.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}

	s.logger.Info("export.csv.ok", "rows", len(rows))
	return buf.Bytes(), nil
}

// XLSX renders the distribution into a workbook with a single Riparto sheet.
func (s *Service) XLSX(rec entity.ExtractedRecord) ([]byte, error) {
	start := time.Now()
	sum, err := s.Summarize(rec)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	row := 1
	write := func(col int, v any) string {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheetName, cell, v)
		return cell
	}
	number := func(col int, d decimal.Decimal) {
		cell := write(col, d.InexactFloat64())
		_ = f.SetCellStyle(sheetName, cell, cell, amountStyle)
	}

	for i, h := range []string{"Nome", "Rapporto", "Percentuale", "Importo"} {
		write(i+1, h)
	}
	_ = f.SetCellStyle(sheetName, "A1", "D1", bold)
	row++

	for _, l := range sum.Lines {
		write(1, l.Name)
		write(2, l.Relationship)
		if l.HasPercentage {
			number(3, l.Percentage)
		} else {
			write(3, "")
		}
		number(4, s.toDecimal(l.Payout))
		row++
	}

	// summary block
	row++
	label := func(text string) {
		cell := write(1, text)
		_ = f.SetCellStyle(sheetName, cell, cell, bold)
	}
	label("Importo lordo")
	if sum.Gross != nil {
		number(4, s.toDecimal(sum.Gross))
	}
	row++
	label("Totale percentuali")
	number(3, sum.PercentTotal)
	row++
	label("Totale riparto")
	number(4, s.toDecimal(sum.PayoutTotal))
	row++
	label("Quote bilanciate")
	if sum.Balanced {
		write(2, "sì")
	} else {
		write(2, "no")
	}
	row += 2

	for _, kv := range policyDetails(rec) {
		label(kv[0])
		write(2, kv[1])
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 28)
	_ = f.SetColWidth(sheetName, "B", "B", 22)
	_ = f.SetColWidth(sheetName, "C", "D", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(sum.Lines),
		"balanced", sum.Balanced,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Text renders a short human readable summary of the liquidation.
func (s *Service) Text(rec entity.ExtractedRecord) ([]byte, error) {
	sum, err := s.Summarize(rec)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Riepilogo liquidazione polizza")
	if rec.PolicyNumber != "" {
		b.WriteString(" " + rec.PolicyNumber)
	}
	b.WriteString("\n")
	if rec.InsuredName != "" {
		fmt.Fprintf(&b, "Assicurato: %s\n", rec.InsuredName)
	}
	if sum.Gross != nil {
		fmt.Fprintf(&b, "Importo lordo: %s\n", s.display(sum.Gross))
	} else {
		b.WriteString("Importo lordo: non rilevato\n")
	}
	b.WriteString("\n")
	for _, l := range sum.Lines {
		pct := "?"
		if l.HasPercentage {
			pct = decimalComma(l.Percentage) + "%"
		}
		name := strings.TrimSpace(l.Name + " " + l.Relationship)
		fmt.Fprintf(&b, "%s %s → %s\n", name, pct, s.display(l.Payout))
	}
	fmt.Fprintf(&b, "\nTotale: %s%% → %s\n", decimalComma(sum.PercentTotal), s.display(sum.PayoutTotal))
	if !sum.Balanced {
		b.WriteString("Attenzione: le quote non sommano a 100%\n")
	}
	return []byte(b.String()), nil
}

// Render dispatches on a format name and returns the payload with its content type.
func (s *Service) Render(rec entity.ExtractedRecord, format string) ([]byte, string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV:
		b, err := s.CSV(rec)
		return b, ContentTypeCSV, err
	case FormatXLSX, "":
		b, err := s.XLSX(rec)
		return b, ContentTypeXLSX, err
	case FormatText, "text":
		b, err := s.Text(rec)
		return b, ContentTypeText, err
	default:
		return nil, "", fmt.Errorf("%w: export format %q", common.ErrInvalidInput, format)
	}
}

func (s *Service) toDecimal(m *money.Money) decimal.Decimal {
	return decimal.New(m.Amount(), -int32(m.Currency().Fraction))
}

// display formats with Italian separators, e.g. "€ 1.234,56".
func (s *Service) display(m *money.Money) string {
	c := m.Currency()
	return money.NewFormatter(c.Fraction, ",", ".", c.Grapheme, "$ 1").Format(m.Amount())
}

func decimalComma(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func policyDetails(rec entity.ExtractedRecord) [][2]string {
	var out [][2]string
	add := func(k, v string) {
		if v != "" {
			out = append(out, [2]string{k, v})
		}
	}
	add("Polizza", rec.PolicyNumber)
	add("Assicurato", rec.InsuredName)
	add("Codice fiscale", rec.FiscalCode)
	add("Data di nascita", rec.BirthDate)
	add("Data decesso", rec.DeathDate)
	return out
}
