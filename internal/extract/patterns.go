package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
)

const (
	dateSep   = `[\s\-/._:–—]*`
	shareNum  = `\d+\s*/\s*\d+|\d{1,3}(?:[.,]\d+)?`
	shareWord = `(?i:(?:uno|un|due|tre|quattro)\s+(?:terzo|terzi|quarto|quarti)|(?:one|a|two|three|four)\s+(?:thirds?|quarters?|fourths?))`
)

var (
	amountRe = regexp.MustCompile(`(?i)(?:capitale(?:\s+assicurato)?|importo(?:\s+(?:liquidabile|lordo))?|somma\s+assicurata|massimale)[^0-9€]*€?\s*([0-9]{1,3}(?:\.[0-9]{3})+(?:,[0-9]{1,2})?|[0-9]+(?:,[0-9]{1,2})?)`)

	policyRe     = regexp.MustCompile(`(?i)poliz[a-z]*\s*(?:n\.?|num(?:ero)?)?[^0-9a-z]*([0-9]{3,})`)
	deathDateRe  = regexp.MustCompile(`(?i)deces{1,2}o[^\d]*([0-3]?\d)` + dateSep + `([01]?\d)` + dateSep + `((?:19|20)?\d{2})\b`)
	birthDateRe  = regexp.MustCompile(`(?i)data\s*di\s*nascita(?:\s*dell?'?\s*assicurato)?[^\d]*([0-3]?\d)` + dateSep + `([01]?\d)` + dateSep + `((?:19|20)?\d{2})\b`)
	insuredRe    = regexp.MustCompile(`(?i:nome\s*e\s*cognome\s*dell?'?\s*assicurato)[^\n]*?\s*(\p{L}[\p{L}' ]{2,})`)
	fiscalCodeRe = regexp.MustCompile(`(?i)codice\s*fiscale[^A-Z0-9]*([A-Z0-9]{11,16})`)

	// two capitalised words followed by a share, anywhere in the text
	mixedCaseHeirRe = regexp.MustCompile(`(\p{Lu}[\p{Ll}']+[ \t]+\p{Lu}[\p{Ll}']+)[ \t]*[-–:]?[ \t]*(` + shareNum + `)\b[ \t]*%?`)
	upperCaseHeirRe = regexp.MustCompile(`(\p{Lu}{2,}[ \t]+\p{Lu}{2,})[ \t]*[-–:]?[ \t]*(` + shareNum + `)\b[ \t]*%?`)

	heirLineRe = buildHeirLinePattern(constants.RelationshipKeywords())
)

// buildHeirLinePattern matches "<relationship> [Name Surname] <share>" on one
// line. The keyword is case-insensitive, the name must be capitalised.
func buildHeirLinePattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(
		`(?i:\b(` + strings.Join(quoted, "|") + `)\b)` +
			`[^%\n\p{Lu}\d]*` +
			`(\p{Lu}[\p{L}']+[ \t]+\p{Lu}[\p{L}']+)?` +
			`[^%\n\d]*?` +
			`(` + shareNum + `|` + shareWord + `)[ \t]*%?`,
	)
}
