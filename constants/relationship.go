package constants

import (
	"strings"
	"unicode"
)

// Relationship is the heir's relation to the insured, as printed on liquidation forms.
type Relationship string

const (
	Spouse      Relationship = "Coniuge"
	Son         Relationship = "Figlio"
	Daughter    Relationship = "Figlia"
	Partner     Relationship = "Convivente"
	Father      Relationship = "Padre"
	Mother      Relationship = "Madre"
	Brother     Relationship = "Fratello"
	Sister      Relationship = "Sorella"
	Grandchild  Relationship = "Nipote"
	GenericHeir Relationship = "Erede"
)

var allRelationships = []Relationship{
	Spouse,
	Son,
	Daughter,
	Partner,
	Father,
	Mother,
	Brother,
	Sister,
	Grandchild,
	GenericHeir,
}

// RelationshipKeywords returns the printed keywords in matching order.
func RelationshipKeywords() []string {
	result := make([]string, len(allRelationships))
	for i, r := range allRelationships {
		result[i] = string(r)
	}
	return result
}

// CanonicalizeRelationship maps a matched keyword (any case) or a common synonym
// to its canonical form. Unknown input is returned title-cased with ok=false.
func CanonicalizeRelationship(input string) (Relationship, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Relationship{
		"moglie":   Spouse,
		"marito":   Spouse,
		"spouse":   Spouse,
		"wife":     Spouse,
		"husband":  Spouse,
		"son":      Son,
		"daughter": Daughter,
		"partner":  Partner,
		"father":   Father,
		"mother":   Mother,
		"brother":  Brother,
		"sister":   Sister,
		"nephew":   Grandchild,
		"niece":    Grandchild,
		"heir":     GenericHeir,
	}
	if rel, ok := synonyms[normalized]; ok {
		return rel, true
	}

	for _, rel := range allRelationships {
		if normalized == strings.ToLower(string(rel)) {
			return rel, true
		}
	}

	runes := []rune(normalized)
	runes[0] = unicode.ToUpper(runes[0])
	return Relationship(runes), false
}
