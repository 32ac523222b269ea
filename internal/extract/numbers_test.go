package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFractionToPercent(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1/3", 33.33, true},
		{"2/4", 50.00, true},
		{"2 / 3", 66.67, true},
		{"quota 1/2 ciascuno", 50.00, true},
		{"1/0", 0, false},
		{"metà", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := FractionToPercent(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestWordsToPercent(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"due terzi", 66.67, true},
		{"Due  Terzi", 66.67, true},
		{"un terzo", 33.33, true},
		{"uno terzo", 33.33, true},
		{"quattro quarti", 100, true},
		{"two thirds", 66.67, true},
		{"tre quarti", 0, false},
		{"la metà", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := WordsToPercent(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParsePercent(t *testing.T) {
	v, ok := ParsePercent("33,5")
	assert.True(t, ok)
	assert.InDelta(t, 33.5, v, 1e-9)

	v, ok = ParsePercent("50%")
	assert.True(t, ok)
	assert.InDelta(t, 50.0, v, 1e-9)

	_, ok = ParsePercent("cinquanta")
	assert.False(t, ok)
}

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.345,67", 12345.67, true},
		{"1.000.000", 1000000, true},
		{"250,00", 250, true},
		{"42", 42, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLocaleNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSharePercent(t *testing.T) {
	assert.Equal(t, "50.00", sharePercent("50"))
	assert.Equal(t, "33.50", sharePercent("33,5"))
	assert.Equal(t, "66.67", sharePercent("2/3"))
	assert.Equal(t, "33.33", sharePercent("un terzo"))
	assert.Equal(t, "", sharePercent("tre quarti"))
	assert.Equal(t, "", sharePercent("1/0"))
	assert.Equal(t, "12.35", FormatPercent(12.345))
}
