package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"currency symbol and negative", "$ -1.234,56", "-1234.56"},
		{"empty", "", "0"},
		{"blank", "   ", "0"},
		{"plain integer", "1500", "1500"},
		{"thousands only", "1.500", "1500"},
		{"decimals only", "0,75", "0.75"},
		{"leading comma", ",5", "0.5"},
		{"non-breaking space", "$ 12.345,10", "12345.1"},
		{"unicode minus", "−50,00", "-50"},
		{"trailing minus", "1.234,56-", "-1234.56"},
		{"parentheses", "(1.234,56)", "-1234.56"},
		{"explicit plus", "+10,5", "10.5"},
		{"garbage", "n/a", "0"},
		{"two decimal commas", "1,2,3", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.input)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, want.Equal(got), "ParseAmount(%q) = %s, want %s", tt.input, got, want)
		})
	}
}

func TestTryParseAmount_ReportsFailures(t *testing.T) {
	_, ok := TryParseAmount("")
	assert.True(t, ok, "blank input is not a failure")

	_, ok = TryParseAmount("$ 1.000,00")
	assert.True(t, ok)

	d, ok := TryParseAmount("abc")
	assert.False(t, ok)
	assert.True(t, d.IsZero())
}

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"tax line", "Impuesto IIBB $ -123,45", "-123.45"},
		{"minus before symbol", "Cargo por venta -$ 1.234,56", "-1234.56"},
		{"unicode minus", "Envío − $ 500", "-500"},
		{"positive", "Bonificación $ 20,10", "20.1"},
		{"no amount", "Percepción IVA", "0"},
		{"empty", "", "0"},
		{"hyphen elsewhere negates", "Costo de envío - Correo $ 800,00", "-800"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAmount(tt.line)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, want.Equal(got), "ExtractAmount(%q) = %s, want %s", tt.line, got, want)
		})
	}
}

func TestExtractAmount_TakesFirstMention(t *testing.T) {
	got := ExtractAmount("Retención $ -10,00 sobre $ 1.000,00")
	assert.True(t, decimal.RequireFromString("-10").Equal(got), "got %s", got)
}
