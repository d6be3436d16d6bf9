package config

import (
	"fmt"
	"os"

	"github.com/dvloznov/settlement-tracker/internal/fees"
	"github.com/dvloznov/settlement-tracker/internal/sheet"
	"gopkg.in/yaml.v3"
)

// VocabularyFile is the YAML layout of a vocabulary override:
//
//	tax: [Ganancias]
//	shipping: [flete]
//	header_labels:
//	  operation_id: ["Operación"]
type VocabularyFile struct {
	Tax          []string            `yaml:"tax"`
	Shipping     []string            `yaml:"shipping"`
	HeaderLabels map[string][]string `yaml:"header_labels"`
}

// Vocabulary is the effective keyword and header tables.
type Vocabulary struct {
	Fees    fees.Vocabulary
	Headers sheet.HeaderLabels
}

// DefaultVocabulary returns the built-in tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{Fees: fees.DefaultVocabulary(), Headers: sheet.DefaultHeaderLabels()}
}

// LoadVocabulary reads a YAML override and merges it into the defaults.
// An empty path returns the defaults.
func LoadVocabulary(path string) (Vocabulary, error) {
	v := DefaultVocabulary()
	if path == "" {
		return v, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("LoadVocabulary: reading %s: %w", path, err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary merges a YAML override into the defaults.
func ParseVocabulary(data []byte) (Vocabulary, error) {
	v := DefaultVocabulary()

	var file VocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return v, fmt.Errorf("ParseVocabulary: %w", err)
	}

	v.Fees = v.Fees.Merge(fees.Vocabulary{Tax: file.Tax, Shipping: file.Shipping})

	extra := sheet.HeaderLabels{}
	for name, labels := range file.HeaderLabels {
		col, ok := sheet.ParseColumn(name)
		if !ok {
			return v, fmt.Errorf("ParseVocabulary: unknown column %q", name)
		}
		extra[col] = append(extra[col], labels...)
	}
	v.Headers = v.Headers.Merge(extra)
	return v, nil
}
