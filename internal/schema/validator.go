package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fuelmetrics/fuelmetrics-api/internal/textnorm"
)

// minFallbackLen keeps very short cells ("UF", "R$") out of the substring pass.
const minFallbackLen = 3

// Column is a resolved header cell.
type Column struct {
	Label string `json:"label"`
	Index int    `json:"index"`
}

// ColumnMap maps canonical fields to the header cells found for the current
// file vintage. It is built once per file and never modified.
type ColumnMap struct {
	cols map[Field]Column
}

// Lookup returns the column resolved for f.
func (m ColumnMap) Lookup(f Field) (Column, bool) {
	c, ok := m.cols[f]
	return c, ok
}

// Has reports whether f was resolved.
func (m ColumnMap) Has(f Field) bool {
	_, ok := m.cols[f]
	return ok
}

// Label returns the literal header label for f, or "".
func (m ColumnMap) Label(f Field) string {
	return m.cols[f].Label
}

// Value extracts the cell for f from a data row. Missing columns and short
// rows yield ("", false).
func (m ColumnMap) Value(row []string, f Field) (string, bool) {
	c, ok := m.cols[f]
	if !ok || c.Index >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[c.Index]), true
}

// Len returns the number of resolved fields.
func (m ColumnMap) Len() int {
	return len(m.cols)
}

// Labels returns field -> literal label for every resolved field.
func (m ColumnMap) Labels() map[string]string {
	out := make(map[string]string, len(m.cols))
	for f, c := range m.cols {
		out[string(f)] = c.Label
	}
	return out
}

// MarshalJSON renders the map as {"field": {"label": ..., "index": ...}}.
func (m ColumnMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]Column, len(m.cols))
	for f, c := range m.cols {
		out[string(f)] = c
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a map written by MarshalJSON.
func (m *ColumnMap) UnmarshalJSON(data []byte) error {
	var in map[string]Column
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.cols = make(map[Field]Column, len(in))
	for f, c := range in {
		m.cols[Field(f)] = c
	}
	return nil
}

// BuildColumnMap matches the header cells against the known labels of each
// field. An exact canonical match is tried for every field first; only then
// are still-unmatched fields allowed a substring match (either direction) on
// columns nobody has claimed. The first required field left unmatched aborts
// with *RequiredColumnMissingError.
func BuildColumnMap(header []string) (ColumnMap, error) {
	canon := make([]string, len(header))
	for i, h := range header {
		canon[i] = textnorm.CanonicalizeLabel(h)
	}

	cols := make(map[Field]Column, len(AllFields))
	claimed := make(map[int]bool, len(header))

	claim := func(f Field, idx int) {
		cols[f] = Column{Label: strings.TrimSpace(header[idx]), Index: idx}
		claimed[idx] = true
	}

	// Exact pass.
	for _, f := range AllFields {
		if idx := findExact(canon, claimed, candidateLabels[f]); idx >= 0 {
			claim(f, idx)
		}
	}

	// Substring fallback.
	for _, f := range AllFields {
		if _, ok := cols[f]; ok {
			continue
		}
		if idx := findSubstring(canon, claimed, candidateLabels[f]); idx >= 0 {
			claim(f, idx)
		}
	}

	for _, f := range RequiredFields {
		if _, ok := cols[f]; !ok {
			return ColumnMap{}, &RequiredColumnMissingError{
				Field:  f,
				Header: append([]string(nil), header...),
			}
		}
	}

	return ColumnMap{cols: cols}, nil
}

func findExact(canon []string, claimed map[int]bool, labels []string) int {
	for _, label := range labels {
		for i, c := range canon {
			if !claimed[i] && c == label {
				return i
			}
		}
	}
	return -1
}

func findSubstring(canon []string, claimed map[int]bool, labels []string) int {
	for _, label := range labels {
		for i, c := range canon {
			if claimed[i] || len(c) < minFallbackLen {
				continue
			}
			if strings.Contains(c, label) || strings.Contains(label, c) {
				return i
			}
		}
	}
	return -1
}

// UnmappedColumnWarnings flags non-empty header cells that no field claimed.
func UnmappedColumnWarnings(header []string, m ColumnMap) []string {
	claimed := make(map[int]bool, m.Len())
	for _, c := range m.cols {
		claimed[c.Index] = true
	}

	var warnings []string
	for i, h := range header {
		label := strings.TrimSpace(h)
		if label == "" || claimed[i] {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("unexpected column '%s' at position %d; values will be ignored", label, i))
	}
	return warnings
}
