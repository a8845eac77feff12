package schema

import (
	"strings"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/textnorm"
)

// Resolution is the outcome of locating a header row and mapping its columns.
type Resolution struct {
	HeaderRow int       `json:"header_row"`
	Header    []string  `json:"header"`
	Columns   ColumnMap `json:"columns"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// Resolver locates the header row of a RawGrid and builds its ColumnMap.
// It holds only its policy, so one instance can serve concurrent callers.
type Resolver struct {
	policy AnchorPolicy
}

// NewResolver creates a resolver with the given policy. Zero-valued policy
// fields fall back to the defaults.
func NewResolver(policy AnchorPolicy) *Resolver {
	def := DefaultAnchorPolicy()
	if len(policy.Anchors) == 0 {
		policy.Anchors = def.Anchors
	}
	if policy.MinMatches <= 0 {
		policy.MinMatches = def.MinMatches
	}
	if policy.ScanRows <= 0 {
		policy.ScanRows = def.ScanRows
	}
	return &Resolver{policy: policy}
}

// Policy returns the policy in effect.
func (r *Resolver) Policy() AnchorPolicy {
	return r.policy
}

// Resolve finds the header row and maps its columns to canonical fields.
func (r *Resolver) Resolve(grid models.RawGrid) (*Resolution, error) {
	headerRow, err := r.DetectHeader(grid)
	if err != nil {
		return nil, err
	}

	header := grid[headerRow]
	columns, err := BuildColumnMap(header)
	if err != nil {
		return nil, err
	}

	return &Resolution{
		HeaderRow: headerRow,
		Header:    append([]string(nil), header...),
		Columns:   columns,
		Warnings:  UnmappedColumnWarnings(header, columns),
	}, nil
}

// DetectHeader scores each of the first ScanRows rows by the number of
// distinct anchors found in its signature and returns the index of the best
// row. Ties go to the row matching a specific anchor, then to the earliest.
func (r *Resolver) DetectHeader(grid models.RawGrid) (int, error) {
	if len(grid) == 0 {
		return 0, ErrEmptyGrid
	}

	limit := r.policy.ScanRows
	if limit > len(grid) {
		limit = len(grid)
	}

	bestRow := -1
	bestScore := 0
	bestSpecific := false
	maxSeen := 0

	for i := 0; i < limit; i++ {
		score, specific := r.scoreRow(grid[i])
		if score > maxSeen {
			maxSeen = score
		}
		if score < r.policy.MinMatches {
			continue
		}
		if bestRow < 0 || score > bestScore || (score == bestScore && specific && !bestSpecific) {
			bestRow = i
			bestScore = score
			bestSpecific = specific
		}
	}

	if bestRow < 0 {
		return 0, &SchemaNotFoundError{
			RowsScanned: limit,
			BestScore:   maxSeen,
			MinMatches:  r.policy.MinMatches,
		}
	}
	return bestRow, nil
}

// scoreRow counts distinct anchor labels present in the row signature.
func (r *Resolver) scoreRow(row []string) (score int, specific bool) {
	sig := rowSignature(row)
	if sig == "" {
		return 0, false
	}
	seen := make(map[string]bool, len(r.policy.Anchors))
	for _, a := range r.policy.Anchors {
		if seen[a.Label] || !strings.Contains(sig, a.Label) {
			continue
		}
		seen[a.Label] = true
		score++
		if a.Specific {
			specific = true
		}
	}
	return score, specific
}

// rowSignature joins the canonical form of every non-empty cell with "|".
func rowSignature(row []string) string {
	parts := make([]string, 0, len(row))
	for _, cell := range row {
		if c := textnorm.CanonicalizeLabel(cell); c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "|" + strings.Join(parts, "|") + "|"
}
