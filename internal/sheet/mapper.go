// =============================================================================
// Invoice Automation - Column Mapper
// =============================================================================
//
// Maps canonical fields (po, item, net, gross, ...) to column positions under a
// header row. Header text in real documents varies per supplier and language,
// so every field carries a list of synonyms; the synonym table is turned into
// an immutable reverse index once, at configuration load time.
//
// NORMALIZATION:
//   Header cells and synonyms are compared after Unicode NFKC normalization,
//   lower-casing, trimming and whitespace collapsing. NFKC folds full-width
//   punctuation ("（ＳＦ）") onto its ASCII form ("(sf)"), which CJK spreadsheets
//   mix freely.
//
// =============================================================================

package sheet

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/types"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// HEADER INDEX
// =============================================================================

// HeaderEntry is one row of the synonym table: a canonical field and the
// header texts that identify it.
type HeaderEntry struct {
	Field    types.Field `yaml:"field" json:"field"`
	Synonyms []string    `yaml:"synonyms" json:"synonyms"`
}

// Conflict describes a synonym claimed by more than one field. The first
// registration wins.
type Conflict struct {
	Synonym string
	Kept    types.Field
	Ignored types.Field
}

// String returns a human readable description of the conflict.
func (c Conflict) String() string {
	return fmt.Sprintf("synonym %q claimed by %q and %q (keeping %q)", c.Synonym, c.Kept, c.Ignored, c.Kept)
}

// HeaderIndex is a read-only lookup from normalized header text to field.
type HeaderIndex struct {
	lookup map[string]types.Field
	fields []types.Field
}

// NewHeaderIndex builds the reverse lookup from an ordered synonym table.
//
// PARAMETERS:
//   - entries: The synonym table in priority order.
//
// RETURNS:
//   - The index.
//   - Every synonym collision found. The index is still usable: the earliest
//     entry keeps the synonym. Callers decide whether collisions are fatal.
func NewHeaderIndex(entries []HeaderEntry) (*HeaderIndex, []Conflict) {
	idx := &HeaderIndex{lookup: make(map[string]types.Field)}
	var conflicts []Conflict

	for _, e := range entries {
		idx.fields = append(idx.fields, e.Field)

		// The canonical name itself always identifies the field.
		synonyms := append([]string{string(e.Field)}, e.Synonyms...)
		for _, s := range synonyms {
			key := NormalizeHeader(s)
			if key == "" {
				continue
			}
			if owner, taken := idx.lookup[key]; taken {
				if owner != e.Field {
					conflicts = append(conflicts, Conflict{Synonym: key, Kept: owner, Ignored: e.Field})
				}
				continue
			}
			idx.lookup[key] = e.Field
		}
	}

	return idx, conflicts
}

// Lookup returns the field for a header cell's text.
func (idx *HeaderIndex) Lookup(text string) (types.Field, bool) {
	f, ok := idx.lookup[NormalizeHeader(text)]
	return f, ok
}

// Fields returns the indexed fields in registration order.
func (idx *HeaderIndex) Fields() []types.Field {
	return append([]types.Field(nil), idx.fields...)
}

// Len returns the number of distinct synonyms.
func (idx *HeaderIndex) Len() int { return len(idx.lookup) }

// NormalizeHeader folds header text for comparison.
func NormalizeHeader(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// =============================================================================
// COLUMN MAPPING
// =============================================================================

// MapColumns reads one header row left to right and records the first column
// whose text resolves to each field.
//
// PARAMETERS:
//   - grid: The worksheet.
//   - headerRow: The 1-based header row.
//   - maxCol: Last column to inspect.
//   - index: The synonym index.
//   - expected: Fields the caller hopes to find; absences are logged.
//   - logger: Receives duplicate and missing column diagnostics.
//
// RETURNS:
//   - The mapping. It may be empty; callers that need particular fields
//     check for them (see validation.ValidateMapping).
func MapColumns(grid types.Grid, headerRow, maxCol int, index *HeaderIndex, expected []types.Field, logger *slog.Logger) types.ColumnMapping {
	mapping := make(types.ColumnMapping)
	lastCol := min(maxCol, grid.MaxCol())

	for c := 1; c <= lastCol; c++ {
		v := grid.Cell(headerRow, c)
		if v.IsBlank() {
			continue
		}
		field, ok := index.Lookup(v.String())
		if !ok {
			continue
		}
		if prev, taken := mapping[field]; taken {
			logger.Warn("duplicate header column ignored",
				"field", field, "row", headerRow, "column", c, "kept_column", prev, "text", v.String())
			continue
		}
		mapping[field] = c
	}

	for _, f := range expected {
		if _, ok := mapping[f]; !ok {
			logger.Warn("expected header not found", "field", f, "row", headerRow)
		}
	}

	return mapping
}

// OrderedFields returns the mapped fields sorted by column position.
func OrderedFields(mapping types.ColumnMapping) []types.Field {
	fields := make([]types.Field, 0, len(mapping))
	for f := range mapping {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return mapping[fields[i]] < mapping[fields[j]] })
	return fields
}
