// =============================================================================
// Invoice Automation - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - sheet      (header detection, column mapping, table extraction)
//   - numeric    (decimal conversion, CBM parsing)
//   - processor  (value distribution)
//   - aggregate  (aggregation and FOB compounding)
//   - report     (serialization)
//
// =============================================================================

package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CANONICAL FIELDS
// =============================================================================

// Field is a canonical field name. Many header synonyms resolve to one Field.
type Field string

const (
	FieldPO                Field = "po"
	FieldItem              Field = "item"
	FieldPCS               Field = "pcs"
	FieldNet               Field = "net"
	FieldGross             Field = "gross"
	FieldUnit              Field = "unit"
	FieldSqft              Field = "sqft"
	FieldCBM               Field = "cbm"
	FieldDesc              Field = "desc"
	FieldAmount            Field = "amount"
	FieldInvNo             Field = "inv_no"
	FieldInvDate           Field = "inv_date"
	FieldBatchNo           Field = "batch_no"
	FieldLineNo            Field = "line_no"
	FieldDirection         Field = "direction"
	FieldProductionDate    Field = "production_date"
	FieldProductionOrderNo Field = "production_order_no"
	FieldReferenceCode     Field = "reference_code"
	FieldLevel             Field = "level"
	FieldPalletCount       Field = "pallet_count"
	FieldManualNo          Field = "manual_no"
	FieldRemarks           Field = "remarks"
)

// =============================================================================
// CELL VALUES
// =============================================================================

// ValueKind distinguishes a blank cell from text and numeric content.
type ValueKind int

const (
	// KindBlank is an empty or whitespace-only cell.
	KindBlank ValueKind = iota

	// KindText is non-numeric text.
	KindText

	// KindNumber is an exact decimal number.
	KindNumber
)

// Value is a single cell value as read from a grid.
type Value struct {
	Kind ValueKind
	Text string
	Num  decimal.Decimal
}

// Blank returns the blank value.
func Blank() Value { return Value{Kind: KindBlank} }

// Text returns a text value. Surrounding whitespace is trimmed and an empty
// result collapses to Blank.
func Text(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Blank()
	}
	return Value{Kind: KindText, Text: s}
}

// Number returns a numeric value. The display text keeps the decimal's scale.
func Number(d decimal.Decimal) Value {
	return Value{Kind: KindNumber, Num: d, Text: FormatDecimal(d)}
}

// FormatDecimal renders a decimal keeping its scale, so 24.0000 stays
// "24.0000" instead of collapsing to "24". Every output format renders
// numbers through it.
func FormatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// ParseCell classifies a raw cell string.
//
// PARAMETERS:
//   - raw: The cell content exactly as the reader returned it.
//
// RETURNS:
//   - Blank for empty/whitespace content.
//   - Number when the trimmed content is a plain decimal literal
//     ("12", "-3.5", "1e3").
//   - Text otherwise (including "2*3*4" dimension strings).
func ParseCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Blank()
	}
	if looksNumeric(s) {
		if d, err := decimal.NewFromString(s); err == nil {
			return Value{Kind: KindNumber, Num: d, Text: s}
		}
	}
	return Value{Kind: KindText, Text: s}
}

// looksNumeric rejects strings that shopspring would accept but a cell reader
// should keep as text, such as "1_000" or ".".
func looksNumeric(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-' || r == '+':
			if i != 0 && s[i-1] != 'e' && s[i-1] != 'E' {
				return false
			}
		case r == '.' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return digits > 0
}

// IsBlank reports whether the value is blank.
func (v Value) IsBlank() bool { return v.Kind == KindBlank }

// String returns the display form of the value. Blank renders as "".
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		if v.Text != "" {
			return v.Text
		}
		return v.Num.String()
	case KindText:
		return v.Text
	default:
		return ""
	}
}

// =============================================================================
// GRID READER
// =============================================================================

// Grid is a read-only 2-D view of one worksheet. Rows and columns are 1-based;
// cells outside the populated range are Blank.
type Grid interface {
	Name() string
	Cell(row, col int) Value
	MaxRow() int
	MaxCol() int
}

// ColumnMapping maps a canonical field to its 1-based column index.
type ColumnMapping map[Field]int

// =============================================================================
// TABLE RECORD SET
// =============================================================================

// DistFlag records how the distributor produced a row's value.
type DistFlag int

const (
	// FlagNone marks a column that has not been distributed.
	FlagNone DistFlag = iota

	// FlagOriginal keeps the row's own input value.
	FlagOriginal

	// FlagShare is a proportional share of a group's carrier value.
	FlagShare

	// FlagZeroFilled is a legitimate zero: blank row, or a group member
	// without a positive basis value.
	FlagZeroFilled

	// FlagUndistributed marks every row of a group whose carrier value could
	// not be split because no row had a positive basis. The carrier keeps its
	// value, the others are zero.
	FlagUndistributed
)

// String returns the flag name used in reports.
func (f DistFlag) String() string {
	switch f {
	case FlagOriginal:
		return "original"
	case FlagShare:
		return "share"
	case FlagZeroFilled:
		return "zero_filled"
	case FlagUndistributed:
		return "undistributed"
	default:
		return ""
	}
}

// Table is one extracted table: a column-oriented record set whose columns
// all have the same length.
type Table struct {
	// Index is the 1-based position of the table's header in the sheet.
	Index int

	// HeaderRow is the sheet row of the table's header.
	HeaderRow int

	// FirstDataRow is the sheet row of the first data row.
	FirstDataRow int

	// Fields lists mapped fields in column order.
	Fields []Field

	// Columns holds one value sequence per mapped field.
	Columns map[Field][]Value

	// Flags holds distribution flags for distributed fields.
	Flags map[Field][]DistFlag
}

// NewTable creates an empty table for the given fields.
func NewTable(index, headerRow int, fields []Field) *Table {
	t := &Table{
		Index:        index,
		HeaderRow:    headerRow,
		FirstDataRow: headerRow + 1,
		Fields:       fields,
		Columns:      make(map[Field][]Value, len(fields)),
		Flags:        make(map[Field][]DistFlag),
	}
	for _, f := range fields {
		t.Columns[f] = []Value{}
	}
	return t
}

// Len returns the table's row count.
func (t *Table) Len() int {
	for _, f := range t.Fields {
		return len(t.Columns[f])
	}
	return 0
}

// Has reports whether the field was mapped for this table.
func (t *Table) Has(f Field) bool {
	_, ok := t.Columns[f]
	return ok
}

// Column returns the value sequence for a field, or nil when unmapped.
func (t *Table) Column(f Field) []Value {
	return t.Columns[f]
}

// SheetRow converts a 0-based data index to its sheet row number.
func (t *Table) SheetRow(i int) int {
	return t.FirstDataRow + i
}
