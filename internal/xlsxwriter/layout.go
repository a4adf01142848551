package xlsxwriter

import (
	"github.com/ginjaninja78/invoice-automation/internal/types"
)

// ColumnSlot places a canonical field in a 1-based sheet column.
type ColumnSlot struct {
	Field  types.Field `yaml:"field" json:"field"`
	Column int         `yaml:"column" json:"column"`
}

// Layout describes how a processed table is drawn. It is the "render"
// section of a profile.
type Layout struct {
	// HeaderRows are written above the data. With exactly two rows, a
	// non-empty top cell over an empty bottom cell is merged vertically, and a
	// top cell followed by empty top cells over filled bottom cells is merged
	// horizontally across them ("Quantity" over "PCS" and "SF").
	HeaderRows [][]string `yaml:"header_rows" json:"header_rows"`

	// Columns maps fields to sheet columns.
	Columns []ColumnSlot `yaml:"columns" json:"columns"`

	// NumericFields are written as numbers instead of text.
	NumericFields []types.Field `yaml:"numeric_fields" json:"numeric_fields"`

	// SumFields get a SUM formula in the footer row.
	SumFields []types.Field `yaml:"sum_fields" json:"sum_fields"`

	// CountField receives the "N ITEMS" annotation in the footer row.
	CountField types.Field `yaml:"count_field" json:"count_field"`

	// AmountField bounds the blank merge of the HS code row.
	AmountField types.Field `yaml:"amount_field" json:"amount_field"`

	// StaticLabels fill column 1 of the first data rows. A table is never
	// drawn shorter than its labels.
	StaticLabels []string `yaml:"static_labels" json:"static_labels"`

	// HSCodeText is written in a row between the data and the footer. Empty
	// disables the row.
	HSCodeText string `yaml:"hs_code_text" json:"hs_code_text"`

	// FooterKeyword is written in column 1 of the footer; "{table}" is
	// replaced by the table id.
	FooterKeyword string `yaml:"footer_keyword" json:"footer_keyword"`

	// TrailingBlankRows are bordered empty rows after the footer.
	TrailingBlankRows int `yaml:"trailing_blank_rows" json:"trailing_blank_rows"`

	// MaxColumnWidth caps AutoFitColumns.
	MaxColumnWidth float64 `yaml:"max_column_width" json:"max_column_width"`
}

// DefaultLayout returns the packing-list layout: eleven columns, two header
// rows, four static labels, an HS code row and one blank row after the
// totals.
func DefaultLayout() Layout {
	return Layout{
		HeaderRows: [][]string{
			{"Mark & N°", "P.O N°", "ITEM N°", "Description", "Quantity", "", "N.W (kgs)", "G.W (kgs)", "CBM", "Unit", "Amount"},
			{"", "", "", "", "PCS", "SF", "", "", "", "", ""},
		},
		Columns: []ColumnSlot{
			{Field: types.FieldPO, Column: 2},
			{Field: types.FieldItem, Column: 3},
			{Field: types.FieldReferenceCode, Column: 4},
			{Field: types.FieldPCS, Column: 5},
			{Field: types.FieldSqft, Column: 6},
			{Field: types.FieldNet, Column: 7},
			{Field: types.FieldGross, Column: 8},
			{Field: types.FieldCBM, Column: 9},
			{Field: types.FieldUnit, Column: 10},
			{Field: types.FieldAmount, Column: 11},
		},
		NumericFields:     []types.Field{types.FieldUnit},
		SumFields:         []types.Field{types.FieldPCS, types.FieldSqft, types.FieldNet, types.FieldGross, types.FieldCBM, types.FieldAmount},
		CountField:        types.FieldItem,
		AmountField:       types.FieldAmount,
		StaticLabels:      []string{"VENDOR#:", "Des : LEATHER", "Case Qty :", "MADE IN CAMBODIA"},
		HSCodeText:        "HS.CODE: 4107.XX.XX",
		FooterKeyword:     "TOTALS (Table {table}):",
		TrailingBlankRows: 1,
		MaxColumnWidth:    70,
	}
}

// ApplyDefaults fills unset parts of a layout from DefaultLayout. A layout
// with neither header rows nor columns becomes DefaultLayout entirely; a
// partial layout keeps its HS code text and trailing rows as given, so they
// can be switched off.
func (l *Layout) ApplyDefaults() {
	def := DefaultLayout()
	if len(l.HeaderRows) == 0 && len(l.Columns) == 0 {
		*l = def
		return
	}
	if len(l.HeaderRows) == 0 {
		l.HeaderRows = def.HeaderRows
	}
	if len(l.Columns) == 0 {
		l.Columns = def.Columns
	}
	if l.NumericFields == nil {
		l.NumericFields = def.NumericFields
	}
	if l.SumFields == nil {
		l.SumFields = def.SumFields
	}
	if l.CountField == "" {
		l.CountField = def.CountField
	}
	if l.AmountField == "" {
		l.AmountField = def.AmountField
	}
	if l.StaticLabels == nil {
		l.StaticLabels = def.StaticLabels
	}
	if l.FooterKeyword == "" {
		l.FooterKeyword = def.FooterKeyword
	}
	if l.MaxColumnWidth <= 0 {
		l.MaxColumnWidth = def.MaxColumnWidth
	}
}

// width is the number of columns the layout spans.
func (l Layout) width() int {
	n := 0
	for _, row := range l.HeaderRows {
		n = max(n, len(row))
	}
	for _, s := range l.Columns {
		n = max(n, s.Column)
	}
	return n
}

// column returns the sheet column of a field, or 0.
func (l Layout) column(f types.Field) int {
	for _, s := range l.Columns {
		if s.Field == f {
			return s.Column
		}
	}
	return 0
}

func (l Layout) isNumeric(f types.Field) bool {
	for _, n := range l.NumericFields {
		if n == f {
			return true
		}
	}
	for _, n := range l.SumFields {
		if n == f {
			return true
		}
	}
	return false
}
