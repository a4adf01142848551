// =============================================================================
// Invoice Automation - Aggregator
// =============================================================================
//
// Accumulates square footage and amount per business key across every table of
// a workbook. The aggregation is a whole-shipment summary: the map is never
// reset between tables.
//
// MODES:
//   standard - key is (PO, Item, Unit Price); rows sharing PO and Item but
//              negotiated at different prices stay apart.
//   custom   - key is (PO, Item); price differences collapse.
//
//   The mode is picked once per workbook from its file name (see SelectMode).
//
// DESCRIPTION:
//   Descriptions are collected per key as an informational attribute. They
//   join the key only when Options.KeyIncludesDescription is set.
//
// =============================================================================

package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/numeric"
	"github.com/ginjaninja78/invoice-automation/internal/types"
	"github.com/shopspring/decimal"
)

// Sentinels substituted for blank key parts so they remain groupable.
const (
	MissingPO          = "<MISSING_PO>"
	MissingItem        = "<MISSING_ITEM>"
	MissingDescription = "<MISSING_DESC>"
)

var (
	// ErrMissingColumns is returned when a table lacks a column the active
	// mode needs.
	ErrMissingColumns = errors.New("table is missing aggregation columns")

	// ErrLengthMismatch is returned when aggregation columns differ in length.
	ErrLengthMismatch = errors.New("aggregation columns have different lengths")
)

// =============================================================================
// MODE SELECTION
// =============================================================================

// Mode selects the aggregation key shape.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeCustom   Mode = "custom"
)

// SelectMode returns ModeCustom when the workbook's base file name starts with
// any of the given prefixes (case-sensitive), ModeStandard otherwise.
func SelectMode(workbookPath string, customPrefixes []string) Mode {
	name := filepath.Base(workbookPath)
	for _, p := range customPrefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return ModeCustom
		}
	}
	return ModeStandard
}

// =============================================================================
// KEYS AND RECORDS
// =============================================================================

// Key identifies one aggregation bucket. Price is empty in custom mode and
// when the row's price is missing; Description is empty unless descriptions
// are part of the key.
type Key struct {
	PO          string
	Item        string
	Price       string
	Description string
}

// String joins the key parts with "|" in the order PO, Item, Price,
// Description. Parts the mode does not use are omitted.
func (k Key) String(mode Mode, withDescription bool) string {
	parts := []string{k.PO, k.Item}
	if mode == ModeStandard {
		parts = append(parts, k.Price)
	}
	if withDescription {
		parts = append(parts, k.Description)
	}
	return strings.Join(parts, "|")
}

// Record holds the running sums for one key.
type Record struct {
	SqftSum      decimal.Decimal
	AmountSum    decimal.Decimal
	Descriptions []string
	Rows         int
}

// Options names the columns the aggregator reads.
type Options struct {
	POField     types.Field
	ItemField   types.Field
	PriceField  types.Field
	SqftField   types.Field
	AmountField types.Field
	DescField   types.Field

	KeyIncludesDescription bool
}

// DefaultOptions returns the standard column names.
func DefaultOptions() Options {
	return Options{
		POField:     types.FieldPO,
		ItemField:   types.FieldItem,
		PriceField:  types.FieldUnit,
		SqftField:   types.FieldSqft,
		AmountField: types.FieldAmount,
		DescField:   types.FieldDesc,
	}
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator owns the per-key sums for one run. It is not safe for concurrent
// use; each workbook gets its own.
type Aggregator struct {
	mode    Mode
	opts    Options
	logger  *slog.Logger
	records map[Key]*Record
	descs   map[Key]map[string]struct{}
	tables  int
}

// New creates an empty aggregator.
func New(mode Mode, opts Options, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		mode:    mode,
		opts:    opts,
		logger:  logger,
		records: make(map[Key]*Record),
		descs:   make(map[Key]map[string]struct{}),
	}
}

// Mode returns the aggregation mode.
func (a *Aggregator) Mode() Mode { return a.mode }

// Options returns the aggregator's column options.
func (a *Aggregator) Options() Options { return a.opts }

// Len returns the number of distinct keys.
func (a *Aggregator) Len() int { return len(a.records) }

// Tables returns how many tables have been folded in.
func (a *Aggregator) Tables() int { return a.tables }

// requiredFields lists the columns the active mode reads.
func (a *Aggregator) requiredFields() []types.Field {
	fields := []types.Field{a.opts.POField, a.opts.ItemField}
	if a.mode == ModeStandard {
		fields = append(fields, a.opts.PriceField)
	}
	fields = append(fields, a.opts.SqftField, a.opts.AmountField)
	if a.opts.KeyIncludesDescription {
		fields = append(fields, a.opts.DescField)
	}
	return fields
}

// Accumulate folds every row of a table into the running sums.
//
// PARAMETERS:
//   - table: A processed table.
//
// RETURNS:
//   - ErrMissingColumns or ErrLengthMismatch when the table cannot be
//     aggregated; the sums are left untouched in that case.
//
// ROW HANDLING:
//   - Blank PO/Item become MissingPO/MissingItem.
//   - Blank or non-numeric sqft/amount count as zero.
//   - A blank or non-numeric price becomes an empty Price key part.
func (a *Aggregator) Accumulate(table *types.Table) error {
	required := a.requiredFields()

	var missing []string
	for _, f := range required {
		if !table.Has(f) {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: table %d lacks %s", ErrMissingColumns, table.Index, strings.Join(missing, ", "))
	}

	n := len(table.Column(a.opts.POField))
	for _, f := range required {
		if l := len(table.Column(f)); l != n {
			return fmt.Errorf("%w: table %d column %q has %d rows, expected %d", ErrLengthMismatch, table.Index, f, l, n)
		}
	}

	var descCol []types.Value
	if table.Has(a.opts.DescField) && len(table.Column(a.opts.DescField)) == n {
		descCol = table.Column(a.opts.DescField)
	}

	for i := 0; i < n; i++ {
		key := Key{
			PO:   keyPart(table.Column(a.opts.POField)[i], MissingPO),
			Item: keyPart(table.Column(a.opts.ItemField)[i], MissingItem),
		}
		if a.mode == ModeStandard {
			if p := numeric.ToDecimal(table.Column(a.opts.PriceField)[i]); p.Ok() {
				key.Price = p.Value.String()
			}
		}

		desc := ""
		if descCol != nil {
			desc = descCol[i].String()
		}
		if a.opts.KeyIncludesDescription {
			key.Description = keyPart(descCol[i], MissingDescription)
		}

		sqft := a.rowNumber(table, a.opts.SqftField, i)
		amount := a.rowNumber(table, a.opts.AmountField, i)

		rec, ok := a.records[key]
		if !ok {
			rec = &Record{SqftSum: decimal.Zero, AmountSum: decimal.Zero}
			a.records[key] = rec
			a.descs[key] = make(map[string]struct{})
		}
		rec.SqftSum = rec.SqftSum.Add(sqft)
		rec.AmountSum = rec.AmountSum.Add(amount)
		rec.Rows++

		if desc != "" {
			if _, seen := a.descs[key][desc]; !seen {
				a.descs[key][desc] = struct{}{}
				rec.Descriptions = append(rec.Descriptions, desc)
			}
		}
	}

	a.tables++
	a.logger.Debug("aggregated table", "table", table.Index, "rows", n, "keys", len(a.records), "mode", a.mode)
	return nil
}

// rowNumber converts a sum column cell, logging non-numeric content.
func (a *Aggregator) rowNumber(table *types.Table, field types.Field, i int) decimal.Decimal {
	r := numeric.ToDecimal(table.Column(field)[i])
	if r.Kind == numeric.Invalid {
		a.logger.Warn("non-numeric value counted as zero",
			"table", table.Index, "row", table.SheetRow(i), "field", field, "reason", r.Reason)
	}
	return r.OrZero()
}

// keyPart stringifies a key cell, substituting the sentinel for blanks.
func keyPart(v types.Value, sentinel string) string {
	if v.IsBlank() {
		return sentinel
	}
	return v.String()
}

// Records returns a copy of the sums keyed by Key.
func (a *Aggregator) Records() map[Key]Record {
	out := make(map[Key]Record, len(a.records))
	for k, r := range a.records {
		rec := *r
		rec.Descriptions = append([]string(nil), r.Descriptions...)
		out[k] = rec
	}
	return out
}

// Keys returns all keys sorted by PO, Item, Price and Description.
func (a *Aggregator) Keys() []Key {
	return SortedKeys(a.Records())
}

// SortedKeys returns the keys of a record map in a stable order.
func SortedKeys(records map[Key]Record) []Key {
	keys := make([]Key, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.PO != b.PO {
			return a.PO < b.PO
		}
		if a.Item != b.Item {
			return a.Item < b.Item
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.Description < b.Description
	})
	return keys
}
