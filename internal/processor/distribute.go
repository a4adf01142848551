// =============================================================================
// Invoice Automation - Value Distributor
// =============================================================================
//
// Packing lists often record a weight only on the first row of an item group
// and leave the following rows of the group blank, while the piece count is
// filled on every row. The distributor rebuilds per-row values that add back
// up to the group's value, weighted by the basis column.
//
// GROUP DETECTION (per target column, two pointers):
//   1. Row i is a carrier when its target value is present and non-zero.
//   2. Rows i+1.. whose target value is blank or zero continue the group,
//      whatever their basis value. The next carrier starts a new group.
//   3. A carrier with no continuation rows keeps its own value.
//   4. Otherwise every row of the block with a positive basis gets
//      carrier * basis / total_basis rounded to 4 places (half-up); rows with
//      a missing or non-positive basis get 0. When no row has a positive
//      basis the carrier keeps its value, the rest get 0, and all rows of the
//      block are flagged undistributed.
//   5. Scanning resumes after the block.
//   6. Blank/zero rows not claimed by any block are 0.
//
// ROUNDING DRIFT:
//   The rounded shares are compared with the carrier value. A difference
//   larger than half the rounding unit is logged; it is never corrected.
//
// =============================================================================

package processor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ginjaninja78/invoice-automation/internal/numeric"
	"github.com/ginjaninja78/invoice-automation/internal/types"
	"github.com/shopspring/decimal"
)

// SharePlaces is the number of decimal places kept for distributed shares.
const SharePlaces = 4

var (
	// ErrLengthMismatch is returned when a target and basis column differ in
	// length.
	ErrLengthMismatch = errors.New("target and basis columns have different lengths")

	// ErrBasisMissing is returned when the table has no basis column.
	ErrBasisMissing = errors.New("distribution basis column not found")
)

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Block is one carrier row together with its continuation rows.
type Block struct {
	// Carrier is the 0-based index of the carrier row.
	Carrier int

	// End is the 0-based index of the last continuation row.
	End int

	// Value is the carrier's original value.
	Value decimal.Decimal

	// TotalBasis is the sum of positive basis values in the block.
	TotalBasis decimal.Decimal

	// Distributed is false when TotalBasis was zero.
	Distributed bool

	// Drift is the distributed sum minus Value.
	Drift decimal.Decimal
}

// Drifted reports whether rounding moved the block's sum by more than half a
// rounding unit.
func (b Block) Drifted() bool {
	return b.Distributed && b.Drift.Abs().GreaterThan(numeric.Tolerance(SharePlaces))
}

// ColumnResult is the distributor's output for one column.
type ColumnResult struct {
	Values []decimal.Decimal
	Flags  []types.DistFlag

	// Blocks lists every multi-row group found.
	Blocks []Block

	// Invalid lists rows whose target cell held unparsable text.
	Invalid []int
}

// =============================================================================
// DISTRIBUTION
// =============================================================================

// DistributeColumn distributes one target column by a basis column.
//
// PARAMETERS:
//   - target: The column holding group values on carrier rows.
//   - basis: The weight column; must have the same length.
//
// RETURNS:
//   - A result with one value and one flag per input row.
//   - ErrLengthMismatch when the columns differ in length.
func DistributeColumn(target, basis []types.Value) (ColumnResult, error) {
	if len(target) != len(basis) {
		return ColumnResult{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(target), len(basis))
	}

	n := len(target)
	res := ColumnResult{
		Values: make([]decimal.Decimal, n),
		Flags:  make([]types.DistFlag, n),
	}

	values := make([]numeric.Result, n)
	weights := make([]numeric.Result, n)
	for i := range target {
		values[i] = numeric.ToDecimal(target[i])
		if values[i].Kind == numeric.Invalid {
			res.Invalid = append(res.Invalid, i)
		}
		weights[i] = numeric.ToDecimal(basis[i])
	}

	i := 0
	for i < n {
		if !values[i].IsCarrier() {
			res.Values[i] = decimal.Zero
			res.Flags[i] = types.FlagZeroFilled
			i++
			continue
		}

		j := i + 1
		for j < n && !values[j].IsCarrier() {
			j++
		}

		if j == i+1 {
			res.Values[i] = values[i].Value
			res.Flags[i] = types.FlagOriginal
			i++
			continue
		}

		res.Blocks = append(res.Blocks, distributeBlock(&res, values[i].Value, weights, i, j-1))
		i = j
	}

	return res, nil
}

// distributeBlock fills rows start..end of res and returns the block summary.
func distributeBlock(res *ColumnResult, carrier decimal.Decimal, weights []numeric.Result, start, end int) Block {
	block := Block{Carrier: start, End: end, Value: carrier, TotalBasis: decimal.Zero}

	for k := start; k <= end; k++ {
		if weights[k].IsPositive() {
			block.TotalBasis = block.TotalBasis.Add(weights[k].Value)
		}
	}

	if block.TotalBasis.IsZero() {
		res.Values[start] = carrier
		res.Flags[start] = types.FlagUndistributed
		for k := start + 1; k <= end; k++ {
			res.Values[k] = decimal.Zero
			res.Flags[k] = types.FlagUndistributed
		}
		return block
	}

	block.Distributed = true
	sum := decimal.Zero
	for k := start; k <= end; k++ {
		if !weights[k].IsPositive() {
			res.Values[k] = decimal.Zero
			res.Flags[k] = types.FlagZeroFilled
			continue
		}
		share := carrier.Mul(weights[k].Value).
			DivRound(block.TotalBasis, numeric.DivisionPrecision).
			Round(SharePlaces)
		res.Values[k] = share
		res.Flags[k] = types.FlagShare
		sum = sum.Add(share)
	}
	block.Drift = sum.Sub(carrier)

	return block
}

// Distribute replaces each target column of the table with its distributed
// values and records per-row flags.
//
// PARAMETERS:
//   - table: The table to modify in place.
//   - targets: Columns to distribute. Unmapped targets are skipped.
//   - basis: The weight column.
//   - logger: Receives per-row diagnostics.
//
// RETURNS:
//   - ErrBasisMissing when the table has no basis column. Each target column
//     is independent: a length mismatch skips that column only and is logged.
func Distribute(table *types.Table, targets []types.Field, basis types.Field, logger *slog.Logger) error {
	if !table.Has(basis) {
		return fmt.Errorf("%w: table %d has no %q column", ErrBasisMissing, table.Index, basis)
	}
	basisCol := table.Column(basis)

	for _, field := range targets {
		if !table.Has(field) {
			logger.Warn("distribution column not mapped, skipping", "table", table.Index, "field", field)
			continue
		}

		res, err := DistributeColumn(table.Column(field), basisCol)
		if err != nil {
			logger.Error("skipping column distribution", "table", table.Index, "field", field, "error", err)
			continue
		}

		for _, i := range res.Invalid {
			logger.Warn("non-numeric value treated as blank",
				"table", table.Index, "row", table.SheetRow(i), "field", field, "value", table.Column(field)[i].String())
		}
		for _, b := range res.Blocks {
			if !b.Distributed {
				logger.Warn("no positive basis in group, value left on carrier row",
					"table", table.Index, "field", field, "basis", basis,
					"row", table.SheetRow(b.Carrier), "last_row", table.SheetRow(b.End), "value", numeric.Exact(b.Value))
				continue
			}
			if b.Drifted() {
				logger.Warn("distributed values do not sum to carrier value",
					"table", table.Index, "field", field,
					"row", table.SheetRow(b.Carrier), "value", numeric.Exact(b.Value), "drift", b.Drift.String())
			}
		}

		col := make([]types.Value, len(res.Values))
		for i, v := range res.Values {
			col[i] = types.Number(v)
		}
		table.Columns[field] = col
		table.Flags[field] = res.Flags

		logger.Debug("distributed column", "table", table.Index, "field", field, "groups", len(res.Blocks))
	}

	return nil
}

// =============================================================================
// TABLE PIPELINE
// =============================================================================

// Options configures Process.
type Options struct {
	// CBMField is the column holding dimension strings. Empty disables CBM.
	CBMField types.Field

	// Targets are the columns to distribute.
	Targets []types.Field

	// Basis is the distribution weight column.
	Basis types.Field
}

// Process computes CBM volumes and distributes group values for one table.
// An error means the table should not be aggregated.
func Process(table *types.Table, opts Options, logger *slog.Logger) error {
	if opts.CBMField != "" && table.Has(opts.CBMField) {
		table.Columns[opts.CBMField] = numeric.ProcessCBMColumn(table.Column(opts.CBMField), logger.With("table", table.Index))
	}

	if len(opts.Targets) == 0 {
		return nil
	}
	if err := Distribute(table, opts.Targets, opts.Basis, logger); err != nil {
		return fmt.Errorf("failed to distribute values: %w", err)
	}
	return nil
}
