package processor

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ginjaninja78/invoice-automation/internal/numeric"
	"github.com/ginjaninja78/invoice-automation/internal/types"
	"github.com/shopspring/decimal"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// col builds a column from raw strings; "" is a blank cell.
func col(raw ...string) []types.Value {
	out := make([]types.Value, len(raw))
	for i, s := range raw {
		out[i] = types.ParseCell(s)
	}
	return out
}

func assertValues(t *testing.T, got []decimal.Decimal, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i, w := range want {
		if !got[i].Equal(decimal.RequireFromString(w)) {
			t.Errorf("row %d: expected %s, got %s", i, w, got[i].String())
		}
	}
}

func TestDistributeColumnEndToEnd(t *testing.T) {
	res, err := DistributeColumn(col("150", "", ""), col("10", "5", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertValues(t, res.Values, "100", "50", "0")
	if got := numeric.Exact(res.Values[0]); got != "100.0000" {
		t.Errorf("expected 100.0000, got %s", got)
	}

	wantFlags := []types.DistFlag{types.FlagShare, types.FlagShare, types.FlagZeroFilled}
	for i, f := range wantFlags {
		if res.Flags[i] != f {
			t.Errorf("row %d: expected flag %s, got %s", i, f, res.Flags[i])
		}
	}
	if len(res.Blocks) != 1 || res.Blocks[0].Carrier != 0 || res.Blocks[0].End != 2 {
		t.Errorf("unexpected blocks %+v", res.Blocks)
	}
}

func TestDistributeColumnMultipleGroups(t *testing.T) {
	res, err := DistributeColumn(
		col("", "90", "", "", "7", "30", "0"),
		col("4", "1", "1", "1", "2", "3", "1"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Row 0 is unclaimed, rows 1-3 split 90 three ways, row 4 stands alone,
	// rows 5-6 split 30 by 3:1.
	assertValues(t, res.Values, "0", "30", "30", "30", "7", "22.5", "7.5")
	if res.Flags[4] != types.FlagOriginal {
		t.Errorf("expected standalone carrier flagged original, got %s", res.Flags[4])
	}
	if len(res.Blocks) != 2 {
		t.Errorf("expected 2 blocks, got %d", len(res.Blocks))
	}
}

func TestDistributeColumnSumInvariant(t *testing.T) {
	res, err := DistributeColumn(col("100", "", ""), col("1", "1", "1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertValues(t, res.Values, "33.3333", "33.3333", "33.3333")

	sum := decimal.Zero
	for _, v := range res.Values {
		sum = sum.Add(v)
	}
	diff := sum.Sub(decimal.NewFromInt(100)).Abs()
	if diff.GreaterThan(decimal.RequireFromString("0.0001")) {
		t.Errorf("sum %s drifted too far from 100", sum)
	}
	if !res.Blocks[0].Drift.Equal(decimal.RequireFromString("-0.0001")) {
		t.Errorf("expected drift -0.0001, got %s", res.Blocks[0].Drift)
	}
	if !res.Blocks[0].Drifted() {
		t.Error("expected drift beyond tolerance to be reported")
	}
}

func TestDistributeColumnExactSplitHasNoDrift(t *testing.T) {
	res, _ := DistributeColumn(col("12.5", "", "", ""), col("2", "3", "", "5"))
	assertValues(t, res.Values, "2.5", "3.75", "0", "6.25")
	if res.Blocks[0].Drifted() {
		t.Errorf("unexpected drift %s", res.Blocks[0].Drift)
	}
}

func TestDistributeColumnZeroBasisIsFlagged(t *testing.T) {
	res, err := DistributeColumn(col("40", "", "0"), col("", "0", "-2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertValues(t, res.Values, "40", "0", "0")
	for i, f := range res.Flags {
		if f != types.FlagUndistributed {
			t.Errorf("row %d: expected undistributed flag, got %s", i, f)
		}
	}
	if res.Blocks[0].Distributed {
		t.Error("expected block to be marked undistributed")
	}
}

func TestDistributeColumnIdempotent(t *testing.T) {
	basis := col("10", "5", "", "2", "2", "7")
	first, err := DistributeColumn(col("150", "", "", "9", "", "4"), basis)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again := make([]types.Value, len(first.Values))
	for i, v := range first.Values {
		again[i] = types.Number(v)
	}
	second, err := DistributeColumn(again, basis)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first.Values {
		if !first.Values[i].Equal(second.Values[i]) {
			t.Errorf("row %d: expected %s after second pass, got %s", i, first.Values[i], second.Values[i])
		}
	}
}

func TestDistributeColumnInvalidTextIsBlank(t *testing.T) {
	res, err := DistributeColumn(col("60", "n/a"), col("1", "2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValues(t, res.Values, "20", "40")
	if len(res.Invalid) != 1 || res.Invalid[0] != 1 {
		t.Errorf("expected row 1 reported invalid, got %v", res.Invalid)
	}
}

func TestDistributeColumnLengthMismatch(t *testing.T) {
	_, err := DistributeColumn(col("1", "2"), col("1"))
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestDistributeTable(t *testing.T) {
	table := types.NewTable(1, 3, []types.Field{types.FieldPCS, types.FieldNet, types.FieldGross})
	table.Columns[types.FieldPCS] = col("10", "5", "")
	table.Columns[types.FieldNet] = col("150", "", "")
	table.Columns[types.FieldGross] = col("165", "", "")

	if err := Distribute(table, []types.Field{types.FieldNet, types.FieldGross, types.FieldCBM}, types.FieldPCS, quiet()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := table.Column(types.FieldNet)[1].String(); got != "50.0000" {
		t.Errorf("expected net 50.0000, got %s", got)
	}
	if got := table.Column(types.FieldGross)[0].String(); got != "110.0000" {
		t.Errorf("expected gross 110.0000, got %s", got)
	}
	if got := table.Column(types.FieldGross)[2].String(); got != "0" {
		t.Errorf("expected gross 0, got %s", got)
	}
	if flags := table.Flags[types.FieldNet]; len(flags) != 3 || flags[2] != types.FlagZeroFilled {
		t.Errorf("unexpected flags %v", flags)
	}
}

func TestDistributeSkipsMismatchedColumnOnly(t *testing.T) {
	table := types.NewTable(1, 1, []types.Field{types.FieldPCS, types.FieldNet, types.FieldGross})
	table.Columns[types.FieldPCS] = col("1", "1")
	table.Columns[types.FieldNet] = col("10")
	table.Columns[types.FieldGross] = col("8", "")

	if err := Distribute(table, []types.Field{types.FieldNet, types.FieldGross}, types.FieldPCS, quiet()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.Column(types.FieldNet)[0].String(); got != "10" {
		t.Errorf("expected net untouched, got %s", got)
	}
	if got := table.Column(types.FieldGross)[1].String(); got != "4.0000" {
		t.Errorf("expected gross 4.0000, got %s", got)
	}
}

func TestDistributeMissingBasis(t *testing.T) {
	table := types.NewTable(2, 1, []types.Field{types.FieldNet})
	table.Columns[types.FieldNet] = col("1")

	err := Distribute(table, []types.Field{types.FieldNet}, types.FieldPCS, quiet())
	if !errors.Is(err, ErrBasisMissing) {
		t.Fatalf("expected ErrBasisMissing, got %v", err)
	}
}

func TestProcessComputesCBM(t *testing.T) {
	table := types.NewTable(1, 1, []types.Field{types.FieldPCS, types.FieldCBM, types.FieldNet})
	table.Columns[types.FieldPCS] = col("1", "1")
	table.Columns[types.FieldCBM] = col("2*3*4", "bad*data")
	table.Columns[types.FieldNet] = col("2", "")

	err := Process(table, Options{CBMField: types.FieldCBM, Targets: []types.Field{types.FieldNet}, Basis: types.FieldPCS}, quiet())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.Column(types.FieldCBM)[0].String(); got != "24.0000" {
		t.Errorf("expected cbm 24.0000, got %s", got)
	}
	if !table.Column(types.FieldCBM)[1].IsBlank() {
		t.Errorf("expected blank cbm for bad input")
	}
	if got := table.Column(types.FieldNet)[1].String(); got != "1.0000" {
		t.Errorf("expected net 1.0000, got %s", got)
	}
}
