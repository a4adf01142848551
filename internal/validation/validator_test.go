package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/invoice-automation/internal/types"
)

func col(raw ...string) []types.Value {
	out := make([]types.Value, len(raw))
	for i, s := range raw {
		out[i] = types.ParseCell(s)
	}
	return out
}

func TestValidateMapping(t *testing.T) {
	mapping := types.ColumnMapping{types.FieldItem: 3, types.FieldPO: 2}

	if err := ValidateMapping(mapping, []types.Field{types.FieldItem}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := ValidateMapping(mapping, []types.Field{types.FieldItem, types.FieldAmount, types.FieldNet})
	if !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("expected ErrMissingRequiredField, got %v", err)
	}
	if !strings.Contains(err.Error(), "amount, net") {
		t.Errorf("expected missing fields listed, got %v", err)
	}
}

func TestValidateTable(t *testing.T) {
	table := types.NewTable(1, 4, []types.Field{types.FieldPO, types.FieldItem, types.FieldNet, types.FieldCBM})
	table.Columns[types.FieldPO] = col("PO1", "", "")
	table.Columns[types.FieldItem] = col("A", "B", "")
	table.Columns[types.FieldNet] = col("1,200.5", "heavy", "-3")
	table.Columns[types.FieldCBM] = col("2*3*4", "", "bad*data")

	v := NewValidator()
	issues := v.ValidateTable(table)

	rules := make(map[string]int)
	for _, e := range issues {
		rules[e.Rule]++
		if e.Severity != SeverityWarning {
			t.Errorf("expected warnings only, got %s", e.Severity)
		}
	}
	if rules[RuleNumeric] != 1 || rules[RuleNonNegative] != 1 || rules[RuleDimensions] != 1 || rules[RuleKey] != 1 {
		t.Errorf("unexpected rule counts %v", rules)
	}

	for _, e := range issues {
		if e.Rule == RuleNumeric && (e.Row != 6 || e.Value != "heavy") {
			t.Errorf("expected numeric issue on sheet row 6, got %+v", e)
		}
	}

	res := v.Result()
	if !res.IsValid || res.WarningCount != 4 || res.TablesValidated != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestTreatWarningsAsErrors(t *testing.T) {
	opts := DefaultValidationOptions()
	opts.TreatWarningsAsErrors = true

	table := types.NewTable(1, 1, []types.Field{types.FieldNet})
	table.Columns[types.FieldNet] = col("x")

	v := NewValidatorWithOptions(opts)
	v.ValidateTable(table)
	if v.Result().IsValid {
		t.Error("expected result to be invalid")
	}
}

func TestValidateDistribution(t *testing.T) {
	table := types.NewTable(2, 10, []types.Field{types.FieldNet})
	table.Columns[types.FieldNet] = col("40", "0")
	table.Flags[types.FieldNet] = []types.DistFlag{types.FlagUndistributed, types.FlagUndistributed}

	issues := NewValidator().ValidateDistribution(table)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0].Row != 11 || issues[0].Value != "40" || issues[0].Rule != RuleDistribution {
		t.Errorf("unexpected issue %+v", issues[0])
	}
}

func TestFormatAndWriteErrorLog(t *testing.T) {
	if got := FormatErrors(nil); got != "No validation errors." {
		t.Errorf("unexpected empty format %q", got)
	}

	issues := []*ValidationError{{Severity: SeverityWarning, Table: 1, Row: 5, Field: types.FieldNet, Value: "x", Rule: RuleNumeric, Message: "value is not a number"}}
	formatted := FormatErrors(issues)
	if !strings.Contains(formatted, "[WARNING] Table 1, Row 5, Field 'net'") {
		t.Errorf("unexpected format %q", formatted)
	}

	path := filepath.Join(t.TempDir(), "errors.log")
	if err := WriteErrorLog(issues, "INV.xlsx", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "Validation log for INV.xlsx") || !strings.Contains(string(data), formatted) {
		t.Errorf("unexpected log content:\n%s", data)
	}
}
