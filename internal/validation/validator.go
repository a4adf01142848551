// =============================================================================
// Invoice Automation - Validation Engine
// =============================================================================
//
// This module checks extracted tables before and after processing. Problems
// fall into two tiers:
//
//   1. Structural (fatal): a required column is absent from the header
//      mapping. The workbook cannot be processed; ValidateMapping returns an
//      error wrapping ErrMissingRequiredField.
//   2. Data quality (warnings): malformed numbers, unparsable dimensions,
//      negative quantities, rows with an item but no PO, groups whose weight
//      could not be distributed. The pipeline substitutes a safe value and
//      carries on; the issues are collected for the error log.
//
// ERROR HANDLING:
//   - Issues are collected, not returned one by one
//   - Each issue names table, sheet row, field and value
//   - TreatWarningsAsErrors turns data-quality issues into failures
//
// =============================================================================

package validation

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/invoice-automation/internal/numeric"
	"github.com/ginjaninja78/invoice-automation/internal/types"
)

// ErrMissingRequiredField is returned when a required column is not mapped.
var ErrMissingRequiredField = errors.New("required field not found in header")

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RuleRequired     = "required"
	RuleNumeric      = "numeric"
	RuleDimensions   = "dimensions"
	RuleNonNegative  = "non_negative"
	RuleKey          = "key"
	RuleDistribution = "distribution"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation issue.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Table is the 1-based table index, 0 for sheet-level issues.
	Table int

	// Row is the sheet row, 0 for column-level issues.
	Row int

	// Field is the canonical field involved.
	Field types.Field

	// Value is the offending cell content.
	Value string

	// Rule is the rule that was violated.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Table %d, Row %d, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Table,
		e.Row,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult summarizes a set of issues.
type ValidationResult struct {
	// IsValid is false when there is an error, or a warning while
	// TreatWarningsAsErrors is set.
	IsValid bool

	Errors       []*ValidationError
	ErrorCount   int
	WarningCount int

	// TablesValidated is the number of tables checked.
	TablesValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// NumericFields must hold numbers when not blank.
	NumericFields []types.Field

	// NonNegativeFields must not hold negative numbers.
	NonNegativeFields []types.Field

	// CBMField holds dimension strings ("L*W*H").
	CBMField types.Field

	// KeyField must be present on rows where DependentField is filled
	// (a PO for every item).
	KeyField       types.Field
	DependentField types.Field

	// TreatWarningsAsErrors makes data-quality issues fail the workbook.
	// Default: false
	TreatWarningsAsErrors bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		NumericFields:     []types.Field{types.FieldPCS, types.FieldNet, types.FieldGross, types.FieldSqft, types.FieldUnit, types.FieldAmount},
		NonNegativeFields: []types.Field{types.FieldPCS, types.FieldNet, types.FieldGross, types.FieldSqft},
		CBMField:          types.FieldCBM,
		KeyField:          types.FieldPO,
		DependentField:    types.FieldItem,
	}
}

// Validator collects issues across the tables of one workbook.
type Validator struct {
	options ValidationOptions
	result  *ValidationResult
}

// NewValidator creates a validator with default options.
func NewValidator() *Validator {
	return NewValidatorWithOptions(DefaultValidationOptions())
}

// NewValidatorWithOptions creates a validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{
		options: options,
		result:  &ValidationResult{IsValid: true},
	}
}

// Result returns the issues collected so far.
func (v *Validator) Result() *ValidationResult {
	return v.result
}

// add records issues and updates the counters.
func (v *Validator) add(issues []*ValidationError) {
	for _, e := range issues {
		v.result.Errors = append(v.result.Errors, e)
		if e.Severity == SeverityError {
			v.result.ErrorCount++
			v.result.IsValid = false
			continue
		}
		v.result.WarningCount++
		if v.options.TreatWarningsAsErrors {
			v.result.IsValid = false
		}
	}
}

// =============================================================================
// STRUCTURAL VALIDATION
// =============================================================================

// ValidateMapping checks that every required field was found in the header.
//
// RETURNS:
//   - nil when all required fields are mapped.
//   - An error wrapping ErrMissingRequiredField that lists the missing
//     fields otherwise.
func ValidateMapping(mapping types.ColumnMapping, required []types.Field) error {
	var missing []string
	for _, f := range required {
		if _, ok := mapping[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequiredField, strings.Join(missing, ", "))
	}
	return nil
}

// =============================================================================
// DATA-QUALITY VALIDATION
// =============================================================================

// ValidateTable checks the raw values of an extracted table, before CBM
// computation and distribution replace them.
func (v *Validator) ValidateTable(table *types.Table) []*ValidationError {
	var issues []*ValidationError
	o := v.options

	for _, field := range o.NumericFields {
		for i, cell := range table.Column(field) {
			if r := numeric.ToDecimal(cell); r.Kind == numeric.Invalid {
				issues = append(issues, warning(table, i, field, cell.String(), RuleNumeric, "value is not a number"))
			}
		}
	}

	for _, field := range o.NonNegativeFields {
		for i, cell := range table.Column(field) {
			if r := numeric.ToDecimal(cell); r.Ok() && r.Value.IsNegative() {
				issues = append(issues, warning(table, i, field, cell.String(), RuleNonNegative, "value is negative"))
			}
		}
	}

	if o.CBMField != "" {
		for i, cell := range table.Column(o.CBMField) {
			if r := numeric.ParseCBM(cell); r.Kind == numeric.Invalid {
				issues = append(issues, warning(table, i, o.CBMField, cell.String(), RuleDimensions, r.Reason))
			}
		}
	}

	if o.KeyField != "" && o.DependentField != "" && table.Has(o.KeyField) {
		keys := table.Column(o.KeyField)
		for i, dep := range table.Column(o.DependentField) {
			if i < len(keys) && keys[i].IsBlank() && !dep.IsBlank() {
				issues = append(issues, warning(table, i, o.KeyField, "", RuleKey,
					fmt.Sprintf("missing %s for %s %q", o.KeyField, o.DependentField, dep.String())))
			}
		}
	}

	v.result.TablesValidated++
	v.add(issues)
	return issues
}

// ValidateDistribution reports rows whose group value stayed on the carrier
// row because the group had no positive basis.
func (v *Validator) ValidateDistribution(table *types.Table) []*ValidationError {
	var issues []*ValidationError

	for _, field := range table.Fields {
		flags := table.Flags[field]
		col := table.Column(field)
		for i, f := range flags {
			if f != types.FlagUndistributed {
				continue
			}
			value := ""
			if i < len(col) {
				value = col[i].String()
			}
			issues = append(issues, warning(table, i, field, value, RuleDistribution, "no positive basis in group"))
		}
	}

	v.add(issues)
	return issues
}

func warning(table *types.Table, i int, field types.Field, value, rule, msg string) *ValidationError {
	return &ValidationError{
		Severity: SeverityWarning,
		Table:    table.Index,
		Row:      table.SheetRow(i),
		Field:    field,
		Value:    value,
		Rule:     rule,
		Message:  msg,
	}
}

// =============================================================================
// REPORTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d issue(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation errors to a log file with a timestamped
// header naming the source workbook.
func WriteErrorLog(errors []*ValidationError, source, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Validation log for %s\n", source)
	fmt.Fprintf(writer, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	writer.WriteString(FormatErrors(errors))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
