// =============================================================================
// Invoice Automation - Decimal Conversion
// =============================================================================
//
// Converts heterogeneous cell values to exact decimals. Conversion never fails
// the caller: a blank cell is Missing, unparsable text is Invalid (with a
// reason), and the caller decides whether that means "skip" or "zero".
//
// PRECISION:
//   shopspring/decimal is arbitrary precision. Divisions are carried out with
//   DivisionPrecision significant digits before the final rounding step.
//
// =============================================================================

package numeric

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/types"
	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of decimal places kept by intermediate
// divisions.
const DivisionPrecision = 28

// ResultKind tags a conversion outcome.
type ResultKind int

const (
	// Present means Value holds a real decimal.
	Present ResultKind = iota

	// Missing means the cell was legitimately blank.
	Missing

	// Invalid means the cell had content that could not be converted.
	Invalid
)

// Result is the tagged outcome of a decimal conversion.
type Result struct {
	Kind   ResultKind
	Value  decimal.Decimal
	Reason string
}

// Ok reports whether the result holds a value.
func (r Result) Ok() bool { return r.Kind == Present }

// OrZero returns the value, or zero when missing or invalid.
func (r Result) OrZero() decimal.Decimal {
	if r.Kind == Present {
		return r.Value
	}
	return decimal.Zero
}

// IsPositive reports whether the result is present and greater than zero.
func (r Result) IsPositive() bool {
	return r.Kind == Present && r.Value.IsPositive()
}

// IsCarrier reports whether the result is present and non-zero.
func (r Result) IsCarrier() bool {
	return r.Kind == Present && !r.Value.IsZero()
}

func present(d decimal.Decimal) Result { return Result{Kind: Present, Value: d} }

func missing() Result { return Result{Kind: Missing} }

func invalid(format string, args ...any) Result {
	return Result{Kind: Invalid, Reason: fmt.Sprintf(format, args...)}
}

// ToDecimal converts a cell value to a decimal.
//
// PARAMETERS:
//   - v: The cell value.
//
// RETURNS:
//   - Present with the exact decimal for numbers and numeric text.
//   - Missing for blank cells.
//   - Invalid with a reason for text that is not a number.
func ToDecimal(v types.Value) Result {
	switch v.Kind {
	case types.KindNumber:
		return present(v.Num)
	case types.KindText:
		return ParseString(v.Text)
	default:
		return missing()
	}
}

// ParseString converts a string to a decimal. Thousands separators are
// tolerated; whitespace-only input is Missing.
func ParseString(s string) Result {
	s = strings.TrimSpace(s)
	if s == "" {
		return missing()
	}
	cleaned := strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return invalid("cannot convert %q to decimal", s)
	}
	return present(d)
}

// Quantum returns the rounding unit for the given number of decimal places,
// e.g. 0.0001 for 4.
func Quantum(places int32) decimal.Decimal {
	return decimal.New(1, -places)
}

// Tolerance returns half the rounding unit for the given number of places.
func Tolerance(places int32) decimal.Decimal {
	return Quantum(places).Div(decimal.NewFromInt(2))
}

// RoundHalfUp rounds to the given number of decimal places, ties away from
// zero. The result always carries exactly places digits after the point.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// Format renders a decimal with a fixed number of decimal places.
func Format(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

// Exact renders a decimal keeping its scale, so 24.0000 stays "24.0000"
// instead of collapsing to "24".
func Exact(d decimal.Decimal) string {
	return types.FormatDecimal(d)
}
