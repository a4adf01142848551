package numeric

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/types"
	"github.com/shopspring/decimal"
)

// CBMPlaces is the number of decimal places kept for computed volumes.
const CBMPlaces = 4

var xSeparator = regexp.MustCompile(`[xX]`)

// ParseCBM converts a dimension string such as "2*3*4" or "2.5x3.0x1.2" into a
// volume rounded to four places. A value that is already numeric passes
// through rounded. Blank input is Missing; malformed input is Invalid.
func ParseCBM(v types.Value) Result {
	switch v.Kind {
	case types.KindBlank:
		return missing()
	case types.KindNumber:
		return present(RoundHalfUp(v.Num, CBMPlaces))
	}

	s := strings.TrimSpace(v.Text)
	parts := splitDimensions(strings.Split(s, "*"))
	if len(parts) != 3 {
		parts = splitDimensions(xSeparator.Split(s, -1))
	}
	if len(parts) != 3 {
		return invalid("dimension string %q does not have three parts", s)
	}

	product := decimal.NewFromInt(1)
	for _, p := range parts {
		r := ParseString(p)
		if !r.Ok() {
			return invalid("dimension %q in %q is not a number", p, s)
		}
		product = product.Mul(r.Value)
	}
	return present(RoundHalfUp(product, CBMPlaces))
}

// splitDimensions trims each part and returns nil unless every part is
// non-empty.
func splitDimensions(raw []string) []string {
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil
		}
		parts = append(parts, p)
	}
	return parts
}

// hasNonPositiveDimension reports whether any dimension in a valid dimension
// string is zero or negative.
func hasNonPositiveDimension(s string) bool {
	parts := splitDimensions(strings.Split(s, "*"))
	if len(parts) != 3 {
		parts = splitDimensions(xSeparator.Split(s, -1))
	}
	for _, p := range parts {
		if r := ParseString(p); r.Ok() && !r.Value.IsPositive() {
			return true
		}
	}
	return false
}

// ProcessCBMColumn maps ParseCBM over a column. The result has the same length
// as the input; cells that cannot be parsed become Blank and are logged with
// their row position.
func ProcessCBMColumn(col []types.Value, logger *slog.Logger) []types.Value {
	out := make([]types.Value, len(col))
	for i, v := range col {
		r := ParseCBM(v)
		switch r.Kind {
		case Present:
			if v.Kind == types.KindText && hasNonPositiveDimension(v.Text) {
				logger.Warn("non-positive dimension in CBM value", "row", i, "value", v.Text, "cbm", Exact(r.Value))
			}
			out[i] = types.Number(r.Value)
		case Invalid:
			logger.Warn("could not parse CBM value", "row", i, "value", v.String(), "reason", r.Reason)
			out[i] = types.Blank()
		default:
			out[i] = types.Blank()
		}
	}
	return out
}
