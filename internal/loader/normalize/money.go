package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money parses strings like "$1,250.00" into an exact decimal.
// Everything except digits and the decimal point is stripped first.
func Money(raw string) *decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, raw)

	if cleaned == "" || strings.Count(cleaned, ".") > 1 || strings.Trim(cleaned, ".") == "" {
		return nil
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}
