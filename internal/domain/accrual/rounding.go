package accrual

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"leavehub/internal/domain/policy"
)

// ApplyRounding applies a policy rounding rule to an accrued amount.
func ApplyRounding(value decimal.Decimal, rule string) (decimal.Decimal, error) {
	switch normalizeRounding(rule) {
	case policy.RoundingNone:
		return value, nil
	case policy.RoundingHalf:
		return value.Round(0), nil
	case policy.RoundingUp:
		return value.Ceil(), nil
	case policy.RoundingDown:
		return value.Floor(), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown rounding rule %q", rule)
	}
}

func normalizeRounding(rule string) string {
	normalized := strings.ToUpper(strings.TrimSpace(rule))
	if normalized == "" {
		return policy.RoundingNone
	}
	return normalized
}
