// Package payroll computes the monthly salary breakdown recorded on approval.
package payroll

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidSalary is returned for missing, malformed or non-positive amounts.
var ErrInvalidSalary = errors.New("annual salary must be a positive amount")

var (
	monthsPerYear         = decimal.NewFromInt(12)
	taxRate               = decimal.RequireFromString("0.20")
	nationalInsuranceRate = decimal.RequireFromString("0.12")
)

const displayPlaces = 2

// Breakdown is the monthly split of an annual salary. Every amount is rounded
// to two decimal places, half away from zero.
type Breakdown struct {
	AnnualSalary      decimal.Decimal
	MonthlySalary     decimal.Decimal
	Tax               decimal.Decimal
	NationalInsurance decimal.Decimal
	NetSalary         decimal.Decimal
	ApprovedAt        time.Time
}

// Compute derives the monthly breakdown from an annual salary. Deductions are
// taken from the unrounded monthly figure; rounding applies to each result.
func Compute(annual decimal.Decimal, at time.Time) (Breakdown, error) {
	if !annual.IsPositive() {
		return Breakdown{}, ErrInvalidSalary
	}

	monthly := annual.Div(monthsPerYear)
	tax := monthly.Mul(taxRate)
	ni := monthly.Mul(nationalInsuranceRate)
	net := monthly.Sub(tax).Sub(ni)

	return Breakdown{
		AnnualSalary:      annual.Round(displayPlaces),
		MonthlySalary:     monthly.Round(displayPlaces),
		Tax:               tax.Round(displayPlaces),
		NationalInsurance: ni.Round(displayPlaces),
		NetSalary:         net.Round(displayPlaces),
		ApprovedAt:        at.UTC(),
	}, nil
}

// ParseAmount reads a user supplied amount such as "60000" or "60,000.50".
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return decimal.Decimal{}, ErrInvalidSalary
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidSalary, s)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, ErrInvalidSalary
	}
	return amount, nil
}

// Fixed formats an amount with exactly two decimals.
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(displayPlaces)
}
