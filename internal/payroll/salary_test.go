package payroll

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSixtyThousand(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b, err := Compute(decimal.NewFromInt(60000), at)
	require.NoError(t, err)

	assert.Equal(t, "60000.00", Fixed(b.AnnualSalary))
	assert.Equal(t, "5000.00", Fixed(b.MonthlySalary))
	assert.Equal(t, "1000.00", Fixed(b.Tax))
	assert.Equal(t, "600.00", Fixed(b.NationalInsurance))
	assert.Equal(t, "3400.00", Fixed(b.NetSalary))
	assert.Equal(t, at, b.ApprovedAt)
}

func TestComputeRoundsEachFigure(t *testing.T) {
	b, err := Compute(decimal.NewFromInt(50000), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "4166.67", Fixed(b.MonthlySalary))
	assert.Equal(t, "833.33", Fixed(b.Tax))
	assert.Equal(t, "500.00", Fixed(b.NationalInsurance))
	assert.Equal(t, "2833.33", Fixed(b.NetSalary))
}

func TestComputeRejectsNonPositive(t *testing.T) {
	for _, v := range []int64{0, -1} {
		_, err := Compute(decimal.NewFromInt(v), time.Now())
		assert.True(t, errors.Is(err, ErrInvalidSalary), "amount %d", v)
	}
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 60,000.50 ")
	require.NoError(t, err)
	assert.Equal(t, "60000.50", Fixed(amount))

	for _, in := range []string{"", "abc", "-5", "0"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidSalary, "input %q", in)
	}
}
