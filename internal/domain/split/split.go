// Package split computes per-participant allocations of an expense total.
// All functions are pure and deterministic: identical inputs always produce
// identical outputs, and every result sums to the total exactly.
package split

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

var cent = decimal.New(1, -2) // 0.01

// Equal divides total evenly among n participants. The base share is total/n
// rounded half-up to cents; the leftover cents are spread one per participant
// starting from index 0 so the shares sum to total exactly.
func Equal(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: participant count must be positive, got %d", entity.ErrInvalidInput, n)
	}

	base := total.Div(decimal.NewFromInt(int64(n))).Round(2)

	amounts := make([]decimal.Decimal, n)
	for i := range amounts {
		amounts[i] = base
	}

	remainder := total.Sub(base.Mul(decimal.NewFromInt(int64(n))))
	remainderCents := remainder.Div(cent).IntPart()

	for i := int64(0); i < abs(remainderCents); i++ {
		if remainderCents > 0 {
			amounts[i] = amounts[i].Add(cent)
		} else {
			amounts[i] = amounts[i].Sub(cent)
		}
	}

	return amounts, nil
}

// Percentage allocates total according to percentages, which must be
// non-negative and sum to 100 within a 0.01 tolerance. Every participant except the last gets their
// rounded share; the last receives whatever remains so the sum is exact.
// The residue lands on the last entry regardless of size, so ordering
// matters; callers rely on this as documented policy.
func Percentage(total decimal.Decimal, percentages []float64) ([]decimal.Decimal, error) {
	if len(percentages) == 0 {
		return nil, fmt.Errorf("%w: percentage split requires at least one percentage", entity.ErrInvalidInput)
	}

	var sum float64
	for _, pct := range percentages {
		if pct < 0 {
			return nil, fmt.Errorf("%w: percentage must not be negative, got %.2f", entity.ErrInvalidInput, pct)
		}
		sum += pct
	}
	if math.Abs(sum-100.0) > 0.01 {
		return nil, fmt.Errorf("%w: percentages sum to %.2f, must sum to 100", entity.ErrInvalidInput, sum)
	}

	amounts := make([]decimal.Decimal, 0, len(percentages))
	assigned := decimal.Zero

	for _, pct := range percentages[:len(percentages)-1] {
		amount := total.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100)).Round(2)
		amounts = append(amounts, amount)
		assigned = assigned.Add(amount)
	}

	// Last participant absorbs the rounding residue.
	amounts = append(amounts, total.Sub(assigned))

	return amounts, nil
}

// Custom validates caller-provided amounts against the total and passes them
// through unchanged. The amounts must be non-negative and sum to total
// exactly.
func Custom(total decimal.Decimal, amounts []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(amounts) == 0 {
		return nil, fmt.Errorf("%w: custom split requires at least one amount", entity.ErrInvalidInput)
	}

	sum := decimal.Zero
	for _, a := range amounts {
		if a.IsNegative() {
			return nil, fmt.Errorf("%w: amount must not be negative, got %s", entity.ErrInvalidInput, a)
		}
		sum = sum.Add(a)
	}
	if !sum.Equal(total) {
		return nil, fmt.Errorf("%w: custom amounts sum to %s, total is %s", entity.ErrAmountMismatch, sum, total)
	}

	out := make([]decimal.Decimal, len(amounts))
	copy(out, amounts)
	return out, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
