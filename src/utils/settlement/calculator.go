package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultRatioDigits = 4

var ErrInvalidInput = errors.New("invalid settlement input")

var one = decimal.NewFromInt(1)

type Input struct {
	// Captured amount, smallest currency unit
	TotalAmount int64

	// Fee rate frozen in the contract
	FeeRate decimal.Decimal

	StartedAt time.Time
	EndedAt   time.Time

	// When the cancellation was requested, not when it's processed
	CancellationRequestedAt time.Time

	// Working ratio set by an operator, replaces the time based one
	Override *decimal.Decimal

	// Fractional digits of the working ratio
	RatioDigits int32
}

// Split of the captured amount. The three parts always sum up to the total amount.
type Outcome struct {
	ServiceFee         int64           `json:"service_fee"`
	SettlementToArtist int64           `json:"settlement_to_artist"`
	RefundToLeader     int64           `json:"refund_to_leader"`
	WorkingRatio       decimal.Decimal `json:"working_ratio"`
}

func (self Outcome) Total() int64 {
	return self.ServiceFee + self.SettlementToArtist + self.RefundToLeader
}

// Amounts are floored so nothing above the collected amount is ever paid out
func Calculate(in Input) (out Outcome, err error) {
	if in.TotalAmount < 0 {
		err = fmt.Errorf("%w: negative total amount", ErrInvalidInput)
		return
	}
	if in.FeeRate.IsNegative() || in.FeeRate.GreaterThan(one) {
		err = fmt.Errorf("%w: fee rate %s out of range", ErrInvalidInput, in.FeeRate)
		return
	}

	total := decimal.NewFromInt(in.TotalAmount)
	out.ServiceFee = total.Mul(in.FeeRate).Floor().IntPart()
	distributable := in.TotalAmount - out.ServiceFee

	if in.CancellationRequestedAt.Before(in.StartedAt) {
		// Nothing was done yet
		out.WorkingRatio = decimal.Zero
		out.RefundToLeader = distributable
		return
	}

	out.WorkingRatio = WorkingRatio(in)
	out.SettlementToArtist = decimal.NewFromInt(distributable).Mul(out.WorkingRatio).Floor().IntPart()
	out.RefundToLeader = distributable - out.SettlementToArtist
	return
}

// Share of the work done at the moment of the cancellation request, rounded half-up
func WorkingRatio(in Input) decimal.Decimal {
	digits := in.RatioDigits
	if digits <= 0 {
		digits = DefaultRatioDigits
	}

	if in.Override != nil {
		return clamp(*in.Override).Round(digits)
	}

	if !in.CancellationRequestedAt.Before(in.EndedAt) {
		return one
	}

	totalDays := wholeDays(in.StartedAt, in.EndedAt)
	if totalDays <= 0 {
		// Single day or invalid duration counts as fully worked
		return one
	}

	workedDays := wholeDays(in.StartedAt, in.CancellationRequestedAt)
	ratio := decimal.NewFromInt(workedDays).DivRound(decimal.NewFromInt(totalDays), digits)
	return clamp(ratio)
}

func wholeDays(from, to time.Time) int64 {
	return int64(to.Sub(from) / (24 * time.Hour))
}

func clamp(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(one) {
		return one
	}
	return v
}
