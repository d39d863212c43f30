package settlement

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return day0.AddDate(0, 0, n)
}

func ratio(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestProrationScenarios(t *testing.T) {
	fee := decimal.RequireFromString("0.05")

	tests := []struct {
		name     string
		in       Input
		expected Outcome
		ratio    string
	}{
		{
			name:     "requested before start",
			in:       Input{TotalAmount: 100_000, FeeRate: fee, StartedAt: day(0), EndedAt: day(10), CancellationRequestedAt: day(-1)},
			expected: Outcome{ServiceFee: 5000, SettlementToArtist: 0, RefundToLeader: 95000},
			ratio:    "0",
		},
		{
			name:     "requested half way",
			in:       Input{TotalAmount: 100_000, FeeRate: fee, StartedAt: day(0), EndedAt: day(10), CancellationRequestedAt: day(5)},
			expected: Outcome{ServiceFee: 5000, SettlementToArtist: 47500, RefundToLeader: 47500},
			ratio:    "0.5",
		},
		{
			name:     "operator override",
			in:       Input{TotalAmount: 100_000, FeeRate: fee, StartedAt: day(0), EndedAt: day(10), CancellationRequestedAt: day(5), Override: ratio("0.8")},
			expected: Outcome{ServiceFee: 5000, SettlementToArtist: 76000, RefundToLeader: 19000},
			ratio:    "0.8",
		},
		{
			name:     "requested at end",
			in:       Input{TotalAmount: 100_000, FeeRate: fee, StartedAt: day(0), EndedAt: day(10), CancellationRequestedAt: day(10)},
			expected: Outcome{ServiceFee: 5000, SettlementToArtist: 95000, RefundToLeader: 0},
			ratio:    "1",
		},
		{
			name:     "requested after end",
			in:       Input{TotalAmount: 100_000, FeeRate: fee, StartedAt: day(0), EndedAt: day(10), CancellationRequestedAt: day(30)},
			expected: Outcome{ServiceFee: 5000, SettlementToArtist: 95000, RefundToLeader: 0},
			ratio:    "1",
		},
		{
			name:     "degenerate duration",
			in:       Input{TotalAmount: 100_000, FeeRate: fee, StartedAt: day(0), EndedAt: day(0), CancellationRequestedAt: day(0)},
			expected: Outcome{ServiceFee: 5000, SettlementToArtist: 95000, RefundToLeader: 0},
			ratio:    "1",
		},
		{
			name:     "shorter than a day",
			in:       Input{TotalAmount: 100_000, FeeRate: fee, StartedAt: day(0), EndedAt: day(0).Add(5 * time.Hour), CancellationRequestedAt: day(0).Add(time.Hour)},
			expected: Outcome{ServiceFee: 5000, SettlementToArtist: 95000, RefundToLeader: 0},
			ratio:    "1",
		},
		{
			name:     "override is clamped",
			in:       Input{TotalAmount: 100_000, FeeRate: fee, StartedAt: day(0), EndedAt: day(10), CancellationRequestedAt: day(2), Override: ratio("1.7")},
			expected: Outcome{ServiceFee: 5000, SettlementToArtist: 95000, RefundToLeader: 0},
			ratio:    "1",
		},
		{
			name:     "override ignored before start",
			in:       Input{TotalAmount: 100_000, FeeRate: fee, StartedAt: day(0), EndedAt: day(10), CancellationRequestedAt: day(-3), Override: ratio("0.8")},
			expected: Outcome{ServiceFee: 5000, SettlementToArtist: 0, RefundToLeader: 95000},
			ratio:    "0",
		},
		{
			name:     "ratio rounded half up",
			in:       Input{TotalAmount: 999_999, FeeRate: decimal.RequireFromString("0.0333"), StartedAt: day(0), EndedAt: day(3), CancellationRequestedAt: day(2)},
			expected: Outcome{ServiceFee: 33299, SettlementToArtist: 644498, RefundToLeader: 322202},
			ratio:    "0.6667",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Calculate(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.expected.ServiceFee, out.ServiceFee)
			require.Equal(t, tc.expected.SettlementToArtist, out.SettlementToArtist)
			require.Equal(t, tc.expected.RefundToLeader, out.RefundToLeader)
			require.True(t, decimal.RequireFromString(tc.ratio).Equal(out.WorkingRatio), "ratio %s", out.WorkingRatio)
			require.Equal(t, tc.in.TotalAmount, out.Total())
		})
	}
}

func TestInvalidInput(t *testing.T) {
	_, err := Calculate(Input{TotalAmount: -1})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Calculate(Input{TotalAmount: 10, FeeRate: decimal.RequireFromString("1.5")})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("fee, settlement and refund sum up to the total", prop.ForAll(
		func(total int64, feeBasisPoints int64, durationHours int64, requestOffsetHours int64, overridePermille int64) bool {
			in := Input{
				TotalAmount:             total,
				FeeRate:                 decimal.New(feeBasisPoints, -4),
				StartedAt:               day0,
				EndedAt:                 day0.Add(time.Duration(durationHours) * time.Hour),
				CancellationRequestedAt: day0.Add(time.Duration(requestOffsetHours) * time.Hour),
			}
			if overridePermille >= 0 {
				v := decimal.New(overridePermille, -3)
				in.Override = &v
			}

			out, err := Calculate(in)
			if err != nil {
				return false
			}
			return out.ServiceFee >= 0 &&
				out.SettlementToArtist >= 0 &&
				out.RefundToLeader >= 0 &&
				out.Total() == total
		},
		gen.Int64Range(0, 1_000_000_000_000),
		gen.Int64Range(0, 10_000),
		gen.Int64Range(-48, 24*400),
		gen.Int64Range(-24*30, 24*500),
		gen.Int64Range(-500, 1500),
	))

	properties.Property("service fee depends only on the frozen rate", prop.ForAll(
		func(total int64, feeBasisPoints int64) bool {
			rate := decimal.New(feeBasisPoints, -4)
			out, err := Calculate(Input{
				TotalAmount:             total,
				FeeRate:                 rate,
				StartedAt:               day(0),
				EndedAt:                 day(10),
				CancellationRequestedAt: day(3),
			})
			if err != nil {
				return false
			}
			expected := decimal.NewFromInt(total).Mul(rate).Floor().IntPart()
			return out.ServiceFee == expected && out.ServiceFee <= total
		},
		gen.Int64Range(0, 1_000_000_000_000),
		gen.Int64Range(0, 10_000),
	))

	properties.TestingRun(t)
}
