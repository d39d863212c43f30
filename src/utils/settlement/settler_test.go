package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artcommission/anchor/src/utils/contract"
	"github.com/artcommission/anchor/src/utils/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type auditStub struct {
	ts    time.Time
	found bool
	err   error
}

func (self *auditStub) LatestEventTimestamp(ctx context.Context, contractID int64, kind model.ActionLogType) (time.Time, bool, error) {
	return self.ts, self.found, self.err
}

func cancellationRequested(feeRate string) *contract.Contract {
	return contract.FromModel(&model.Contract{
		ID:             9,
		LeaderID:       1,
		ArtistID:       2,
		StartedAt:      day(0),
		EndedAt:        day(10),
		TotalAmount:    100_000,
		AppliedFeeRate: decimal.RequireFromString(feeRate),
		Status:         model.ContractStatusCancellationRequested,
	})
}

func TestSettleUsesRequestTimestamp(t *testing.T) {
	settler := NewSettler(&auditStub{ts: day(5), found: true})

	out, err := settler.Settle(context.Background(), cancellationRequested("0.05"), nil)
	require.NoError(t, err)
	require.Equal(t, int64(5000), out.ServiceFee)
	require.Equal(t, int64(47500), out.SettlementToArtist)
	require.Equal(t, int64(47500), out.RefundToLeader)
}

func TestSettleUsesFrozenFeeRate(t *testing.T) {
	settler := NewSettler(&auditStub{ts: day(10), found: true})

	out, err := settler.Settle(context.Background(), cancellationRequested("0.1"), nil)
	require.NoError(t, err)
	require.Equal(t, int64(10000), out.ServiceFee)
	require.Equal(t, int64(90000), out.SettlementToArtist)
	require.Equal(t, int64(0), out.RefundToLeader)
}

func TestSettleWithOverride(t *testing.T) {
	settler := NewSettler(&auditStub{ts: day(2), found: true}).WithRatioDigits(2)

	out, err := settler.Settle(context.Background(), cancellationRequested("0.05"), ratio("0.805"))
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("0.81").Equal(out.WorkingRatio))
	require.Equal(t, int64(76950), out.SettlementToArtist)
	require.Equal(t, int64(18050), out.RefundToLeader)
}

func TestSettleWithoutCancellationRequest(t *testing.T) {
	settler := NewSettler(&auditStub{})

	_, err := settler.Settle(context.Background(), cancellationRequested("0.05"), nil)
	require.ErrorIs(t, err, model.ErrInvariantViolation)
}

func TestSettleLookupError(t *testing.T) {
	boom := errors.New("connection reset")
	settler := NewSettler(&auditStub{err: boom})

	_, err := settler.Settle(context.Background(), cancellationRequested("0.05"), nil)
	require.ErrorIs(t, err, boom)
}
