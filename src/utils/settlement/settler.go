package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/artcommission/anchor/src/utils/contract"
	"github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Narrow view of the audit trail
type AuditLookup interface {
	LatestEventTimestamp(ctx context.Context, contractID int64, kind model.ActionLogType) (ts time.Time, found bool, err error)
}

// Computes the split for a contract being cancelled after payment
type Settler struct {
	log         *logrus.Entry
	lookup      AuditLookup
	ratioDigits int32
}

func NewSettler(lookup AuditLookup) *Settler {
	return &Settler{
		log:         logger.NewSublogger("settler"),
		lookup:      lookup,
		ratioDigits: DefaultRatioDigits,
	}
}

func (self *Settler) WithRatioDigits(v int32) *Settler {
	self.ratioDigits = v
	return self
}

func (self *Settler) Settle(ctx context.Context, c *contract.Contract, override *decimal.Decimal) (out Outcome, err error) {
	requestedAt, found, err := self.lookup.LatestEventTimestamp(ctx, c.ID(), model.ActionLogCancellationRequested)
	if err != nil {
		return
	}
	if !found {
		err = fmt.Errorf("%w: contract %d has no cancellation request in the audit trail", model.ErrInvariantViolation, c.ID())
		self.log.WithError(err).WithField("contract_id", c.ID()).Error("Refusing to settle")
		return
	}

	terms := c.Terms()
	out, err = Calculate(Input{
		TotalAmount:             terms.TotalAmount,
		FeeRate:                 c.AppliedFeeRate(),
		StartedAt:               terms.StartedAt,
		EndedAt:                 terms.EndedAt,
		CancellationRequestedAt: requestedAt,
		Override:                override,
		RatioDigits:             self.ratioDigits,
	})
	if err != nil {
		return
	}

	self.log.WithFields(logrus.Fields{
		"contract_id":   c.ID(),
		"requested_at":  requestedAt,
		"ratio":         out.WorkingRatio.String(),
		"service_fee":   out.ServiceFee,
		"to_artist":     out.SettlementToArtist,
		"to_leader":     out.RefundToLeader,
		"with_override": override != nil,
	}).Info("Settlement computed")
	return
}
