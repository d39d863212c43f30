// Package lifecycle applies contract transitions. Each transition is committed together
// with its audit entry, the domain event is published only after the commit.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artcommission/anchor/src/utils/contract"
	"github.com/artcommission/anchor/src/utils/events"
	"github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/model"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/repository"
	"github.com/artcommission/anchor/src/utils/settlement"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Actor id used for transitions triggered by the system
const SystemActor = model.SystemActorID

var ErrNotParticipant = errors.New("actor is not a party of the contract")

type Service struct {
	log       *logrus.Entry
	store     repository.Store
	publisher events.Publisher
	monitor   monitoring.Monitor

	feeRate     decimal.Decimal
	ratioDigits int32
	now         func() time.Time
}

func NewService(store repository.Store, publisher events.Publisher) (self *Service) {
	self = new(Service)
	self.log = logger.NewSublogger("lifecycle")
	self.store = store
	self.publisher = publisher
	self.monitor = monitoring.NewService()
	self.feeRate = decimal.RequireFromString("0.05")
	self.ratioDigits = settlement.DefaultRatioDigits
	self.now = time.Now
	return
}

func (self *Service) WithMonitor(monitor monitoring.Monitor) *Service {
	self.monitor = monitor
	return self
}

// Fee rate frozen into newly offered contracts
func (self *Service) WithFeeRate(v decimal.Decimal) *Service {
	self.feeRate = v
	return self
}

func (self *Service) WithRatioDigits(v int32) *Service {
	self.ratioDigits = v
	return self
}

func (self *Service) WithClock(now func() time.Time) *Service {
	self.now = now
	return self
}

func (self *Service) Get(ctx context.Context, contractID int64) (*contract.Contract, error) {
	m, err := self.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return contract.FromModel(m), nil
}

// Leader makes an offer to the artist
func (self *Service) Offer(ctx context.Context, terms contract.Terms) (out *contract.Contract, err error) {
	c, err := contract.New(terms, self.feeRate)
	if err != nil {
		return
	}

	now := self.now()
	m := c.ToModel()
	m.CreatedAt = now
	m.UpdatedAt = now

	err = self.store.Transaction(ctx, func(tx repository.Store) error {
		err := tx.CreateContract(ctx, m)
		if err != nil {
			return err
		}
		return tx.AppendActionLog(ctx, &model.ActionLog{
			ContractID: m.ID,
			ActorID:    terms.LeaderID,
			Type:       model.ActionLogOffered,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return
	}

	self.log.WithFields(logrus.Fields{
		"contract_id": m.ID,
		"fee_rate":    m.AppliedFeeRate.String(),
	}).Info("Contract offered")
	return contract.FromModel(m), nil
}

func (self *Service) Reoffer(ctx context.Context, actorID, contractID int64, terms contract.Terms) (*contract.Contract, error) {
	return self.apply(ctx, actorID, contractID, model.ActionLogReoffered, "", func(tx repository.Store, c *contract.Contract) error {
		return c.Reoffer(terms)
	})
}

func (self *Service) Decline(ctx context.Context, actorID, contractID int64, memo string) (*contract.Contract, error) {
	return self.apply(ctx, actorID, contractID, model.ActionLogDeclined, memo, func(tx repository.Store, c *contract.Contract) error {
		return c.Decline()
	})
}

func (self *Service) Withdraw(ctx context.Context, actorID, contractID int64) (*contract.Contract, error) {
	return self.apply(ctx, actorID, contractID, model.ActionLogWithdrawn, "", func(tx repository.Store, c *contract.Contract) error {
		return c.Withdraw()
	})
}

func (self *Service) SignByArtist(ctx context.Context, actorID, contractID int64, signature []byte) (*contract.Contract, error) {
	return self.apply(ctx, actorID, contractID, model.ActionLogArtistSigned, "", func(tx repository.Store, c *contract.Contract) error {
		return c.SignByArtist(signature)
	})
}

func (self *Service) SignByLeader(ctx context.Context, actorID, contractID int64, signature []byte) (*contract.Contract, error) {
	return self.apply(ctx, actorID, contractID, model.ActionLogLeaderSigned, "", func(tx repository.Store, c *contract.Contract) error {
		return c.SignByLeader(signature)
	})
}

// Payment captured, the contract gets minted on the ledger
func (self *Service) CompletePayment(ctx context.Context, actorID, contractID int64) (c *contract.Contract, err error) {
	c, err = self.apply(ctx, actorID, contractID, model.ActionLogPaymentCompleted, "", func(tx repository.Store, c *contract.Contract) error {
		return c.CompletePayment()
	})
	if err != nil {
		return
	}
	self.publish(ctx, events.NewContractPaid(contractID))
	return
}

func (self *Service) Complete(ctx context.Context, actorID, contractID int64) (c *contract.Contract, err error) {
	c, err = self.apply(ctx, actorID, contractID, model.ActionLogCompleted, "", func(tx repository.Store, c *contract.Contract) error {
		return c.Complete()
	})
	if err != nil {
		return
	}
	self.publish(ctx, events.NewContractCompleted(contractID))
	return
}

func (self *Service) RequestCancellation(ctx context.Context, actorID, contractID int64, memo string) (*contract.Contract, error) {
	return self.apply(ctx, actorID, contractID, model.ActionLogCancellationRequested, memo, func(tx repository.Store, c *contract.Contract) error {
		return c.RequestCancellation()
	})
}

func (self *Service) RejectCancellation(ctx context.Context, actorID, contractID int64, memo string) (*contract.Contract, error) {
	return self.apply(ctx, actorID, contractID, model.ActionLogCancellationRejected, memo, func(tx repository.Store, c *contract.Contract) error {
		return c.RejectCancellation()
	})
}

// Cancels the contract and splits the captured amount. Override replaces the time based working ratio.
func (self *Service) ApproveCancellation(ctx context.Context, actorID, contractID int64, override *decimal.Decimal) (c *contract.Contract, outcome settlement.Outcome, err error) {
	c, err = self.apply(ctx, actorID, contractID, model.ActionLogCanceled, "", func(tx repository.Store, c *contract.Contract) (err error) {
		// Status is checked first, settling only reads the terms
		err = c.ApproveCancellation()
		if err != nil {
			return
		}
		outcome, err = settlement.NewSettler(tx).
			WithRatioDigits(self.ratioDigits).
			Settle(ctx, c, override)
		return
	})
	if err != nil {
		return
	}
	self.publish(ctx, events.NewContractCanceled(contractID))
	return
}

// Loads the contract, applies the transition and saves it with the audit entry in one transaction
func (self *Service) apply(ctx context.Context, actorID, contractID int64, logType model.ActionLogType, memo string, transition func(tx repository.Store, c *contract.Contract) error) (out *contract.Contract, err error) {
	now := self.now()

	err = self.store.Transaction(ctx, func(tx repository.Store) error {
		m, err := tx.GetContract(ctx, contractID)
		if err != nil {
			return err
		}

		c := contract.FromModel(m)
		if actorID != SystemActor && !c.IsParticipant(actorID) {
			return fmt.Errorf("%w: actor %d, contract %d", ErrNotParticipant, actorID, contractID)
		}

		expected := c.Status()
		err = transition(tx, c)
		if err != nil {
			return err
		}

		updated := c.ToModel()
		updated.UpdatedAt = now
		err = tx.SaveContract(ctx, updated, expected)
		if err != nil {
			return err
		}

		err = tx.AppendActionLog(ctx, &model.ActionLog{
			ContractID: contractID,
			ActorID:    actorID,
			Type:       logType,
			Memo:       memo,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}

		out = contract.FromModel(updated)
		return nil
	})
	if err != nil {
		self.log.WithError(err).WithFields(logrus.Fields{
			"contract_id": contractID,
			"actor_id":    actorID,
			"action":      logType,
		}).Warn("Transition rejected")
		return nil, err
	}

	self.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"actor_id":    actorID,
		"status":      out.Status(),
	}).Info("Contract transitioned")
	return
}

// The transition is already committed, a lost event is logged and not returned to the caller
func (self *Service) publish(ctx context.Context, e events.Event) {
	err := self.publisher.Publish(ctx, e)
	if err != nil {
		self.monitor.GetReport().EventBus.Errors.Publish.Inc()
		self.log.WithError(err).WithFields(logrus.Fields{
			"contract_id": e.ContractID(),
			"type":        e.Kind(),
		}).Error("Failed to publish event")
		return
	}
	self.monitor.GetReport().EventBus.State.MessagesPublished.Inc()
}
