package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artcommission/anchor/src/utils/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryTestSuite))
}

type MemoryTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *Memory
	contract *model.Contract
}

func (s *MemoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemory()
	s.contract = &model.Contract{
		LeaderID:       1,
		ArtistID:       2,
		StartedAt:      t0,
		EndedAt:        t0.AddDate(0, 0, 10),
		TotalAmount:    1000,
		AppliedFeeRate: decimal.RequireFromString("0.05"),
		Status:         model.ContractStatusPaymentCompleted,
	}
	s.Require().NoError(s.store.CreateContract(s.ctx, s.contract))
}

func (s *MemoryTestSuite) newRecord(action model.ActionType, createdAt time.Time) *model.OnchainRecord {
	r := model.NewOnchainRecord(s.contract.ID, action, createdAt)
	s.Require().NoError(s.store.CreateRecord(s.ctx, r))
	return r
}

func (s *MemoryTestSuite) TestContractCompareAndSet() {
	c, err := s.store.GetContract(s.ctx, s.contract.ID)
	s.Require().NoError(err)

	c.Status = model.ContractStatusCompleted
	c.AppliedFeeRate = decimal.RequireFromString("0.5")
	s.Require().NoError(s.store.SaveContract(s.ctx, c, model.ContractStatusPaymentCompleted))

	stored, err := s.store.GetContract(s.ctx, s.contract.ID)
	s.Require().NoError(err)
	s.Require().Equal(model.ContractStatusCompleted, stored.Status)
	s.Require().True(stored.AppliedFeeRate.Equal(decimal.RequireFromString("0.05")))

	err = s.store.SaveContract(s.ctx, c, model.ContractStatusPaymentCompleted)
	s.Require().ErrorIs(err, model.ErrConflictingState)

	_, err = s.store.GetContract(s.ctx, 999)
	s.Require().ErrorIs(err, model.ErrNotFound)
}

func (s *MemoryTestSuite) TestRecordClosingIsOneShot() {
	r := s.newRecord(model.ActionTypeMint, t0)

	s.Require().NoError(s.store.MarkSucceeded(s.ctx, r.ID, "0x1", t0.Add(time.Minute)))
	s.Require().ErrorIs(s.store.MarkSucceeded(s.ctx, r.ID, "0x2", t0), model.ErrConflictingState)
	s.Require().ErrorIs(s.store.MarkFailed(s.ctx, r.ID, t0), model.ErrConflictingState)

	stored, err := s.store.GetRecord(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Require().Equal(model.OnchainStatusSucceeded, stored.Status)
	s.Require().Equal("0x1", stored.TxHash.String)

	s.Require().ErrorIs(s.store.MarkFailed(s.ctx, 12345, t0), model.ErrNotFound)
}

func (s *MemoryTestSuite) TestSingleSuccessPerPair() {
	first := s.newRecord(model.ActionTypeMint, t0)
	second := s.newRecord(model.ActionTypeMint, t0)
	other := s.newRecord(model.ActionTypeBurn, t0)

	s.Require().NoError(s.store.MarkSucceeded(s.ctx, first.ID, "0x1", t0))
	err := s.store.MarkSucceeded(s.ctx, second.ID, "0x2", t0)
	s.Require().ErrorIs(err, ErrDuplicateSuccess)
	s.Require().ErrorIs(err, model.ErrInvariantViolation)

	// Refused record stays open and can be closed as failed
	s.Require().NoError(s.store.MarkFailed(s.ctx, second.ID, t0))
	s.Require().NoError(s.store.MarkSucceeded(s.ctx, other.ID, "0x3", t0))

	found, err := s.store.FindSucceeded(s.ctx, s.contract.ID, model.ActionTypeMint)
	s.Require().NoError(err)
	s.Require().Equal(first.ID, found.ID)

	found, err = s.store.FindSucceeded(s.ctx, s.contract.ID, model.ActionTypeUpdateStatus)
	s.Require().NoError(err)
	s.Require().Nil(found)
}

func (s *MemoryTestSuite) TestConcurrentSuccess() {
	records := make([]*model.OnchainRecord, 20)
	for i := range records {
		records[i] = s.newRecord(model.ActionTypeUpdateStatus, t0)
	}

	var (
		wg        sync.WaitGroup
		mtx       sync.Mutex
		succeeded int
	)
	for _, r := range records {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if s.store.MarkSucceeded(s.ctx, id, "0x", t0) == nil {
				mtx.Lock()
				succeeded++
				mtx.Unlock()
			}
		}(r.ID)
	}
	wg.Wait()

	s.Require().Equal(1, succeeded)
}

func (s *MemoryTestSuite) TestRecordQueries() {
	old1 := s.newRecord(model.ActionTypeMint, t0.Add(-2*time.Hour))
	old2 := s.newRecord(model.ActionTypeBurn, t0.Add(-time.Hour))
	fresh := s.newRecord(model.ActionTypeMint, t0)
	s.Require().NoError(s.store.MarkFailed(s.ctx, old2.ID, t0))

	stale, err := s.store.ListStalePending(s.ctx, t0.Add(-30*time.Minute), 0, 10)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Require().Equal(old1.ID, stale[0].ID)

	stale, err = s.store.ListStalePending(s.ctx, t0.Add(time.Minute), old1.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Require().Equal(fresh.ID, stale[0].ID)

	latest, err := s.store.LatestRecord(s.ctx, s.contract.ID, model.ActionTypeMint)
	s.Require().NoError(err)
	s.Require().Equal(fresh.ID, latest.ID)

	_, err = s.store.LatestRecord(s.ctx, s.contract.ID, model.ActionTypeUpdateStatus)
	s.Require().ErrorIs(err, model.ErrNotFound)

	history, err := s.store.ListRecords(s.ctx, s.contract.ID, model.ActionTypeMint)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Require().Equal(old1.ID, history[0].ID)
}

func (s *MemoryTestSuite) TestListFailed() {
	for i := 0; i < 5; i++ {
		r := s.newRecord(model.ActionTypeMint, t0)
		s.Require().NoError(s.store.MarkFailed(s.ctx, r.ID, t0.Add(time.Duration(i)*time.Minute)))
	}
	burn := s.newRecord(model.ActionTypeBurn, t0)
	s.Require().NoError(s.store.MarkFailed(s.ctx, burn.ID, t0))

	page, total, err := s.store.ListFailed(s.ctx, model.ActionTypeMint, 0, 2)
	s.Require().NoError(err)
	s.Require().Equal(int64(5), total)
	s.Require().Len(page, 2)
	s.Require().True(page[0].UpdatedAt.After(page[1].UpdatedAt))

	page, total, err = s.store.ListFailed(s.ctx, "", 4, 10)
	s.Require().NoError(err)
	s.Require().Equal(int64(6), total)
	s.Require().Len(page, 2)

	page, _, err = s.store.ListFailed(s.ctx, "", 10, 10)
	s.Require().NoError(err)
	s.Require().Empty(page)

	page, _, err = s.store.ListFailed(s.ctx, "", -20, 3)
	s.Require().NoError(err)
	s.Require().Len(page, 3)
}

func (s *MemoryTestSuite) TestListUnanchored() {
	cutoff := time.Now().Add(time.Hour)
	pending := &model.Contract{
		LeaderID:       1,
		ArtistID:       2,
		StartedAt:      t0,
		EndedAt:        t0.AddDate(0, 0, 10),
		TotalAmount:    1000,
		AppliedFeeRate: decimal.RequireFromString("0.05"),
		Status:         model.ContractStatusPaymentPending,
	}
	s.Require().NoError(s.store.CreateContract(s.ctx, pending))

	contracts, err := s.store.ListUnanchored(s.ctx, model.ActionTypeMint, model.ActionTypeMint.ExpectedIn(), cutoff, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(contracts, 1)
	s.Require().Equal(s.contract.ID, contracts[0].ID)

	// Not stale yet
	contracts, err = s.store.ListUnanchored(s.ctx, model.ActionTypeMint, model.ActionTypeMint.ExpectedIn(), t0, 0, 10)
	s.Require().NoError(err)
	s.Require().Empty(contracts)

	// Any record counts, whatever its status
	r := s.newRecord(model.ActionTypeMint, t0)
	s.Require().NoError(s.store.MarkFailed(s.ctx, r.ID, t0))
	contracts, err = s.store.ListUnanchored(s.ctx, model.ActionTypeMint, model.ActionTypeMint.ExpectedIn(), cutoff, 0, 10)
	s.Require().NoError(err)
	s.Require().Empty(contracts)
}

func (s *MemoryTestSuite) TestActionLogs() {
	_, found, err := s.store.LatestEventTimestamp(s.ctx, s.contract.ID, model.ActionLogCancellationRequested)
	s.Require().NoError(err)
	s.Require().False(found)

	for _, ts := range []time.Time{t0, t0.Add(2 * time.Hour), t0.Add(time.Hour)} {
		s.Require().NoError(s.store.AppendActionLog(s.ctx, &model.ActionLog{
			ContractID: s.contract.ID,
			Type:       model.ActionLogCancellationRequested,
			CreatedAt:  ts,
		}))
	}

	ts, found, err := s.store.LatestEventTimestamp(s.ctx, s.contract.ID, model.ActionLogCancellationRequested)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Require().Equal(t0.Add(2*time.Hour), ts)

	logs, err := s.store.ListActionLogs(s.ctx, s.contract.ID)
	s.Require().NoError(err)
	s.Require().Len(logs, 3)

	s.Require().ErrorIs(s.store.AppendActionLog(s.ctx, &model.ActionLog{ContractID: 999}), model.ErrNotFound)
}

func (s *MemoryTestSuite) TestTransactionRollback() {
	boom := errors.New("boom")

	err := s.store.Transaction(s.ctx, func(tx Store) error {
		c, err := tx.GetContract(s.ctx, s.contract.ID)
		s.Require().NoError(err)
		c.Status = model.ContractStatusCancellationRequested
		s.Require().NoError(tx.SaveContract(s.ctx, c, model.ContractStatusPaymentCompleted))
		s.Require().NoError(tx.AppendActionLog(s.ctx, &model.ActionLog{ContractID: c.ID, Type: model.ActionLogCancellationRequested}))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	c, err := s.store.GetContract(s.ctx, s.contract.ID)
	s.Require().NoError(err)
	s.Require().Equal(model.ContractStatusPaymentCompleted, c.Status)

	logs, err := s.store.ListActionLogs(s.ctx, s.contract.ID)
	s.Require().NoError(err)
	s.Require().Empty(logs)

	err = s.store.Transaction(s.ctx, func(tx Store) error {
		return tx.AppendActionLog(s.ctx, &model.ActionLog{ContractID: s.contract.ID, Type: model.ActionLogCompleted})
	})
	s.Require().NoError(err)

	logs, err = s.store.ListActionLogs(s.ctx, s.contract.ID)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
}
