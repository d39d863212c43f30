package operator

import (
	"context"
	"testing"
	"time"

	"github.com/artcommission/anchor/src/dispatch"
	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/events"
	"github.com/artcommission/anchor/src/utils/ledger"
	"github.com/artcommission/anchor/src/utils/model"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

func TestRetryTestSuite(t *testing.T) {
	suite.Run(t, new(RetryTestSuite))
}

type fixture struct {
	ctx     context.Context
	config  *config.Config
	store   *repository.Memory
	gateway *ledger.MemoryGateway
	monitor *monitoring.Service
	bus     *events.InProcessBus
}

func newFixture() *fixture {
	f := &fixture{
		ctx:     context.Background(),
		config:  config.Default(),
		store:   repository.NewMemory(),
		gateway: ledger.NewMemoryGateway(),
		monitor: monitoring.NewService(),
		bus:     events.NewInProcessBus(),
	}
	f.config.Operator.RetryRate = 1000
	f.config.Operator.RetryBurst = 1000
	f.config.Operator.RetryLookupTimeout = 300 * time.Millisecond
	f.config.Operator.RetryLookupInterval = 10 * time.Millisecond

	dispatcher := dispatch.NewDispatcher(f.config).
		WithStore(f.store).
		WithGateway(f.gateway).
		WithMonitor(f.monitor)
	f.bus.Subscribe(dispatcher.Handle)
	return f
}

func (f *fixture) retryService() *RetryService {
	return NewRetryService(f.config).
		WithStore(f.store).
		WithPublisher(f.bus).
		WithMonitor(f.monitor)
}

func (f *fixture) contract() (int64, error) {
	c := &model.Contract{
		LeaderID:       3,
		ArtistID:       4,
		Title:          "Album cover",
		StartedAt:      time.Now(),
		EndedAt:        time.Now().Add(72 * time.Hour),
		TotalAmount:    80_000,
		AppliedFeeRate: decimal.RequireFromString("0.05"),
		Status:         model.ContractStatusPaymentCompleted,
	}
	err := f.store.CreateContract(f.ctx, c)
	return c.ID, err
}

func (f *fixture) record(contractID int64, status model.OnchainStatus) (*model.OnchainRecord, error) {
	r := model.NewOnchainRecord(contractID, model.ActionTypeMint, time.Now())
	err := f.store.CreateRecord(f.ctx, r)
	if err != nil {
		return nil, err
	}
	switch status {
	case model.OnchainStatusFailed:
		err = f.store.MarkFailed(f.ctx, r.ID, time.Now())
	case model.OnchainStatusSucceeded:
		err = f.store.MarkSucceeded(f.ctx, r.ID, "0xdone", time.Now())
	}
	return r, err
}

type RetryTestSuite struct {
	suite.Suite
	*fixture
	retry      *RetryService
	contractID int64
}

func (s *RetryTestSuite) SetupTest() {
	s.fixture = newFixture()
	s.retry = s.retryService()

	var err error
	s.contractID, err = s.contract()
	s.Require().NoError(err)
}

func (s *RetryTestSuite) failed() *model.OnchainRecord {
	r, err := s.record(s.contractID, model.OnchainStatusFailed)
	s.Require().NoError(err)
	return r
}

func (s *RetryTestSuite) TestRetryFailedJob() {
	failed := s.failed()

	id, err := s.retry.Retry(s.ctx, failed.ID)
	s.Require().NoError(err)
	s.Require().Greater(id, failed.ID)

	r, err := s.store.GetRecord(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Equal(model.OnchainStatusSucceeded, r.Status)
	s.Require().Equal(model.ActionTypeMint, r.ActionType)

	logs, err := s.store.ListActionLogs(s.ctx, s.contractID)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Require().Equal(model.ActionLogOnchainRetryRequested, logs[0].Type)
	s.Require().Equal(model.SystemActorID, logs[0].ActorID)

	s.Require().Equal(uint64(1), s.monitor.GetReport().Operator.State.RetriesAccepted.Load())
}

func (s *RetryTestSuite) TestRetryFailingAgain() {
	failed := s.failed()
	s.gateway.OnSubmit = func(ledger.Command) error {
		return ledger.Transient(context.DeadlineExceeded)
	}

	id, err := s.retry.Retry(s.ctx, failed.ID)
	s.Require().NoError(err)

	r, err := s.store.GetRecord(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Equal(model.OnchainStatusPending, r.Status)
}

func (s *RetryTestSuite) TestNonFailedJobs() {
	pending, err := s.record(s.contractID, model.OnchainStatusPending)
	s.Require().NoError(err)

	_, err = s.retry.Retry(s.ctx, pending.ID)
	s.Require().ErrorIs(err, model.ErrConflictingState)
	s.Require().ErrorContains(err, "cannot retry a non-failed job")

	succeeded, err := s.record(s.contractID, model.OnchainStatusSucceeded)
	s.Require().NoError(err)

	_, err = s.retry.Retry(s.ctx, succeeded.ID)
	s.Require().ErrorIs(err, model.ErrConflictingState)
	s.Require().Equal(0, s.gateway.Submits())
}

func (s *RetryTestSuite) TestSucceededSibling() {
	failed := s.failed()
	_, err := s.record(s.contractID, model.OnchainStatusSucceeded)
	s.Require().NoError(err)

	_, err = s.retry.Retry(s.ctx, failed.ID)
	s.Require().ErrorIs(err, model.ErrConflictingState)
	s.Require().ErrorContains(err, "retry would duplicate the effect")

	logs, err := s.store.ListActionLogs(s.ctx, s.contractID)
	s.Require().NoError(err)
	s.Require().Empty(logs)
	s.Require().Equal(0, s.gateway.Submits())
	s.Require().Equal(uint64(1), s.monitor.GetReport().Operator.Errors.Rejected.Load())
}

func (s *RetryTestSuite) TestMissingJob() {
	_, err := s.retry.Retry(s.ctx, 404)
	s.Require().ErrorIs(err, model.ErrNotFound)
}

func (s *RetryTestSuite) TestThrottled() {
	s.config.Operator.RetryRate = 0.001
	s.config.Operator.RetryBurst = 1
	s.retry = s.retryService()

	_, err := s.retry.Retry(s.ctx, 404)
	s.Require().ErrorIs(err, model.ErrNotFound)

	_, err = s.retry.Retry(s.ctx, 404)
	s.Require().ErrorIs(err, ErrThrottled)
	s.Require().Equal(uint64(1), s.monitor.GetReport().Operator.Errors.Throttled.Load())
}

func (s *RetryTestSuite) TestAsynchronousDispatch() {
	failed := s.failed()

	// Nobody dispatches in this process
	s.retry.WithPublisher(events.NewInProcessBus())

	start := time.Now()
	id, err := s.retry.Retry(s.ctx, failed.ID)
	s.Require().NoError(err)
	s.Require().Zero(id)
	s.Require().GreaterOrEqual(time.Since(start), 250*time.Millisecond)
}

func (s *RetryTestSuite) TestRetryOfOlderFailedRecord() {
	older := s.failed()
	newer := s.failed()

	// Newer record of the pair isn't mistaken for the new attempt
	s.retry.WithPublisher(events.NewInProcessBus())
	id, err := s.retry.Retry(s.ctx, older.ID)
	s.Require().NoError(err)
	s.Require().Zero(id)

	records, err := s.store.ListRecords(s.ctx, s.contractID, model.ActionTypeMint)
	s.Require().NoError(err)
	s.Require().Len(records, 2)

	s.retry.WithPublisher(s.bus)
	id, err = s.retry.Retry(s.ctx, older.ID)
	s.Require().NoError(err)
	s.Require().Greater(id, newer.ID)
}
