package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/events"
	"github.com/artcommission/anchor/src/utils/model"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/task"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNewBus(t *testing.T) {
	conf := config.Default()
	monitor := monitoring.NewService()
	dispatcher := NewDispatcher(conf)

	conf.EventBus.Driver = config.EventBusDriverInProcess
	bus, busTask, err := NewBus(conf, dispatcher, monitor, true)
	require.NoError(t, err)
	require.Nil(t, busTask)
	require.IsType(t, &events.InProcessBus{}, bus)

	conf.EventBus.Driver = config.EventBusDriverRedis
	bus, busTask, err = NewBus(conf, dispatcher, monitor, false)
	require.NoError(t, err)
	require.NotNil(t, busTask)
	require.IsType(t, &events.RedisBus{}, bus)

	conf.EventBus.Driver = "kafka"
	_, _, err = NewBus(conf, dispatcher, monitor, false)
	require.Error(t, err)
}

func TestPublishingDispatchesInProcess(t *testing.T) {
	ctx := context.Background()

	conf := config.Default()
	conf.EventBus.Driver = config.EventBusDriverInProcess
	conf.Database.Driver = config.DatabaseDriverMemory
	conf.Ledger.Driver = config.LedgerDriverMemory

	owner := task.NewTask(conf, "test")
	monitor := monitoring.NewService()

	store, bus, err := NewPublishing(owner, monitor)
	require.NoError(t, err)

	c := &model.Contract{
		LeaderID:       1,
		ArtistID:       2,
		Title:          "Logo",
		StartedAt:      time.Now(),
		EndedAt:        time.Now().Add(time.Hour),
		TotalAmount:    1000,
		AppliedFeeRate: decimal.Zero,
		Status:         model.ContractStatusPaymentCompleted,
	}
	require.NoError(t, store.CreateContract(ctx, c))

	require.NoError(t, bus.Publish(ctx, events.NewContractPaid(c.ID)))

	r, err := store.FindSucceeded(ctx, c.ID, model.ActionTypeMint)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, uint64(1), monitor.GetReport().Dispatcher.State.Succeeded.Load())
}
