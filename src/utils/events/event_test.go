package events

import (
	"context"
	"errors"
	"testing"

	"github.com/artcommission/anchor/src/utils/model"

	"github.com/stretchr/testify/require"
)

func TestActionMapping(t *testing.T) {
	tests := []struct {
		event  Event
		action model.ActionType
	}{
		{NewContractPaid(1), model.ActionTypeMint},
		{NewContractCompleted(2), model.ActionTypeUpdateStatus},
		{NewContractCanceled(3), model.ActionTypeBurn},
	}

	for _, tc := range tests {
		action, err := ActionFor(tc.event)
		require.NoError(t, err)
		require.Equal(t, tc.action, action)

		back, err := ForAction(action, tc.event.ContractID())
		require.NoError(t, err)
		require.Equal(t, tc.event, back)
	}

	_, err := ActionFor(nil)
	require.ErrorIs(t, err, ErrUnknownEvent)

	_, err = ForAction(model.ActionType("TRANSFER"), 1)
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestMessageWireFormat(t *testing.T) {
	data, err := NewMessage(NewContractCanceled(77)).MarshalBinary()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"CANCELED","contract_id":77}`, string(data))

	var msg Message
	require.NoError(t, msg.UnmarshalBinary([]byte(`{"type":"PAID","contract_id":5}`)))
	e, err := msg.Event()
	require.NoError(t, err)
	require.Equal(t, NewContractPaid(5), e)

	require.NoError(t, msg.UnmarshalBinary([]byte(`{"type":"REFUNDED","contract_id":5}`)))
	_, err = msg.Event()
	require.ErrorIs(t, err, ErrUnknownEvent)

	require.NoError(t, msg.UnmarshalBinary([]byte(`{"type":"PAID"}`)))
	_, err = msg.Event()
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestInProcessBusDeliversInOrder(t *testing.T) {
	bus := NewInProcessBus()

	var calls []string
	bus.Subscribe(func(ctx context.Context, e Event) error {
		calls = append(calls, "first")
		return nil
	})
	bus.Subscribe(func(ctx context.Context, e Event) error {
		calls = append(calls, "second")
		require.Equal(t, int64(9), e.ContractID())
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), NewContractCompleted(9)))
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestInProcessBusJoinsErrors(t *testing.T) {
	bus := NewInProcessBus()
	first := errors.New("first")
	second := errors.New("second")

	called := 0
	bus.Subscribe(func(ctx context.Context, e Event) error {
		called++
		return first
	})
	bus.Subscribe(func(ctx context.Context, e Event) error {
		called++
		return second
	})

	err := bus.Publish(context.Background(), NewContractPaid(1))
	require.ErrorIs(t, err, first)
	require.ErrorIs(t, err, second)
	require.Equal(t, 2, called)
}

func TestInProcessBusWithoutHandlers(t *testing.T) {
	require.NoError(t, NewInProcessBus().Publish(context.Background(), NewContractPaid(1)))
}
