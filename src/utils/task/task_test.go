package task

import (
	"errors"
	"testing"
	"time"

	"github.com/artcommission/anchor/src/utils/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestCronSubtaskRunsOnStart(t *testing.T) {
	var runs atomic.Int32
	task := NewTask(config.Default(), "cron").
		WithCronSubtaskFunc("@every 1h", true, func() error {
			runs.Inc()
			return errors.New("logged, doesn't stop the task")
		})

	require.NoError(t, task.Start())
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	task.StopWait()
	require.Error(t, task.CtxRunning.Err())
	require.Equal(t, int32(1), runs.Load())
}

func TestInvalidCronSpec(t *testing.T) {
	var runs atomic.Int32
	task := NewTask(config.Default(), "cron").
		WithCronSubtaskFunc("every hour", true, func() error {
			runs.Inc()
			return nil
		})

	require.NoError(t, task.Start())
	require.Eventually(t, func() bool { return task.CtxRunning.Err() != nil }, time.Second, 10*time.Millisecond)
	require.Zero(t, runs.Load())
}

func TestAfterStopHooksRunWhenSubtasksFinish(t *testing.T) {
	var stopped atomic.Bool
	task := NewTask(config.Default(), "short").
		WithOnAfterStop(func() { stopped.Store(true) }).
		WithSubtaskFunc(func() error { return nil })

	require.NoError(t, task.Start())
	require.Eventually(t, stopped.Load, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return task.CtxRunning.Err() != nil }, time.Second, 10*time.Millisecond)
}

func TestRetry(t *testing.T) {
	var attempts int
	err := NewRetry().
		WithInitialInterval(time.Millisecond).
		WithMaxInterval(5 * time.Millisecond).
		WithMaxElapsedTime(time.Second).
		Run(func() error {
			attempts++
			if attempts < 3 {
				return errors.New("not yet")
			}
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryPermanentError(t *testing.T) {
	var attempts int
	err := NewRetry().
		WithInitialInterval(time.Millisecond).
		WithMaxElapsedTime(time.Second).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			return backoff.Permanent(err)
		}).
		Run(func() error {
			attempts++
			return errors.New("broken")
		})
	require.EqualError(t, err, "broken")
	require.Equal(t, 1, attempts)
}

func TestPeriodicSubtask(t *testing.T) {
	var runs atomic.Int32
	task := NewTask(config.Default(), "periodic").
		WithPeriodicSubtaskFunc(5*time.Millisecond, func() error {
			runs.Inc()
			return nil
		})

	require.NoError(t, task.Start())
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)

	task.StopWait()
	require.Error(t, task.CtxRunning.Err())
}

func TestRetryAcceptableDuration(t *testing.T) {
	var acceptable []bool
	err := NewRetry().
		WithInitialInterval(50 * time.Millisecond).
		WithMaxInterval(50 * time.Millisecond).
		WithMaxElapsedTime(time.Second).
		WithAcceptableDuration(10 * time.Millisecond).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			acceptable = append(acceptable, isDurationAcceptable)
			if len(acceptable) == 2 {
				return backoff.Permanent(err)
			}
			return err
		}).
		Run(func() error {
			return errors.New("unavailable")
		})
	require.Error(t, err)
	require.Equal(t, []bool{true, false}, acceptable)
}
