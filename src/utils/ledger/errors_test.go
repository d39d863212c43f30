package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifier(t *testing.T) {
	classifier := NewClassifier([]string{"execution reverted", " Insufficient Funds ", ""})

	tests := []struct {
		err           error
		deterministic bool
	}{
		{errors.New("execution reverted: already minted"), true},
		{errors.New("INSUFFICIENT FUNDS for gas * price + value"), true},
		{errors.New("connection refused"), false},
		{fmt.Errorf("wait: %w", context.DeadlineExceeded), false},
		{errors.New("nonce too low"), false},
	}

	for _, tc := range tests {
		err := classifier.Classify(tc.err)
		require.ErrorIs(t, err, tc.err)
		require.Equal(t, tc.deterministic, IsDeterministic(err), tc.err.Error())
		require.Equal(t, !tc.deterministic, IsTransient(err), tc.err.Error())
	}

	require.NoError(t, classifier.Classify(nil))
}

func TestClassificationIsKept(t *testing.T) {
	classifier := NewClassifier([]string{"reverted"})

	err := Transient(errors.New("execution reverted"))
	require.True(t, IsTransient(classifier.Classify(err)))
	require.False(t, IsDeterministic(classifier.Classify(err)))

	err = Deterministic(err)
	require.False(t, IsDeterministic(err))
}
