package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestContractVerbs(t *testing.T) {
	for _, use := range []string{
		"show", "offer", "reoffer", "sign-artist", "sign-leader", "decline", "withdraw",
		"complete-payment", "complete", "request-cancellation", "reject-cancellation", "approve-cancellation",
	} {
		cmd, _, err := contractCmd.Find([]string{use})
		require.Nil(t, err, use)
		require.Equal(t, use, cmd.Name())
	}
}

func TestSignVerbsRequireSignature(t *testing.T) {
	for _, use := range []string{"sign-artist", "sign-leader"} {
		cmd, _, err := contractCmd.Find([]string{use})
		require.Nil(t, err)

		flag := cmd.Flags().Lookup("signature")
		require.NotNil(t, flag, use)
		require.Equal(t, []string{"true"}, flag.Annotations[cobra.BashCompOneRequiredFlag])
	}
}

func TestTransitionsRequireID(t *testing.T) {
	contractID = 0
	for _, use := range []string{"reoffer", "sign-artist", "complete-payment", "approve-cancellation"} {
		cmd, _, err := contractCmd.Find([]string{use})
		require.Nil(t, err)
		require.ErrorIs(t, cmd.RunE(cmd, nil), errMissingID, use)
	}
}

func TestParseTermsPeriod(t *testing.T) {
	termsStartedAt, termsEndedAt = "2024-03-01T00:00:00Z", "2024-03-31T00:00:00Z"
	require.Nil(t, parseTermsPeriod())
	require.True(t, terms.StartedAt.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 30*24*time.Hour, terms.EndedAt.Sub(terms.StartedAt))

	termsEndedAt = "31.03.2024"
	require.Error(t, parseTermsPeriod())
}
