package ledger

import (
	"context"
	"fmt"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/model"
)

// Single state-changing call against the ledger
type Command struct {
	// Local record the call is made for
	RecordID int64

	ContractID int64
	Action     model.ActionType

	// Metadata of the minted token, MINT only
	TokenURI string

	// Status anchored by UPDATE_STATUS
	Status model.ContractStatus
}

type Receipt struct {
	TxHash string
}

type OutcomeKind int

const (
	// Ledger couldn't tell, nothing should be concluded
	OutcomeUnknown OutcomeKind = iota

	// Effect is on the ledger
	OutcomeSucceeded

	// Ledger definitively has no effect for the pair
	OutcomeAbsent
)

func (self OutcomeKind) String() string {
	switch self {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeAbsent:
		return "absent"
	}
	return "unknown"
}

type Outcome struct {
	Kind   OutcomeKind
	TxHash string
}

func Succeeded(txHash string) Outcome {
	return Outcome{Kind: OutcomeSucceeded, TxHash: txHash}
}

func Absent() Outcome {
	return Outcome{Kind: OutcomeAbsent}
}

func Unknown() Outcome {
	return Outcome{Kind: OutcomeUnknown}
}

// External, replicated ledger the contract actions are anchored in.
// Submit errors are classified, see IsTransient and IsDeterministic.
type Gateway interface {
	Submit(ctx context.Context, cmd Command) (Receipt, error)
	QueryOutcome(ctx context.Context, contractID int64, action model.ActionType) (Outcome, error)
}

// Gateway configured by Ledger.Driver, rate limited with Ledger.MaxSubmissionsPerSecond
func NewGateway(conf *config.Config) (gateway Gateway, err error) {
	switch conf.Ledger.Driver {
	case "", config.LedgerDriverEth:
		gateway, err = NewEthGateway(conf)
	case config.LedgerDriverRelayer:
		gateway = NewRelayerGateway(conf)
	case config.LedgerDriverMemory:
		gateway = NewMemoryGateway()
	default:
		err = fmt.Errorf("unknown ledger driver: %q", conf.Ledger.Driver)
	}
	if err != nil {
		return
	}

	return NewLimited(gateway, conf.Ledger.MaxSubmissionsPerSecond), nil
}
