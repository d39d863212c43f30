package cmd

import (
	"errors"
	"time"

	"github.com/artcommission/anchor/src/utils/contract"
	"github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/repository"
	"github.com/artcommission/anchor/src/utils/settlement"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var settleFlags struct {
	contractID  int64
	ratio       string
	total       int64
	feeRate     string
	startedAt   string
	endedAt     string
	requestedAt string
}

func init() {
	flags := settleCmd.Flags()
	flags.Int64Var(&settleFlags.contractID, "id", 0, "contract waiting for cancellation approval, nothing is changed")
	flags.StringVar(&settleFlags.ratio, "ratio", "", "working ratio overriding the time based one, e.g. 0.8")
	flags.Int64Var(&settleFlags.total, "total", 0, "total amount in the smallest currency unit, used without --id")
	flags.StringVar(&settleFlags.feeRate, "fee-rate", "0.05", "fee rate, used without --id")
	flags.StringVar(&settleFlags.startedAt, "started-at", "", "RFC3339 start of the work, used without --id")
	flags.StringVar(&settleFlags.endedAt, "ended-at", "", "RFC3339 end of the work, used without --id")
	flags.StringVar(&settleFlags.requestedAt, "requested-at", "", "RFC3339 time of the cancellation request, used without --id")

	RootCmd.AddCommand(settleCmd)
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Prints how a cancelled contract would be settled",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		override, err := parseRatio(settleFlags.ratio)
		if err != nil {
			return
		}

		var outcome settlement.Outcome
		if settleFlags.contractID != 0 {
			outcome, err = settleStored(override)
		} else {
			outcome, err = settleGiven(override)
		}
		if err != nil {
			return
		}

		return printJSON(outcome)
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished settle command")
		return
	},
}

func settleStored(override *decimal.Decimal) (outcome settlement.Outcome, err error) {
	store, err := repository.NewStore(applicationCtx, conf, "anchor-settle")
	if err != nil {
		return
	}

	m, err := store.GetContract(applicationCtx, settleFlags.contractID)
	if err != nil {
		return
	}

	return settlement.NewSettler(store).
		WithRatioDigits(conf.Settlement.RatioDigits).
		Settle(applicationCtx, contract.FromModel(m), override)
}

func settleGiven(override *decimal.Decimal) (outcome settlement.Outcome, err error) {
	if settleFlags.startedAt == "" || settleFlags.endedAt == "" || settleFlags.requestedAt == "" {
		err = errors.New("either --id or --started-at, --ended-at and --requested-at are required")
		return
	}

	in := settlement.Input{
		TotalAmount: settleFlags.total,
		Override:    override,
		RatioDigits: conf.Settlement.RatioDigits,
	}

	in.FeeRate, err = decimal.NewFromString(settleFlags.feeRate)
	if err != nil {
		return
	}
	in.StartedAt, err = time.Parse(time.RFC3339, settleFlags.startedAt)
	if err != nil {
		return
	}
	in.EndedAt, err = time.Parse(time.RFC3339, settleFlags.endedAt)
	if err != nil {
		return
	}
	in.CancellationRequestedAt, err = time.Parse(time.RFC3339, settleFlags.requestedAt)
	if err != nil {
		return
	}

	return settlement.Calculate(in)
}
