package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/artcommission/anchor/src/dispatch"
	"github.com/artcommission/anchor/src/lifecycle"
	"github.com/artcommission/anchor/src/utils/contract"
	"github.com/artcommission/anchor/src/utils/model"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/task"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	contractID        int64
	contractActor     int64
	contractMemo      string
	contractRatio     string
	contractSignature string

	terms          contract.Terms
	termsStartedAt string
	termsEndedAt   string
)

var errMissingID = errors.New("--id is required")

func init() {
	contractCmd.PersistentFlags().Int64Var(&contractID, "id", 0, "contract id")
	contractCmd.PersistentFlags().Int64Var(&contractActor, "actor", model.SystemActorID, "acting party, 0 is the system")
	contractCmd.PersistentFlags().StringVar(&contractMemo, "memo", "", "reason recorded in the action log")

	for _, cmd := range []*cobra.Command{offerCmd, reofferCmd} {
		cmd.Flags().Int64Var(&terms.ProjectID, "project", 0, "project the contract belongs to")
		cmd.Flags().Int64Var(&terms.LeaderID, "leader", 0, "leader user id")
		cmd.Flags().Int64Var(&terms.ArtistID, "artist", 0, "artist user id")
		cmd.Flags().StringVar(&terms.Title, "title", "", "title")
		cmd.Flags().StringVar(&terms.Description, "description", "", "description")
		cmd.Flags().StringVar(&termsStartedAt, "started-at", "", "start of work, RFC3339")
		cmd.Flags().StringVar(&termsEndedAt, "ended-at", "", "end of work, RFC3339")
		cmd.Flags().Int64Var(&terms.TotalAmount, "amount", 0, "total amount in minor units")
		cmd.Flags().StringVar(&terms.NftImageUrl, "nft-image-url", "", "image minted with the contract")
		_ = cmd.MarkFlagRequired("leader")
		_ = cmd.MarkFlagRequired("artist")
		_ = cmd.MarkFlagRequired("started-at")
		_ = cmd.MarkFlagRequired("ended-at")
		_ = cmd.MarkFlagRequired("amount")
	}

	approveCancellationCmd.Flags().StringVar(&contractRatio, "ratio", "", "working ratio overriding the time based one, e.g. 0.8")

	contractCmd.AddCommand(
		showContractCmd,
		offerCmd,
		reofferCmd,
		signCmd("sign-artist", "Artist accepts and signs the offer", func(ctx context.Context, s *lifecycle.Service, signature []byte) (*contract.Contract, error) {
			return s.SignByArtist(ctx, contractActor, contractID, signature)
		}),
		signCmd("sign-leader", "Leader countersigns, payment can be collected afterwards", func(ctx context.Context, s *lifecycle.Service, signature []byte) (*contract.Contract, error) {
			return s.SignByLeader(ctx, contractActor, contractID, signature)
		}),
		transitionCmd("decline", "Artist declines the offer", func(ctx context.Context, s *lifecycle.Service) (*contract.Contract, error) {
			return s.Decline(ctx, contractActor, contractID, contractMemo)
		}),
		transitionCmd("withdraw", "Leader withdraws the offer", func(ctx context.Context, s *lifecycle.Service) (*contract.Contract, error) {
			return s.Withdraw(ctx, contractActor, contractID)
		}),
		transitionCmd("complete-payment", "Marks the payment as captured, the contract gets minted", func(ctx context.Context, s *lifecycle.Service) (*contract.Contract, error) {
			return s.CompletePayment(ctx, contractActor, contractID)
		}),
		transitionCmd("complete", "Marks the work as delivered", func(ctx context.Context, s *lifecycle.Service) (*contract.Contract, error) {
			return s.Complete(ctx, contractActor, contractID)
		}),
		transitionCmd("request-cancellation", "Requests cancellation of a paid contract", func(ctx context.Context, s *lifecycle.Service) (*contract.Contract, error) {
			return s.RequestCancellation(ctx, contractActor, contractID, contractMemo)
		}),
		transitionCmd("reject-cancellation", "Turns the cancellation request down", func(ctx context.Context, s *lifecycle.Service) (*contract.Contract, error) {
			return s.RejectCancellation(ctx, contractActor, contractID, contractMemo)
		}),
		approveCancellationCmd,
	)

	RootCmd.AddCommand(contractCmd)
}

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Applies contract transitions on behalf of the parties or the system",
}

var showContractCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the contract",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if contractID == 0 {
			return errMissingID
		}
		return withLifecycle(func(s *lifecycle.Service) error {
			c, err := s.Get(applicationCtx, contractID)
			if err != nil {
				return err
			}
			return printJSON(c.ToModel())
		})
	},
}

var approveCancellationCmd = &cobra.Command{
	Use:   "approve-cancellation",
	Short: "Cancels the contract and prints the settlement",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if contractID == 0 {
			return errMissingID
		}
		override, err := parseRatio(contractRatio)
		if err != nil {
			return
		}

		return withLifecycle(func(s *lifecycle.Service) error {
			c, outcome, err := s.ApproveCancellation(applicationCtx, contractActor, contractID, override)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"contract":   c.ToModel(),
				"settlement": outcome,
			})
		})
	},
}

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "Leader offers a new contract to the artist",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = parseTermsPeriod()
		if err != nil {
			return
		}
		return withLifecycle(func(s *lifecycle.Service) error {
			c, err := s.Offer(applicationCtx, terms)
			if err != nil {
				return err
			}
			return printJSON(c.ToModel())
		})
	},
}

var reofferCmd = &cobra.Command{
	Use:   "reoffer",
	Short: "Leader revises the terms of a declined offer",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if contractID == 0 {
			return errMissingID
		}
		err = parseTermsPeriod()
		if err != nil {
			return
		}
		return withLifecycle(func(s *lifecycle.Service) error {
			c, err := s.Reoffer(applicationCtx, contractActor, contractID, terms)
			if err != nil {
				return err
			}
			return printJSON(c.ToModel())
		})
	},
}

func signCmd(use, short string, f func(ctx context.Context, s *lifecycle.Service, signature []byte) (*contract.Contract, error)) *cobra.Command {
	cmd := transitionCmd(use, short, func(ctx context.Context, s *lifecycle.Service) (*contract.Contract, error) {
		return f(ctx, s, []byte(contractSignature))
	})
	cmd.Flags().StringVar(&contractSignature, "signature", "", "signature of the acting party")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func transitionCmd(use, short string, f func(ctx context.Context, s *lifecycle.Service) (*contract.Contract, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if contractID == 0 {
				return errMissingID
			}
			return withLifecycle(func(s *lifecycle.Service) error {
				c, err := f(applicationCtx, s)
				if err != nil {
					return err
				}
				return printJSON(c.ToModel())
			})
		},
	}
}

// Runs f with the lifecycle service publishing to the configured event bus
func withLifecycle(f func(s *lifecycle.Service) error) (err error) {
	feeRate, err := decimal.NewFromString(conf.Settlement.DefaultFeeRate)
	if err != nil {
		return
	}

	owner := task.NewTask(conf, "contract-cmd")
	monitor := monitoring.NewService()

	store, bus, err := dispatch.NewPublishing(owner, monitor)
	if err != nil {
		return
	}

	err = owner.Start()
	if err != nil {
		return
	}
	defer owner.StopWait()

	service := lifecycle.NewService(store, bus).
		WithMonitor(monitor).
		WithFeeRate(feeRate).
		WithRatioDigits(conf.Settlement.RatioDigits)

	return f(service)
}

func parseTermsPeriod() (err error) {
	terms.StartedAt, err = time.Parse(time.RFC3339, termsStartedAt)
	if err != nil {
		return
	}
	terms.EndedAt, err = time.Parse(time.RFC3339, termsEndedAt)
	return
}

func parseRatio(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	ratio, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &ratio, nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
