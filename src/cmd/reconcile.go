package cmd

import (
	"github.com/artcommission/anchor/src/reconcile"
	"github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/task"

	"github.com/spf13/cobra"
)

var reconcileOnce bool

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileOnce, "once", false, "run a single sweep, print its report and exit")
	RootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Periodically resolves PENDING onchain records by querying the ledger",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if reconcileOnce {
			owner := task.NewTask(conf, "reconcile-once")
			reconciler, err := reconcile.NewConfiguredReconciler(owner, monitoring.NewService())
			if err != nil {
				return err
			}

			err = owner.Start()
			if err != nil {
				return err
			}
			defer owner.StopWait()

			report, err := reconciler.Sweep(applicationCtx)
			if err != nil {
				return err
			}

			return printJSON(report)
		}

		controller, err := reconcile.NewController(conf)
		if err != nil {
			return
		}

		return run(controller.Task)
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished reconcile command")
		return
	},
}
