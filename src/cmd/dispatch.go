package cmd

import (
	"github.com/artcommission/anchor/src/dispatch"
	"github.com/artcommission/anchor/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(dispatchCmd)
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Consumes contract events from Redis and anchors them on the ledger",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := dispatch.NewController(conf)
		if err != nil {
			return
		}

		return run(controller.Task)
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished dispatch command")
		return
	},
}
