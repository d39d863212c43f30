package cmd

import (
	"github.com/artcommission/anchor/src/operator"
	"github.com/artcommission/anchor/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(operatorCmd)
}

var operatorCmd = &cobra.Command{
	Use:   "operator",
	Short: "Serves endpoints for inspecting and retrying failed onchain jobs",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := operator.NewController(conf)
		if err != nil {
			return
		}

		return run(controller.Task)
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished operator command")
		return
	},
}
