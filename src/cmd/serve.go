package cmd

import (
	"github.com/artcommission/anchor/src/serve"
	"github.com/artcommission/anchor/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs dispatching, reconciliation and operator endpoints in one process",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := serve.NewController(conf)
		if err != nil {
			return
		}

		return run(controller.Task)
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished serve command")
		return
	},
}
