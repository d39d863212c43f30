package cmd

import (
	"github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/model"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies database migrations using the migration user",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		return model.Migrate(applicationCtx, conf)
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished migrate command")
		return
	},
}
