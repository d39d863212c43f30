package config

import (
	"time"

	"github.com/spf13/viper"
)

type Reconciler struct {
	// Cron spec of the sweep, e.g. "@every 30m"
	Schedule string

	// PENDING records younger than this are left to the dispatcher
	StaleAfter time.Duration

	// Number of records taken from the database in one query
	MaxRecordsPerRun int

	// Num of workers resolving records in parallel
	WorkerPoolSize int

	// Run a sweep right after start instead of waiting for the first tick
	RunOnStart bool
}

func setReconcilerDefaults() {
	viper.SetDefault("Reconciler.Schedule", "@every 30m")
	viper.SetDefault("Reconciler.StaleAfter", "45m")
	viper.SetDefault("Reconciler.MaxRecordsPerRun", "100")
	viper.SetDefault("Reconciler.WorkerPoolSize", "5")
	viper.SetDefault("Reconciler.RunOnStart", "true")
}
