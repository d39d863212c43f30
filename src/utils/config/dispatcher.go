package config

import (
	"time"

	"github.com/spf13/viper"
)

type Dispatcher struct {
	// How long a (contract, action) pair known to be SUCCEEDED is remembered
	SucceededCacheTTL time.Duration

	// How often expired cache entries are purged
	SucceededCacheCleanup time.Duration
}

func setDispatcherDefaults() {
	viper.SetDefault("Dispatcher.SucceededCacheTTL", "1h")
	viper.SetDefault("Dispatcher.SucceededCacheCleanup", "10m")
}
