package config

import (
	"time"

	"github.com/spf13/viper"
)

type Operator struct {
	// Max num of retries per second accepted from operators
	RetryRate float64

	// Max burst of retries
	RetryBurst int

	// How long a retry request waits for the new record to show up
	RetryLookupTimeout time.Duration

	// Interval between lookups of the new record
	RetryLookupInterval time.Duration

	// Default and max page size of the failed jobs list
	DefaultPageSize int
	MaxPageSize     int
}

func setOperatorDefaults() {
	viper.SetDefault("Operator.RetryRate", "1")
	viper.SetDefault("Operator.RetryBurst", "5")
	viper.SetDefault("Operator.RetryLookupTimeout", "3s")
	viper.SetDefault("Operator.RetryLookupInterval", "100ms")
	viper.SetDefault("Operator.DefaultPageSize", "20")
	viper.SetDefault("Operator.MaxPageSize", "100")
}
