package config

import (
	"github.com/spf13/viper"
)

type Settlement struct {
	// Number of fractional digits the working ratio is rounded to
	RatioDigits int32

	// Fee rate applied to newly offered contracts, e.g. "0.05"
	DefaultFeeRate string
}

func setSettlementDefaults() {
	viper.SetDefault("Settlement.RatioDigits", "4")
	viper.SetDefault("Settlement.DefaultFeeRate", "0.05")
}
