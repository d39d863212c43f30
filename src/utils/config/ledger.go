package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	LedgerDriverEth     = "eth"
	LedgerDriverRelayer = "relayer"
	LedgerDriverMemory  = "memory"
)

type Ledger struct {
	// eth: transactions are signed and sent directly to an EVM node
	// relayer: transactions are handed over to a relayer REST service
	// memory: simulated ledger kept in process memory, for development
	Driver string

	// EVM node
	RpcUrl          string
	ChainId         int64
	ContractAddress string
	PrivateKey      string
	GasLimit        uint64

	// How many blocks back the outcome query looks for emitted events
	LookbackBlocks uint64

	// Relayer service
	RelayerUrl     string
	RelayerApiKey  string
	RequestTimeout time.Duration

	// Upper bound for waiting on a submitted transaction. Timeout means the outcome is unknown.
	SubmitTimeout time.Duration

	// Upper bound for a single outcome query
	QueryTimeout time.Duration

	// Max num of submissions per second, 0 disables limiting
	MaxSubmissionsPerSecond int

	// Error message fragments that mark a submission error as a definite rejection
	DeterministicErrors []string
}

func setLedgerDefaults() {
	viper.SetDefault("Ledger.Driver", LedgerDriverEth)
	viper.SetDefault("Ledger.RpcUrl", "http://127.0.0.1:8545")
	viper.SetDefault("Ledger.ChainId", "1337")
	viper.SetDefault("Ledger.ContractAddress", "")
	viper.SetDefault("Ledger.PrivateKey", "")
	viper.SetDefault("Ledger.GasLimit", "300000")
	viper.SetDefault("Ledger.LookbackBlocks", "50000")
	viper.SetDefault("Ledger.RelayerUrl", "http://127.0.0.1:8080")
	viper.SetDefault("Ledger.RelayerApiKey", "")
	viper.SetDefault("Ledger.RequestTimeout", "30s")
	viper.SetDefault("Ledger.SubmitTimeout", "2m")
	viper.SetDefault("Ledger.QueryTimeout", "30s")
	viper.SetDefault("Ledger.MaxSubmissionsPerSecond", "5")
	viper.SetDefault("Ledger.DeterministicErrors", []string{"execution reverted", "insufficient funds"})
}
