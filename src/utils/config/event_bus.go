package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	EventBusDriverInProcess = "inprocess"
	EventBusDriverRedis     = "redis"
)

type EventBus struct {
	// inprocess: handlers run synchronously on the publishing goroutine
	// redis: events are appended to a Redis stream and consumed by the dispatch command
	Driver string

	// Redis stream name
	Stream string

	// Approximate max length of the stream, 0 is no trimming
	MaxLen int64

	// Consumer group shared by dispatch processes
	ConsumerGroup string

	// Name of this consumer within the group, defaults to the hostname
	ConsumerName string

	// Num of workers handling events read from the stream
	ConsumerWorkers int

	// Max num of entries read at once
	ReadCount int64

	// How long a read waits for new entries
	ReadBlock time.Duration

	// Entries delivered but not acknowledged for this long are taken over from dead consumers
	ClaimMinIdle time.Duration

	// How often abandoned entries are looked for
	ClaimInterval time.Duration

	// Publish backoff configuration, 0 is no limit
	PublishMaxElapsedTime time.Duration
	PublishMaxInterval    time.Duration

	// Publish failures within this time since the first attempt are logged at lower severity
	PublishAcceptableDuration time.Duration
}

func setEventBusDefaults() {
	viper.SetDefault("EventBus.Driver", EventBusDriverInProcess)
	viper.SetDefault("EventBus.Stream", "anchor.contract-events")
	viper.SetDefault("EventBus.MaxLen", "100000")
	viper.SetDefault("EventBus.ConsumerGroup", "anchor.dispatch")
	viper.SetDefault("EventBus.ConsumerName", "")
	viper.SetDefault("EventBus.ConsumerWorkers", "5")
	viper.SetDefault("EventBus.ReadCount", "10")
	viper.SetDefault("EventBus.ReadBlock", "5s")
	viper.SetDefault("EventBus.ClaimMinIdle", "2m")
	viper.SetDefault("EventBus.ClaimInterval", "30s")
	viper.SetDefault("EventBus.PublishMaxElapsedTime", "1m")
	viper.SetDefault("EventBus.PublishMaxInterval", "5s")
	viper.SetDefault("EventBus.PublishAcceptableDuration", "5s")
}
