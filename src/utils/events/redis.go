package events

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/task"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// Stream entry field holding the encoded message
const payloadField = "payload"

// Sends events through a Redis stream read by a consumer group. Entries stay in the stream
// until a consumer acknowledges them, so events published while no dispatcher runs are delivered later.
// Handlers subscribed before Start consume entries on a worker pool. Without handlers the bus only publishes.
type RedisBus struct {
	*task.Task

	client   *redis.Client
	stream   string
	group    string
	consumer string

	mtx      sync.RWMutex
	handlers []Handler

	onConsumed  func(err error)
	onReclaimed func(n int)
}

func NewRedisBus(config *config.Config) (self *RedisBus) {
	self = new(RedisBus)
	self.stream = config.EventBus.Stream
	self.group = config.EventBus.ConsumerGroup
	self.consumer = consumerName(config.EventBus.ConsumerName)

	claimInterval := config.EventBus.ClaimInterval
	if claimInterval <= 0 {
		claimInterval = 30 * time.Second
	}

	// Workers finish, and acknowledge, before the connection is closed
	self.Task = task.NewTask(config, "redis-bus").
		WithOnBeforeStart(self.connect).
		WithWorkerPool(config.EventBus.ConsumerWorkers).
		WithOnAfterStop(self.disconnect).
		WithSubtaskFunc(self.run).
		WithPeriodicSubtaskFunc(claimInterval, self.reclaim)

	return
}

func consumerName(configured string) string {
	if configured != "" {
		return configured
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return xid.New().String()
	}
	return hostname
}

// Called after each consumed message, err is nil when all handlers succeeded
func (self *RedisBus) WithOnConsumed(f func(err error)) *RedisBus {
	self.onConsumed = f
	return self
}

// Called with the num of entries taken over from consumers that stopped responding
func (self *RedisBus) WithOnReclaimed(f func(n int)) *RedisBus {
	self.onReclaimed = f
	return self
}

func (self *RedisBus) Subscribe(h Handler) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.handlers = append(self.handlers, h)
}

func (self *RedisBus) consuming() bool {
	self.mtx.RLock()
	defer self.mtx.RUnlock()
	return len(self.handlers) > 0
}

func (self *RedisBus) connect() (err error) {
	self.client, err = NewRedisClient(&self.Config.Redis, self.Name)
	if err != nil {
		self.Log.WithError(err).Error("Failed to connect to Redis")
		return
	}

	// Publishers create the group too. Entries added before the first consumer starts are kept for it.
	err = self.client.XGroupCreateMkStream(self.Ctx, self.stream, self.group, "0").Err()
	if isBusyGroup(err) {
		err = nil
	}
	if err != nil {
		self.Log.WithError(err).WithFields(logrus.Fields{
			"stream": self.stream,
			"group":  self.group,
		}).Error("Failed to create consumer group")
	}
	return
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (self *RedisBus) disconnect() {
	if self.client == nil {
		return
	}
	err := self.client.Close()
	if err != nil {
		self.Log.WithError(err).Error("Failed to close connection")
	}
}

func (self *RedisBus) Publish(ctx context.Context, e Event) (err error) {
	msg := NewMessage(e)
	log := self.Log.WithFields(logrus.Fields{
		"type":        msg.Type,
		"contract_id": msg.ContractID,
	})

	var id string
	err = task.NewRetry().
		WithContext(ctx).
		WithMaxElapsedTime(self.Config.EventBus.PublishMaxElapsedTime).
		WithMaxInterval(self.Config.EventBus.PublishMaxInterval).
		WithAcceptableDuration(self.Config.EventBus.PublishAcceptableDuration).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			if isDurationAcceptable {
				log.WithError(err).Info("Failed to publish event, retrying")
			} else {
				log.WithError(err).Warn("Failed to publish event, retrying")
			}
			return err
		}).
		Run(func() (err error) {
			id, err = self.client.XAdd(ctx, &redis.XAddArgs{
				Stream: self.stream,
				MaxLen: self.Config.EventBus.MaxLen,
				Approx: true,
				Values: map[string]interface{}{payloadField: msg},
			}).Result()
			return
		})
	if err != nil {
		log.WithError(err).Error("Failed to publish event, giving up")
		return
	}

	log.WithField("id", id).Debug("Event published")
	return
}

func (self *RedisBus) run() (err error) {
	if !self.consuming() {
		<-self.StopChannel
		return nil
	}

	log := self.Log.WithFields(logrus.Fields{
		"stream":   self.stream,
		"group":    self.group,
		"consumer": self.consumer,
	})

	log.Info("Consuming")
	for {
		select {
		case <-self.StopChannel:
			return nil
		default:
		}

		err = self.read()
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}

		log.WithError(err).Warn("Failed to read from stream")
		select {
		case <-self.StopChannel:
			return nil
		case <-time.After(time.Second):
		}
	}
}

// Reads one batch of new entries and hands it to workers
func (self *RedisBus) read() (err error) {
	block := self.Config.EventBus.ReadBlock
	if block <= 0 {
		block = 5 * time.Second
	}

	streams, err := self.client.XReadGroup(self.Ctx, &redis.XReadGroupArgs{
		Group:    self.group,
		Consumer: self.consumer,
		Streams:  []string{self.stream, ">"},
		Count:    self.Config.EventBus.ReadCount,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return
	}

	for _, stream := range streams {
		for _, m := range stream.Messages {
			self.deliver(m)
		}
	}
	return
}

// Takes over entries received but never acknowledged, including this consumer's own from before a restart
func (self *RedisBus) reclaim() error {
	if !self.consuming() {
		return nil
	}

	start := "0-0"
	for {
		messages, next, err := self.client.XAutoClaim(self.Ctx, &redis.XAutoClaimArgs{
			Stream:   self.stream,
			Group:    self.group,
			Consumer: self.consumer,
			MinIdle:  self.Config.EventBus.ClaimMinIdle,
			Start:    start,
			Count:    self.Config.EventBus.ReadCount,
		}).Result()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				self.Log.WithError(err).Warn("Failed to reclaim abandoned entries")
			}
			// Retried on the next period
			return nil
		}

		for _, m := range messages {
			self.deliver(m)
		}
		if len(messages) > 0 {
			self.Log.WithField("count", len(messages)).Warn("Reclaimed abandoned entries")
			if self.onReclaimed != nil {
				self.onReclaimed(len(messages))
			}
		}

		if next == "" || next == "0-0" {
			return nil
		}
		start = next
	}
}

func (self *RedisBus) deliver(m redis.XMessage) {
	payload := payloadOf(m)
	self.SubmitToWorker(func() {
		// Failed events are acknowledged too, the reconciler republishes those that never produced a record
		self.handle(payload)
		self.ack(m.ID)
	})
}

func payloadOf(m redis.XMessage) string {
	payload, _ := m.Values[payloadField].(string)
	return payload
}

func (self *RedisBus) ack(id string) {
	// Acknowledged even while stopping
	ctx, cancel := context.WithTimeout(context.WithoutCancel(self.Ctx), 5*time.Second)
	defer cancel()

	err := self.client.XAck(ctx, self.stream, self.group, id).Err()
	if err != nil {
		self.Log.WithError(err).WithField("id", id).Warn("Failed to acknowledge entry, it will be delivered again")
	}
}

func (self *RedisBus) handle(payload string) {
	var msg Message
	err := msg.UnmarshalBinary([]byte(payload))
	if err != nil {
		self.Log.WithError(err).WithField("payload", payload).Error("Dropping malformed message")
		self.consumed(err)
		return
	}

	e, err := msg.Event()
	if err != nil {
		self.Log.WithError(err).WithField("payload", payload).Error("Dropping unknown event")
		self.consumed(err)
		return
	}

	self.mtx.RLock()
	handlers := self.handlers
	self.mtx.RUnlock()

	var errs []error
	for _, h := range handlers {
		err := h(self.Ctx, e)
		if err != nil {
			errs = append(errs, err)
		}
	}
	err = errors.Join(errs...)
	if err != nil {
		self.Log.WithError(err).WithFields(logrus.Fields{
			"type":        msg.Type,
			"contract_id": msg.ContractID,
		}).Warn("Event handling failed")
	}
	self.consumed(err)
}

func (self *RedisBus) consumed(err error) {
	if self.onConsumed != nil {
		self.onConsumed(err)
	}
}

func NewRedisClient(redisConfig *config.Redis, name string) (client *redis.Client, err error) {
	opts := redis.Options{
		ClientName:      fmt.Sprintf("anchor/%s", name),
		Addr:            fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password:        redisConfig.Password,
		Username:        redisConfig.User,
		DB:              redisConfig.DB,
		MinIdleConns:    redisConfig.MinIdleConns,
		MaxIdleConns:    redisConfig.MaxIdleConns,
		ConnMaxIdleTime: redisConfig.ConnMaxIdleTime,
		PoolSize:        redisConfig.MaxOpenConns,
		ConnMaxLifetime: redisConfig.ConnMaxLifetime,
	}

	if redisConfig.ClientCert != "" && redisConfig.ClientKey != "" && redisConfig.CaCert != "" {
		var cert tls.Certificate
		cert, err = tls.X509KeyPair([]byte(redisConfig.ClientCert), []byte(redisConfig.ClientKey))
		if err != nil {
			return
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM([]byte(redisConfig.CaCert)) {
			err = errors.New("failed to append CA cert to pool")
			return
		}

		opts.TLSConfig = &tls.Config{
			RootCAs:      caCertPool,
			ClientCAs:    caCertPool,
			Certificates: []tls.Certificate{cert},
		}
	}

	client = redis.NewClient(&opts)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		client = nil
	}
	return
}
