package report

import (
	"go.uber.org/atomic"
)

type EventBusErrors struct {
	Publish atomic.Uint64 `json:"publish"`
	Consume atomic.Uint64 `json:"consume"`
}

type EventBusState struct {
	MessagesPublished atomic.Uint64 `json:"messages_published"`
	MessagesConsumed  atomic.Uint64 `json:"messages_consumed"`
	MessagesReclaimed atomic.Uint64 `json:"messages_reclaimed"`
}

type EventBusReport struct {
	State  EventBusState  `json:"state"`
	Errors EventBusErrors `json:"errors"`
}
