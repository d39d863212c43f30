package events

import "context"

type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Bus interface {
	Publisher
	Subscribe(h Handler)
}
