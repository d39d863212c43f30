package ledger

import (
	"context"

	"go.uber.org/ratelimit"
)

// Spreads submissions evenly in time. Outcome queries aren't limited.
type Limited struct {
	Gateway
	limiter ratelimit.Limiter
}

func NewLimited(gateway Gateway, perSecond int) Gateway {
	if perSecond <= 0 {
		return gateway
	}
	return &Limited{
		Gateway: gateway,
		limiter: ratelimit.New(perSecond),
	}
}

func (self *Limited) Submit(ctx context.Context, cmd Command) (Receipt, error) {
	self.limiter.Take()
	if err := ctx.Err(); err != nil {
		return Receipt{}, Transient(err)
	}
	return self.Gateway.Submit(ctx, cmd)
}
