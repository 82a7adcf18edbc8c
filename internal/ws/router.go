package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

var errUnknownEvent = errors.New("unknown_event")

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *ConnContext, body json.RawMessage) error

// Router keeps a map[event]handler, à-la gin.Engine. Decode and
// validation failures surface here, before any handler runs, so a
// malformed frame can never half-apply an action.
type Router struct {
	mu       sync.RWMutex
	validate *validator.Validate
	handlers map[string]rawHandler
}

func NewRouter() *Router {
	return &Router{
		validate: validator.New(),
		handlers: make(map[string]rawHandler),
	}
}

// Register binds an event to a strongly-typed handler.
func Register[Req any](
	r *Router,
	event string,
	h func(ctx context.Context, c *ConnContext, req Req) error,
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(ctx context.Context, c *ConnContext, body json.RawMessage) error {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return err
			}
		}
		if err := r.validate.Struct(&req); err != nil {
			return err
		}
		return h(ctx, c, req)
	}
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, env Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return errUnknownEvent
	}
	return h(ctx, c, env.Body)
}
