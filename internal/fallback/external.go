package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// ExternalStrategy delegates to a secondary model. It is available only while
// its credential check passes. Concurrent identical requests share one call.
type ExternalStrategy struct {
	generator Generator
	available func() bool
	group     singleflight.Group
}

func NewExternalStrategy(generator Generator, available func() bool) *ExternalStrategy {
	return &ExternalStrategy{generator: generator, available: available}
}

func (s *ExternalStrategy) IsAvailable() bool {
	return s.generator != nil && s.available != nil && s.available()
}

func (s *ExternalStrategy) BaseConfidence() float64 { return ExternalConfidence }

func (s *ExternalStrategy) Generate(ctx context.Context, req *Request) (*Answer, error) {
	if !s.IsAvailable() {
		return nil, ErrFallbackUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-s.group.DoChan(req.key(), func() (interface{}, error) {
		return s.call(ctx, req)
	}):
	}

	v, err := res.Val, res.Err
	if err != nil && res.Shared && isContextErr(err) && ctx.Err() == nil {
		// the shared call hit another caller's deadline; ours is still live
		v, err = s.generator.Generate(ctx, req)
	}
	if err != nil {
		// credential revoked mid-flight
		if !s.IsAvailable() {
			return nil, fmt.Errorf("%w: %v", ErrFallbackUnavailable, err)
		}
		return nil, err
	}

	answer, ok := v.(*Answer)
	if !ok || answer == nil {
		return nil, fmt.Errorf("external model returned no answer")
	}
	return answer.clone(), nil
}

// call runs the shared request detached from the first caller's
// cancellation, bounded by that caller's deadline.
func (s *ExternalStrategy) call(ctx context.Context, req *Request) (interface{}, error) {
	timeout := DefaultFallbackTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return s.generator.Generate(callCtx, req)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
