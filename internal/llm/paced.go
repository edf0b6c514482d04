package llm

import (
	"context"

	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
	"github.com/PentesterFlow/jalapi/internal/ratelimit"
)

// Paced waits on a shared limiter before every request and feeds the
// outcome back so throttling slows all workers down.
type Paced struct {
	next    Completer
	limiter *ratelimit.AdaptiveRateLimiter
}

// NewPaced wraps next with limiter.
func NewPaced(next Completer, limiter *ratelimit.AdaptiveRateLimiter) *Paced {
	return &Paced{next: next, limiter: limiter}
}

// Complete waits for a token then forwards req.
func (p *Paced) Complete(ctx context.Context, req Request) (Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return Response{}, apperrors.Categorize(ctx.Err(), req.Model)
		}
		// The deadline arrives before a token would.
		return Response{}, apperrors.NewTimeoutError(req.Model, "wait", err)
	}

	resp, err := p.next.Complete(ctx, req)
	switch {
	case err == nil:
		p.limiter.RecordSuccess()
	case apperrors.IsRateLimitError(err):
		p.limiter.RecordThrottle()
	case apperrors.IsRetryable(err):
		p.limiter.RecordError()
	}
	return resp, err
}

// Limiter returns the underlying limiter.
func (p *Paced) Limiter() *ratelimit.AdaptiveRateLimiter {
	return p.limiter
}
