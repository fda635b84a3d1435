package model

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// GuardOptions configures a guarded model.
type GuardOptions struct {
	// Timeout bounds every Generate call. Zero disables the timeout.
	Timeout time.Duration
	// RatePerSecond throttles Generate calls. Zero disables throttling.
	RatePerSecond float64
	// Burst is the token bucket size (defaults to 1 when throttling).
	Burst int
}

// Guarded wraps a Model with a per-call timeout and an optional token bucket
// limiter so provider slowness or quota exhaustion surfaces as an ordinary
// error instead of a hung turn.
type Guarded struct {
	next    Model
	timeout time.Duration
	limiter *rate.Limiter
}

// NewGuarded wraps next according to the supplied options.
func NewGuarded(next Model, optFns ...func(o *GuardOptions)) *Guarded {
	opts := GuardOptions{Timeout: 30 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	g := &Guarded{next: next, timeout: opts.Timeout}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return g
}

// Generate implements Model.
func (g *Guarded) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return failed(fmt.Errorf("rate limit wait: %w", err))
		}
	}
	if g.timeout <= 0 {
		return g.next.Generate(ctx, req)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	inner, innerErr := g.next.Generate(callCtx, req)

	out := make(chan Response, 32)
	errCh := make(chan error, 1)
	go func() {
		defer cancel()
		defer close(out)
		defer close(errCh)
		for inner != nil || innerErr != nil {
			select {
			case <-callCtx.Done():
				errCh <- fmt.Errorf("model call timed out after %s: %w", g.timeout, callCtx.Err())
				return
			case r, ok := <-inner:
				if !ok {
					inner = nil
					continue
				}
				out <- r
			case err, ok := <-innerErr:
				if !ok {
					innerErr = nil
					continue
				}
				if err != nil {
					errCh <- err
					return
				}
			}
		}
	}()
	return out, errCh
}

// Info implements Model.
func (g *Guarded) Info() Info { return g.next.Info() }

func failed(err error) (<-chan Response, <-chan error) {
	out := make(chan Response)
	errCh := make(chan error, 1)
	errCh <- err
	close(out)
	close(errCh)
	return out, errCh
}
