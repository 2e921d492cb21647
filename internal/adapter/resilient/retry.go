// Package resilient wraps embedding and LLM services with rate limiting,
// per-attempt timeouts and retry with exponential backoff.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"pdfrag/internal/domain"
)

// Options configures retry behaviour.
type Options struct {
	MaxAttempts       int
	InitialWait       time.Duration
	MaxWait           time.Duration
	Jitter            bool
	AttemptTimeout    time.Duration // 0 means no per-attempt deadline
	RequestsPerSecond float64       // 0 disables rate limiting
}

// DefaultOptions mirrors the configuration defaults.
var DefaultOptions = Options{
	MaxAttempts: 3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Jitter:      true,
}

type policy struct {
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func newPolicy(opts Options, logger *slog.Logger) *policy {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &policy{opts: opts, logger: logger, sleep: sleepCtx}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return p
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	return errors.Is(err, domain.ErrServiceUnavailable)
}

// do runs f until it succeeds, fails with a non-retryable error, the context
// ends or the attempts are used up.
func do[T any](ctx context.Context, p *policy, op string, f func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	wait := p.opts.InitialWait

	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return zero, fmt.Errorf("%w: %s: rate limiter: %v", domain.ErrServiceUnavailable, op, err)
			}
		}

		out, err := attemptOnce(ctx, p.opts.AttemptTimeout, f)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(err) || attempt == p.opts.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%w: %s: %v", domain.ErrServiceUnavailable, op, ctx.Err())
		}

		sleepDur := wait
		if p.opts.Jitter {
			sleepDur = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if p.opts.MaxWait > 0 && sleepDur > p.opts.MaxWait {
			sleepDur = p.opts.MaxWait
		}
		p.logger.Warn("service call failed, retrying",
			"op", op, "attempt", attempt, "wait", sleepDur, "error", err)

		if err := p.sleep(ctx, sleepDur); err != nil {
			return zero, fmt.Errorf("%w: %s: %v", domain.ErrServiceUnavailable, op, err)
		}

		wait *= 2
		if p.opts.MaxWait > 0 && wait > p.opts.MaxWait {
			wait = p.opts.MaxWait
		}
	}
	return zero, lastErr
}

func attemptOnce[T any](ctx context.Context, timeout time.Duration, f func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out, err := f(ctx)
	if err != nil && !errors.Is(err, domain.ErrServiceUnavailable) &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		err = fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
