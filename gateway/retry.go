package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// VenueError is a venue-side rejection (retCode != 0). Rejections are not
// retried: the venue understood the request and said no.
type VenueError struct {
	Code int
	Msg  string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue error %d: %s", e.Code, e.Msg)
}

// retryPolicy bounds the retry loop around real venue calls.
type retryPolicy struct {
	Attempts int
	BaseWait time.Duration
	MaxWait  time.Duration
}

var defaultRetry = retryPolicy{
	Attempts: 3,
	BaseWait: time.Second,
	MaxWait:  10 * time.Second,
}

// retry runs fn up to p.Attempts times with exponential backoff between
// attempts. It stops early on success, on a VenueError, or when ctx is done.
func retry(ctx context.Context, p retryPolicy, log *slog.Logger, op string, fn func() error) error {
	wait := p.BaseWait
	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		var ve *VenueError
		if errors.As(err, &ve) {
			return err
		}
		if attempt == p.Attempts {
			break
		}
		log.Warn("retrying", "op", op, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
		if wait > p.MaxWait {
			wait = p.MaxWait
		}
	}
	return err
}
