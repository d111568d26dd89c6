package ws

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"marketplace-client/internal/observability"
)

func (c *Channel) scheduleReconnect(ctx context.Context) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || ctx.Err() != nil {
		return
	}
	c.setState(Reconnecting)
	go c.reconnectLoop(ctx)
}

func (c *Channel) newBackOff() *backoff.ExponentialBackOff {
	p := c.opts.Reconnect
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = p.MaxElapsed
	b.Reset()
	return b
}

// reconnectLoop waits first, then dials, until a connection sticks, the
// attempt budget runs out or ctx is cancelled by Close.
func (c *Channel) reconnectLoop(ctx context.Context) {
	b := c.newBackOff()
	maxAttempts := c.opts.Reconnect.MaxAttempts

	for attempt := 1; ; attempt++ {
		wait := b.NextBackOff()
		if wait == backoff.Stop || (maxAttempts > 0 && attempt > maxAttempts) {
			c.giveUp(ctx, attempt-1)
			return
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		token := c.creds.Token()
		if token == "" {
			c.log.Warn(ctx, "reconnect stopped: credential cleared")
			c.setState(Disconnected)
			return
		}

		c.mu.Lock()
		c.token = token
		c.mu.Unlock()

		observability.IncReconnectAttempt()
		c.setState(Connecting)
		conn, info, err := c.dial(ctx, token, attempt)
		if err != nil {
			c.log.Warn(ctx, "reconnect attempt failed", "attempt", attempt, "elapsed", b.GetElapsedTime().String(), "error", err)
			c.publish(ctx, "ws_error", info, err.Error())
			c.setState(Reconnecting)
			continue
		}
		if err := c.attach(ctx, conn, info); err != nil {
			c.log.Debug(ctx, "reconnect discarded", "error", err)
		}
		return
	}
}

func (c *Channel) giveUp(ctx context.Context, attempts int) {
	if ctx.Err() != nil {
		return
	}
	c.log.Error(ctx, "realtime reconnect gave up", "attempts", attempts)
	c.publish(ctx, "ws_gave_up", ConnInfo{Origin: c.opts.Origin, Attempt: attempts}, "reconnect budget exhausted")
	c.setState(GaveUp)
	c.outbox.failAll("connection lost")
}
