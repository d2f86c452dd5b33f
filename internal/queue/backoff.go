// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package queue

import (
	"math/rand"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// RetryWithJitter is handler middleware retrying failed deliveries with
// full-jitter exponential backoff: before the k-th retry it sleeps
// uniform(0, min(Base*2^k, Cap)). Full jitter decorrelates retry storms
// when a burst of deliveries fails against the same dependency.
type RetryWithJitter struct {
	// MaxRetries bounds in-process retries after the initial attempt.
	MaxRetries int

	// Base and Cap parameterize the backoff ceiling per attempt.
	Base time.Duration
	Cap  time.Duration

	Logger watermill.LoggerAdapter

	// randInt63n allows deterministic jitter in tests. Defaults to
	// math/rand.
	randInt63n func(n int64) int64
}

// Middleware implements message.HandlerMiddleware.
func (r RetryWithJitter) Middleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		produced, err := h(msg)
		if err == nil {
			return produced, nil
		}

		for attempt := 0; attempt < r.MaxRetries; attempt++ {
			delay := r.Delay(attempt)
			if r.Logger != nil {
				r.Logger.Info("Retrying delivery after backoff", watermill.LogFields{
					"message_uuid": msg.UUID,
					"attempt":      attempt + 1,
					"delay":        delay.String(),
					"error":        err.Error(),
				})
			}

			select {
			case <-time.After(delay):
			case <-msg.Context().Done():
				return nil, err
			}

			produced, err = h(msg)
			if err == nil {
				return produced, nil
			}
		}

		return nil, err
	}
}

// Delay computes the full-jitter backoff for a zero-based attempt number.
func (r RetryWithJitter) Delay(attempt int) time.Duration {
	base := r.Base
	if base <= 0 {
		base = time.Second
	}
	ceiling := r.Cap
	if ceiling <= 0 {
		ceiling = 30 * time.Second
	}

	// Exponential ceiling, guarding shift overflow.
	exp := base
	for i := 0; i < attempt && exp < ceiling; i++ {
		exp *= 2
	}
	if exp > ceiling {
		exp = ceiling
	}

	randFn := r.randInt63n
	if randFn == nil {
		randFn = rand.Int63n
	}
	return time.Duration(randFn(int64(exp) + 1))
}
