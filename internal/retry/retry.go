// go-nfclock
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfclock.
//
// go-nfclock is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfclock is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfclock; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package retry provides bounded retry and polling loops
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Retry errors
var (
	ErrExhausted = errors.New("retries exhausted")
	ErrTimeout   = errors.New("poll timed out")
)

// Operation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation failed transiently, err holds the cause
// - error: with shouldRetry false, a permanent error that stops retries
type Operation[T any] func(attempt int) (T, bool, error)

// Config configures retry behavior
type Config struct {
	OnRetry       func(attempt int, cause error) error
	OnRetryFailed func(cause error) error
	Sleep         func(time.Duration)
	Description   string
	MaxRetries    int
	RetryDelay    time.Duration
}

// Do executes an operation up to MaxRetries+1 times
func Do[T any](config Config, operation Operation[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation(attempt)
		if !shouldRetry {
			if err != nil {
				return zero, err
			}
			return result, nil
		}
		lastErr = err

		// If we should retry but we're at max attempts, break
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(attempt+1, lastErr); err != nil {
				return zero, err
			}
		}

		if config.RetryDelay > 0 {
			sleep(config.Sleep, config.RetryDelay)
		}
	}

	return handleExhausted[T](config, lastErr)
}

func handleExhausted[T any](config Config, lastErr error) (T, error) {
	var zero T

	if config.OnRetryFailed != nil {
		if failErr := config.OnRetryFailed(lastErr); failErr != nil {
			return zero, failErr
		}
	}

	desc := config.Description
	if desc == "" {
		desc = "operation"
	}
	if lastErr == nil {
		return zero, fmt.Errorf("%s: %w after %d attempts", desc, ErrExhausted, config.MaxRetries+1)
	}
	return zero, fmt.Errorf("%s: %w after %d attempts: %w", desc, ErrExhausted, config.MaxRetries+1, lastErr)
}

func sleep(fn func(time.Duration), d time.Duration) {
	if fn != nil {
		fn(d)
		return
	}
	time.Sleep(d)
}

// PollConfig configures Poll
type PollConfig struct {
	Now      func() time.Time
	Sleep    func(time.Duration)
	Ready    func() bool
	OnPoll   func()
	Interval time.Duration
	// MaxWait of zero polls until Ready or the context ends
	MaxWait time.Duration
}

// Poll calls OnPoll then Ready until Ready returns true. It returns the time
// spent waiting, and ErrTimeout once MaxWait has elapsed.
func Poll(ctx context.Context, config PollConfig) (time.Duration, error) {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	start := now()

	for {
		if err := ctx.Err(); err != nil {
			return now().Sub(start), err
		}

		if config.OnPoll != nil {
			config.OnPoll()
		}
		if config.Ready() {
			return now().Sub(start), nil
		}

		waited := now().Sub(start)
		if config.MaxWait > 0 && waited >= config.MaxWait {
			return waited, ErrTimeout
		}

		if config.Interval > 0 {
			sleep(config.Sleep, config.Interval)
		}
	}
}
