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

package nfclock

import (
	"context"
	"errors"
	"time"

	"github.com/ZaparooProject/go-nfclock/internal/retry"
)

// WaitConfig configures WaitFor
type WaitConfig struct {
	// Ready is polled until it returns true
	Ready func() bool
	// OnPoll runs before every poll, e.g. to publish a status word
	OnPoll func()
	// Op names the wait in timeout errors
	Op       string
	Interval time.Duration
	// MaxWait of zero waits forever
	MaxWait time.Duration
}

// WaitFor polls cfg.Ready until it returns true. It returns a *TimeoutError
// when cfg.MaxWait elapses and ctx.Err() when ctx ends first.
func WaitFor(ctx context.Context, clock Clock, cfg WaitConfig) error {
	if cfg.Ready == nil {
		return ErrInvalidParameter
	}
	if clock == nil {
		clock = SystemClock()
	}

	waited, err := retry.Poll(ctx, retry.PollConfig{
		Now:      clock.Now,
		Sleep:    clock.Sleep,
		Ready:    cfg.Ready,
		OnPoll:   cfg.OnPoll,
		Interval: cfg.Interval,
		MaxWait:  cfg.MaxWait,
	})
	if errors.Is(err, retry.ErrTimeout) {
		debugf("%s gave up after %v", cfg.Op, waited)
		return NewTimeoutError(cfg.Op, waited)
	}
	return err
}
