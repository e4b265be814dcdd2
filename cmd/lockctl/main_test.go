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

package main

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/ZaparooProject/go-nfclock/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinished(t *testing.T) {
	t.Parallel()

	assert.False(t, finished(0))
	assert.False(t, finished(nfclock.StatusPasscodeValid))
	assert.False(t, finished(nfclock.StatusHarvestTimeout))
	assert.True(t, finished(nfclock.StatusHarvestingDone))
	assert.True(t, finished(nfclock.StatusPasscodeInvalid))
}

// serveMailbox attaches a link server to mailbox and returns the host side
func serveMailbox(ctx context.Context, t *testing.T, mailbox *nfclock.Mailbox) *link.Client {
	t.Helper()

	lockSide, hostSide := net.Pipe()
	t.Cleanup(func() {
		_ = hostSide.Close()
		_ = lockSide.Close()
	})
	go func() { _ = link.NewServer(lockSide, mailbox).Serve(ctx) }()
	return link.NewClient(hostSide)
}

func TestActivate(t *testing.T) {
	t.Parallel()

	mailbox := nfclock.NewMailbox()
	require.NoError(t, mailbox.Store(nfclock.SlotMCUValid, nfclock.MCUValid))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := serveMailbox(ctx, t, mailbox)

	// stand in for the controller: finish once the passcode arrives
	go func() {
		for ctx.Err() == nil {
			if mailbox.Load(nfclock.SlotPasscode) == nfclock.DefaultPasscode {
				_ = mailbox.Store(nfclock.SlotStatus, nfclock.StatusHarvestingDone)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	err := activate(ctx, client, nfclock.DefaultPasscode, time.Millisecond)
	require.NoError(t, err)
}

func TestActivate_IgnoresStatusFromEarlierActivation(t *testing.T) {
	t.Parallel()

	mailbox := nfclock.NewMailbox()
	require.NoError(t, mailbox.Store(nfclock.SlotMCUValid, nfclock.MCUValid))
	require.NoError(t, mailbox.Store(nfclock.SlotStatus, nfclock.StatusHarvestingDone))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	client := serveMailbox(ctx, t, mailbox)

	// no controller is running, so nothing answers the passcode
	err := activate(ctx, client, nfclock.DefaultPasscode, time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestActivate_RepeatActivationAfterReboot(t *testing.T) {
	t.Parallel()

	mailbox := nfclock.NewMailbox()
	require.NoError(t, mailbox.Store(nfclock.SlotMCUValid, nfclock.MCUValid))
	require.NoError(t, mailbox.Store(nfclock.SlotStatus, nfclock.StatusHarvestingDone))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := serveMailbox(ctx, t, mailbox)

	// the lock accepts the passcode and runs a fresh activation
	go func() {
		for ctx.Err() == nil {
			if mailbox.Load(nfclock.SlotPasscode) == nfclock.DefaultPasscode {
				_ = mailbox.Store(nfclock.SlotStatus, nfclock.StatusPasscodeValid)
				time.Sleep(5 * time.Millisecond)
				_ = mailbox.Store(nfclock.SlotStatus, nfclock.StatusHarvestingDone)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	require.NoError(t, activate(ctx, client, nfclock.DefaultPasscode, time.Millisecond))
}

func TestParsePasscode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      uint64
		want    uint32
		wantErr bool
	}{
		{name: "zero", in: 0, want: 0},
		{name: "default", in: 0x12345678, want: 0x12345678},
		{name: "max", in: math.MaxUint32, want: math.MaxUint32},
		{name: "truncating value", in: 0x100000000, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parsePasscode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, nfclock.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"1a86:7523", "0403:6001"}, splitList(" 1a86:7523, ,0403:6001 "))
}
