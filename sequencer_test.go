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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allOutputs enumerates all sixteen switch combinations
func allOutputs() []BridgeOutputs {
	out := make([]BridgeOutputs, 0, 16)
	for i := 0; i < 16; i++ {
		out = append(out, BridgeOutputs{
			HS1: i&8 != 0,
			LS1: i&4 != 0,
			HS2: i&2 != 0,
			LS2: i&1 != 0,
		})
	}
	return out
}

func safeOutputs() []BridgeOutputs {
	var out []BridgeOutputs
	for _, o := range allOutputs() {
		if o.Safe() {
			out = append(out, o)
		}
	}
	return out
}

// lineFlips counts the switch lines that differ between a and b
func lineFlips(a, b BridgeOutputs) int {
	n := 0
	for _, d := range []bool{a.HS1 != b.HS1, a.LS1 != b.LS1, a.HS2 != b.HS2, a.LS2 != b.LS2} {
		if d {
			n++
		}
	}
	return n
}

func TestBridgeOutputs_Safe(t *testing.T) {
	t.Parallel()

	assert.True(t, BridgeOff.Safe())
	assert.True(t, BridgeLock.Safe())
	assert.True(t, BridgeUnlock.Safe())
	assert.False(t, BridgeOutputs{HS1: true, LS1: true}.Safe())
	assert.False(t, BridgeOutputs{HS2: true, LS2: true}.Safe())
	assert.Len(t, safeOutputs(), 9)
}

func TestSequencer_NoShootThrough(t *testing.T) {
	t.Parallel()

	targets := map[string]BridgeOutputs{
		"lock":   BridgeLock,
		"unlock": BridgeUnlock,
		"off":    BridgeOff,
	}

	for _, start := range safeOutputs() {
		start := start
		for name, target := range targets {
			target := target
			t.Run(start.String()+"_to_"+name, func(t *testing.T) {
				t.Parallel()
				driver := NewMockBridgeDriver()
				seq := NewSequencer(driver)
				seq.Reset(start)

				trace, err := seq.Apply(target)
				require.NoError(t, err)
				assert.Equal(t, trace, driver.Applied(), "every flip is one driver call")

				prev := start
				for i, step := range trace {
					assert.True(t, step.Safe(), "step %d (%s) shorts a leg", i, step)
					assert.Equal(t, 1, lineFlips(prev, step), "step %d flips more than one line", i)
					prev = step
				}

				assert.Equal(t, target, seq.Current())
				assert.LessOrEqual(t, len(trace), MaxSequenceFlips)
			})
		}
	}
}

func TestSequencer_Convergence(t *testing.T) {
	t.Parallel()

	for _, start := range allOutputs() {
		for _, target := range safeOutputs() {
			driver := NewMockBridgeDriver()
			seq := NewSequencer(driver)
			seq.Reset(start)

			trace, err := seq.Apply(target)
			require.NoError(t, err)
			assert.Equal(t, target, seq.Current(), "start %s target %s", start, target)
			assert.Equal(t, lineFlips(start, target), len(trace), "start %s target %s", start, target)
			assert.LessOrEqual(t, len(trace), MaxSequenceFlips)
		}
	}
}

func TestSequencer_RepairsShortedStart(t *testing.T) {
	t.Parallel()

	for _, start := range allOutputs() {
		if start.Safe() {
			continue
		}
		for _, target := range []BridgeOutputs{BridgeLock, BridgeUnlock, BridgeOff} {
			driver := NewMockBridgeDriver()
			seq := NewSequencer(driver)
			seq.Reset(start)

			trace, err := seq.Apply(target)
			require.NoError(t, err)
			require.NotEmpty(t, trace)

			// Once every shorted leg has been opened, no later step shorts again.
			shorted := 0
			if start.HS1 && start.LS1 {
				shorted++
			}
			if start.HS2 && start.LS2 {
				shorted++
			}
			for i := shorted - 1; i < len(trace); i++ {
				assert.True(t, trace[i].Safe(), "start %s step %d (%s)", start, i, trace[i])
			}
		}
	}
}

func TestSequencer_KnownTraces(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		start  BridgeOutputs
		target BridgeOutputs
		want   []BridgeOutputs
	}{
		{
			name:   "off to lock",
			start:  BridgeOff,
			target: BridgeLock,
			want: []BridgeOutputs{
				{LS1: true},
				{LS1: true, HS2: true},
			},
		},
		{
			name:   "lock to unlock",
			start:  BridgeLock,
			target: BridgeUnlock,
			want: []BridgeOutputs{
				{HS2: true},
				{HS1: true, HS2: true},
				{HS1: true},
				{HS1: true, LS2: true},
			},
		},
		{
			name:   "unlock to off",
			start:  BridgeUnlock,
			target: BridgeOff,
			want: []BridgeOutputs{
				{LS2: true},
				{},
			},
		},
		{
			name:   "already there",
			start:  BridgeUnlock,
			target: BridgeUnlock,
			want:   []BridgeOutputs{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			seq := NewSequencer(NewMockBridgeDriver())
			seq.Reset(tt.start)

			trace, err := seq.Apply(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, trace)
		})
	}
}

func TestSequencer_RejectsUnsafeTarget(t *testing.T) {
	t.Parallel()

	driver := NewMockBridgeDriver()
	seq := NewSequencer(driver)

	_, err := seq.Apply(BridgeOutputs{HS1: true, LS1: true})
	require.ErrorIs(t, err, ErrShootThrough)
	assert.Empty(t, driver.Applied())
	assert.Equal(t, BridgeOff, seq.Current())
}

func TestSequencer_DriverFailureKeepsCommittedState(t *testing.T) {
	t.Parallel()

	boom := errors.New("gpio write failed")
	driver := NewMockBridgeDriver()
	driver.FailAt = 2
	driver.Err = boom
	seq := NewSequencer(driver)

	trace, err := seq.Apply(BridgeLock)
	require.ErrorIs(t, err, ErrBridgeWrite)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []BridgeOutputs{{LS1: true}}, trace)
	assert.Equal(t, BridgeOutputs{LS1: true}, seq.Current())

	// A retry picks up from the committed state.
	trace, err = seq.Apply(BridgeLock)
	require.NoError(t, err)
	assert.Equal(t, []BridgeOutputs{BridgeLock}, trace)
}

func TestHalfOpen(t *testing.T) {
	t.Parallel()

	assert.Equal(t, BridgeOutputs{HS2: true}, halfOpen(BridgeLock))
	assert.Equal(t, BridgeOutputs{HS1: true}, halfOpen(BridgeUnlock))
	assert.Equal(t, 1, lineFlips(BridgeLock, halfOpen(BridgeLock)))
	assert.Equal(t, 1, lineFlips(BridgeUnlock, halfOpen(BridgeUnlock)))
}
