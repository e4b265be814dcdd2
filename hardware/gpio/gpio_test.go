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

package gpio

import (
	"errors"
	"testing"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type write struct {
	pin   string
	level gpio.Level
}

// recordingPin logs every Out call into a shared journal
type recordingPin struct {
	*gpiotest.Pin
	journal *[]write
	fail    error
}

func (p *recordingPin) Out(l gpio.Level) error {
	if p.fail != nil {
		return p.fail
	}
	*p.journal = append(*p.journal, write{pin: p.Name(), level: l})
	return p.Pin.Out(l)
}

func newRecordingPins(journal *[]write) []*recordingPin {
	names := []string{"HS1", "LS1", "HS2", "LS2"}
	pins := make([]*recordingPin, len(names))
	for i, n := range names {
		pins[i] = &recordingPin{Pin: &gpiotest.Pin{N: n, L: gpio.High}, journal: journal}
	}
	return pins
}

func newTestBridge(t *testing.T) (*Bridge, []*recordingPin, *[]write) {
	t.Helper()
	journal := &[]write{}
	pins := newRecordingPins(journal)
	b, err := NewBridgeFromPins(pins[0], pins[1], pins[2], pins[3])
	require.NoError(t, err)
	*journal = nil
	return b, pins, journal
}

func TestNewBridgeFromPins_DrivesLow(t *testing.T) {
	t.Parallel()
	journal := &[]write{}
	pins := newRecordingPins(journal)

	b, err := NewBridgeFromPins(pins[0], pins[1], pins[2], pins[3])
	require.NoError(t, err)
	assert.Equal(t, nfclock.BridgeOff, b.Outputs())
	for _, p := range pins {
		assert.Equal(t, gpio.Low, p.Read())
	}

	_, err = NewBridgeFromPins(pins[0], nil, pins[2], pins[3])
	require.ErrorIs(t, err, nfclock.ErrInvalidParameter)
}

func TestBridge_WritesOnlyChangedLines(t *testing.T) {
	t.Parallel()
	b, pins, journal := newTestBridge(t)

	require.NoError(t, b.SetSwitches(nfclock.BridgeOutputs{LS1: true}))
	require.NoError(t, b.SetSwitches(nfclock.BridgeLock))
	assert.Equal(t, []write{
		{pin: "LS1", level: gpio.High},
		{pin: "HS2", level: gpio.High},
	}, *journal)

	assert.Equal(t, gpio.Low, pins[0].Read())
	assert.Equal(t, gpio.High, pins[1].Read())
	assert.Equal(t, gpio.High, pins[2].Read())
	assert.Equal(t, gpio.Low, pins[3].Read())
	assert.Equal(t, nfclock.BridgeLock, b.Outputs())
}

func TestBridge_ReleasesBeforeEngaging(t *testing.T) {
	t.Parallel()
	b, _, journal := newTestBridge(t)
	require.NoError(t, b.SetSwitches(nfclock.BridgeLock))
	*journal = nil

	// A multi-line jump is still ordered offs first.
	require.NoError(t, b.SetSwitches(nfclock.BridgeUnlock))
	assert.Equal(t, []write{
		{pin: "LS1", level: gpio.Low},
		{pin: "HS2", level: gpio.Low},
		{pin: "HS1", level: gpio.High},
		{pin: "LS2", level: gpio.High},
	}, *journal)
}

func TestBridge_WithSequencer(t *testing.T) {
	t.Parallel()
	b, pins, _ := newTestBridge(t)
	seq := nfclock.NewSequencer(b)

	for _, target := range []nfclock.BridgeOutputs{nfclock.BridgeLock, nfclock.BridgeUnlock, nfclock.BridgeOff} {
		_, err := seq.Apply(target)
		require.NoError(t, err)
		assert.Equal(t, target, b.Outputs())
	}
	for _, p := range pins {
		assert.Equal(t, gpio.Low, p.Read())
	}
}

func TestBridge_WriteError(t *testing.T) {
	t.Parallel()
	b, pins, _ := newTestBridge(t)
	boom := errors.New("line busy")
	pins[1].fail = boom

	err := b.SetSwitches(nfclock.BridgeOutputs{LS1: true})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, nfclock.BridgeOff, b.Outputs())
}

func TestBridge_PartialWriteKeepsWrittenLines(t *testing.T) {
	t.Parallel()
	b, pins, journal := newTestBridge(t)
	require.NoError(t, b.SetSwitches(nfclock.BridgeLock))
	*journal = nil

	boom := errors.New("line busy")
	pins[3].fail = boom

	// LS1 and HS2 release, HS1 engages, then LS2 fails
	err := b.SetSwitches(nfclock.BridgeUnlock)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, nfclock.BridgeOutputs{HS1: true}, b.Outputs())
	assert.Equal(t, gpio.High, pins[0].Read())
	assert.Equal(t, gpio.Low, pins[1].Read())
	assert.Equal(t, gpio.Low, pins[2].Read())

	pins[3].fail = nil
	*journal = nil
	require.NoError(t, b.SetSwitches(nfclock.BridgeUnlock))
	assert.Equal(t, []write{{pin: "LS2", level: gpio.High}}, *journal)
	assert.Equal(t, nfclock.BridgeUnlock, b.Outputs())
}

func TestComparator(t *testing.T) {
	t.Parallel()
	pin := &gpiotest.Pin{N: "CMP", L: gpio.Low}
	c, err := NewComparatorFromPin(pin, nfclock.ChannelHarvest, nfclock.DefaultThresholdTicks)
	require.NoError(t, err)

	assert.False(t, c.Compare(nfclock.ChannelHarvest, nfclock.DefaultThresholdTicks))

	pin.L = gpio.High
	assert.True(t, c.Compare(nfclock.ChannelHarvest, nfclock.DefaultThresholdTicks))
	assert.True(t, c.Compare(nfclock.ChannelHarvest, 10))
	assert.False(t, c.Compare(nfclock.ChannelHarvest, nfclock.DefaultThresholdTicks+1))
	assert.False(t, c.Compare(nfclock.ChannelHarvest+1, 10))
}
