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
	"fmt"
	"time"
)

// Voltage gate defaults
const (
	// ChannelHarvest is the comparator channel wired to the storage capacitor
	ChannelHarvest uint8 = 0
	// TicksPerUnit converts voltage units to comparator ticks
	TicksPerUnit = 100
	// DefaultThresholdTicks is the 3.0 unit actuation threshold
	DefaultThresholdTicks uint16 = 3 * TicksPerUnit
	// MaxPulses bounds the discharge cycles of a single activation
	MaxPulses = 16
)

// ActuatorConfig contains the timing of the discharge/recharge cycle
type ActuatorConfig struct {
	// PollInterval is the delay between voltage comparisons
	PollInterval time.Duration
	// MaxWait bounds each wait for the capacitor; zero waits forever
	MaxWait        time.Duration
	Discharge      time.Duration
	Recharge       time.Duration
	ThresholdTicks uint16
	Channel        uint8
}

// DefaultActuatorConfig returns the timing used by the lock hardware
func DefaultActuatorConfig() *ActuatorConfig {
	return &ActuatorConfig{
		PollInterval:   time.Millisecond,
		MaxWait:        10 * time.Second,
		Discharge:      50 * time.Millisecond,
		Recharge:       20 * time.Millisecond,
		ThresholdTicks: DefaultThresholdTicks,
		Channel:        ChannelHarvest,
	}
}

// Actuator turns the bolt motor by repeatedly discharging the storage
// capacitor through the H-bridge.
type Actuator struct {
	sequencer *Sequencer
	monitor   VoltageMonitor
	mailbox   *Mailbox
	clock     Clock
	config    *ActuatorConfig
}

// NewActuator creates an actuator. A nil config selects DefaultActuatorConfig.
func NewActuator(seq *Sequencer, monitor VoltageMonitor, mailbox *Mailbox,
	clock Clock, config *ActuatorConfig,
) *Actuator {
	if config == nil {
		config = DefaultActuatorConfig()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Actuator{
		sequencer: seq,
		monitor:   monitor,
		mailbox:   mailbox,
		clock:     clock,
		config:    config,
	}
}

// Drive runs pulses discharge/recharge cycles toward state, then releases the
// bridge. Each cycle waits for the capacitor to reach the threshold first.
func (a *Actuator) Drive(ctx context.Context, state LockState, pulses int) error {
	if pulses < 1 || pulses > MaxPulses {
		return fmt.Errorf("%w: pulses %d not in 1..%d", ErrInvalidParameter, pulses, MaxPulses)
	}

	target := BridgeTarget(state)
	var driveErr error
	for i := 0; i < pulses; i++ {
		if driveErr = a.pulse(ctx, target); driveErr != nil {
			driveErr = fmt.Errorf("pulse %d/%d toward %s: %w", i+1, pulses, state, driveErr)
			break
		}
	}

	if _, err := a.sequencer.Apply(BridgeOff); err != nil {
		return errors.Join(driveErr, fmt.Errorf("release bridge: %w", err))
	}
	return driveErr
}

func (a *Actuator) pulse(ctx context.Context, target BridgeOutputs) error {
	err := WaitFor(ctx, a.clock, WaitConfig{
		Op:       "motor charge wait",
		Interval: a.config.PollInterval,
		MaxWait:  a.config.MaxWait,
		OnPoll: func() {
			a.mailbox.set(SlotProgress, ProgressMotorWaiting)
		},
		Ready: func() bool {
			return a.monitor.Compare(a.config.Channel, a.config.ThresholdTicks)
		},
	})
	if err != nil {
		return err
	}

	a.mailbox.set(SlotProgress, ProgressDischarging)
	if _, err := a.sequencer.Apply(target); err != nil {
		return err
	}
	a.clock.Sleep(a.config.Discharge)

	a.mailbox.set(SlotProgress, ProgressRecharging)
	if _, err := a.sequencer.Apply(halfOpen(target)); err != nil {
		return err
	}
	a.clock.Sleep(a.config.Recharge)
	return nil
}
