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

// Voltage sweep diagnostic range
const (
	SweepStepTicks uint16 = 10
	MaxSweepTicks  uint16 = 10 * TicksPerUnit
)

// Controller is the power/lock state machine. It owns the power state and is
// the only component that advances it.
//
// Thread Safety: Controller is NOT thread-safe. Step, Run and SweepVoltage
// must be called from a single goroutine. The mailbox may be written
// concurrently by the reader side.
type Controller struct {
	harvestStart time.Time
	mailbox      *Mailbox
	sequencer    *Sequencer
	actuator     *Actuator
	store        *Store
	monitor      VoltageMonitor
	clock        Clock
	config       *ControllerConfig
	onTransition func(from, to PowerState)
	state        PowerState
}

// NewController wires the state machine to its collaborators. The
// controller starts in PowerOff.
func NewController(mailbox *Mailbox, bridge BridgeDriver, monitor VoltageMonitor,
	flash FlashPageDriver, opts ...Option,
) (*Controller, error) {
	if mailbox == nil || bridge == nil || monitor == nil || flash == nil {
		return nil, fmt.Errorf("%w: nil collaborator", ErrInvalidParameter)
	}

	c := &Controller{
		mailbox: mailbox,
		monitor: monitor,
		clock:   SystemClock(),
		config:  DefaultControllerConfig(),
		state:   PowerOff,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid controller config: %w", err)
	}

	store, err := NewStore(flash, c.clock, c.config.Store)
	if err != nil {
		return nil, err
	}

	c.store = store
	c.sequencer = NewSequencer(bridge)
	c.actuator = NewActuator(c.sequencer, monitor, mailbox, c.clock, c.config.Actuator)
	return c, nil
}

// State returns the current power state
func (c *Controller) State() PowerState {
	return c.state
}

// Store returns the lock state store
func (c *Controller) Store() *Store {
	return c.store
}

// Sequencer returns the H-bridge sequencer
func (c *Controller) Sequencer() *Sequencer {
	return c.sequencer
}

// Mailbox returns the mailbox shared with the reader
func (c *Controller) Mailbox() *Mailbox {
	return c.mailbox
}

func (c *Controller) transition(to PowerState) {
	from := c.state
	c.state = to
	debugf("state %s -> %s", from, to)
	if c.onTransition != nil {
		c.onTransition(from, to)
	}
}

// Step evaluates one transition of the state machine.
//
// A harvest wait that runs past HarvestTimeout returns the machine to
// ReadyForPasscode and reports a *TimeoutError; the next Step may start
// harvesting again. Failures while persisting or actuating leave the
// machine in Idle.
func (c *Controller) Step(ctx context.Context) error {
	switch c.state {
	case PowerOff:
		c.mailbox.set(SlotMCUValid, MCUValid)
		c.transition(ReadyForPasscode)
		return nil

	case ReadyForPasscode:
		return c.checkPasscode()

	case Harvesting:
		return c.checkHarvest()

	case HarvestingDone:
		return c.completeHarvest(ctx)

	case Idle:
		return nil

	default:
		return fmt.Errorf("%w: power state %s", ErrInvalidParameter, c.state)
	}
}

// checkPasscode compares the mailbox passcode exactly and in the clear.
// There is no rate limiting or lockout.
func (c *Controller) checkPasscode() error {
	passcode := c.mailbox.Load(SlotPasscode)
	switch passcode {
	case 0:
		return nil

	case c.config.Passcode:
		c.mailbox.set(SlotStatus, StatusPasscodeValid)
		if _, err := c.sequencer.Apply(BridgeOff); err != nil {
			c.mailbox.set(SlotStatus, StatusActuationFailed)
			c.transition(Idle)
			return fmt.Errorf("bridge to default: %w", err)
		}
		c.harvestStart = c.clock.Now()
		c.transition(Harvesting)
		return nil

	default:
		debugf("rejected passcode 0x%08X", passcode)
		c.mailbox.set(SlotStatus, StatusPasscodeInvalid)
		c.transition(Idle)
		return nil
	}
}

func (c *Controller) checkHarvest() error {
	act := c.config.Actuator
	if c.monitor.Compare(act.Channel, act.ThresholdTicks) {
		c.mailbox.set(SlotProgress, ProgressHarvested)
		c.transition(HarvestingDone)
		return nil
	}

	if c.config.HarvestTimeout <= 0 {
		return nil
	}
	waited := c.clock.Now().Sub(c.harvestStart)
	if waited < c.config.HarvestTimeout {
		return nil
	}

	c.mailbox.set(SlotStatus, StatusHarvestTimeout)
	c.transition(ReadyForPasscode)
	return NewTimeoutError("harvest wait", waited)
}

// completeHarvest records the new lock intent, then moves the bolt toward it.
// The intent is persisted first so a power cut during actuation leaves the
// record naming the state the bolt was heading to.
func (c *Controller) completeHarvest(ctx context.Context) error {
	rec, err := c.store.Toggle(c.config.Passcode)
	if err != nil {
		c.mailbox.set(SlotStatus, StatusPersistFailed)
		c.transition(Idle)
		return fmt.Errorf("persist lock state: %w", err)
	}
	debugf("lock state now %s, driving %d pulses", rec.State, c.config.Pulses)

	if err := c.actuator.Drive(ctx, rec.State, c.config.Pulses); err != nil {
		c.mailbox.set(SlotStatus, StatusActuationFailed)
		c.transition(Idle)
		return fmt.Errorf("drive bolt %s: %w", rec.State, err)
	}

	c.mailbox.set(SlotStatus, StatusHarvestingDone)
	c.transition(Idle)
	return nil
}

// Run steps the state machine until ctx ends, pausing between steps by the
// configured poll or idle interval. Harvest timeouts are recoverable and do
// not stop the loop; any other error is returned.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := c.Step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case IsTimeout(err) && c.state == ReadyForPasscode:
			debugf("recoverable: %v", err)
		default:
			return err
		}

		if c.state == Idle {
			c.clock.Sleep(c.config.IdleInterval)
		} else if c.state != HarvestingDone {
			c.clock.Sleep(c.config.PollInterval)
		}
	}
}

// SweepVoltage finds the highest threshold the harvest channel currently
// reaches, in SweepStepTicks increments, and publishes it to the voltage
// sweep slot.
func (c *Controller) SweepVoltage() uint16 {
	ch := c.config.Actuator.Channel
	var highest uint16
	for t := uint16(0); t <= MaxSweepTicks; t += SweepStepTicks {
		if !c.monitor.Compare(ch, t) {
			break
		}
		highest = t
	}
	c.mailbox.set(SlotVoltageSweep, uint32(highest))
	return highest
}
