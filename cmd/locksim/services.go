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
	"fmt"
	"os"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/ZaparooProject/go-nfclock/config"
	"github.com/ZaparooProject/go-nfclock/link"
	"github.com/ZaparooProject/go-nfclock/mirror"
	"github.com/ZaparooProject/go-nfclock/tag"
)

// startServices starts the serial link and the Modbus mirror when they are
// configured. The returned function stops them.
func startServices(ctx context.Context, cfg *config.Config, mailbox *nfclock.Mailbox) (func(), error) {
	var closers []func()
	stop := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Link.Port != "" {
		port, err := link.OpenPort(cfg.Link.Port, cfg.Link.Baud)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = port.Close() })
		go func() {
			if err := link.NewServer(port, mailbox).Serve(ctx); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Serial link stopped: %v\n", err)
			}
		}()
		_, _ = fmt.Printf("Serving mailbox on %s at %d baud\n", cfg.Link.Port, cfg.Link.Baud)
	}

	if cfg.Mirror.Endpoint != "" {
		m, err := mirror.Dial(cfg.Mirror, mailbox)
		if err != nil {
			stop()
			return nil, err
		}
		closers = append(closers, func() { _ = m.Close() })
		go func() { _ = m.Run(ctx) }()
		_, _ = fmt.Printf("Mirroring mailbox to %s unit %d\n", cfg.Mirror.Endpoint, cfg.Mirror.UnitID)
	}

	return stop, nil
}

// reporter prints state changes and refreshes the status tag image when an
// activation finishes
type reporter struct {
	cfg    *config.Config
	ctrl   *nfclock.Controller
	cancel context.CancelFunc
	hw     hardware
	once   bool
}

func (r *reporter) onTransition(from, to nfclock.PowerState) {
	_, _ = fmt.Printf("%s -> %s\n", from, to)
	if to != nfclock.Idle || r.ctrl == nil {
		return
	}

	status := r.ctrl.Mailbox().Load(nfclock.SlotStatus)
	rec, _, err := r.ctrl.Store().Read()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read lock state: %v\n", err)
	} else {
		_, _ = fmt.Printf("Activation finished: lock %s, status 0x%04X\n", rec.State, status)
	}
	if r.hw.motor != nil {
		_, _ = fmt.Printf("Motor drive: lock %s, unlock %s, shorts %d\n",
			r.hw.motor.DriveTime(nfclock.Locked), r.hw.motor.DriveTime(nfclock.Unlocked), r.hw.motor.Shorts())
	}

	if r.cfg.Tag.Output != "" && err == nil {
		if err := writeTag(r.cfg.Tag.Output, r.cfg.TagUID(), rec.State, status); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to write tag image: %v\n", err)
		}
	}

	if r.once {
		r.cancel()
	}
}

func writeTag(path string, uid [tag.UIDSize]byte, state nfclock.LockState, status uint32) error {
	img, err := tag.StatusImage(uid, state, status)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, img, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
