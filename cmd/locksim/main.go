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
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/ZaparooProject/go-nfclock/config"
	"github.com/ZaparooProject/go-nfclock/flash"
)

type flags struct {
	configPath *string
	tagOut     *string
	passcode   *uint64
	duration   *time.Duration
	debug      *bool
	sweep      *bool
	once       *bool
}

func parseFlags() *flags {
	f := &flags{
		configPath: flag.String("config", "", "YAML configuration file. Defaults apply when empty."),
		tagOut:     flag.String("tag-out", "", "Write the status tag image here after each activation (overrides config)"),
		passcode: flag.Uint64("passcode", 0,
			"Place this passcode in the mailbox at start, as a reader would. Zero waits for the serial link."),
		duration: flag.Duration("duration", 0, "Stop after this long (default: run until interrupted)"),
		debug:    flag.Bool("debug", false, "Enable debug output"),
		sweep:    flag.Bool("sweep", false, "Run the voltage sweep diagnostic and exit"),
		once:     flag.Bool("once", false, "Exit after the first activation reaches Idle"),
	}
	flag.Parse()

	if *f.debug {
		nfclock.SetDebugEnabled(true)
	}
	return f
}

// parsePasscode rejects flag values that do not fit a mailbox word
func parsePasscode(v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: passcode 0x%X exceeds 32 bits", nfclock.ErrInvalidParameter, v)
	}
	return uint32(v), nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}

func run() int {
	f := parseFlags()
	passcode, err := parsePasscode(*f.passcode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	cfg, err := loadConfig(*f.configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if *f.tagOut != "" {
		cfg.Tag.Output = *f.tagOut
	}

	image, err := flash.OpenFile(cfg.Flash.Image, cfg.Flash.Base, cfg.Flash.PageSize, cfg.Flash.Pages)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to open flash image: %v\n", err)
		return 1
	}
	defer func() { _ = image.Close() }()

	hw, err := newHardware(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to set up hardware: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *f.duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *f.duration)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			_, _ = fmt.Println("\nShutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	mailbox := nfclock.NewMailbox()
	reporter := &reporter{cfg: cfg, hw: hw, once: *f.once, cancel: cancel}

	opts := append(cfg.ControllerOptions(), nfclock.WithOnTransition(reporter.onTransition))
	ctrl, err := nfclock.NewController(mailbox, hw.bridge, hw.monitor, image, opts...)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to create controller: %v\n", err)
		return 1
	}
	reporter.ctrl = ctrl

	if *f.sweep {
		_, _ = fmt.Printf("Voltage sweep: %d ticks\n", ctrl.SweepVoltage())
		return 0
	}

	rec, status, err := ctrl.Store().Read()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read lock state: %v\n", err)
		return 1
	}
	_, _ = fmt.Printf("Lock state at boot: %s (%s record)\n", rec.State, status)

	stopServices, err := startServices(ctx, cfg, mailbox)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to start services: %v\n", err)
		return 1
	}
	defer stopServices()

	if passcode != 0 {
		if err := mailbox.Store(nfclock.SlotPasscode, passcode); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
	}

	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintf(os.Stderr, "Controller stopped: %v\n", err)
		return 1
	}
	return 0
}
