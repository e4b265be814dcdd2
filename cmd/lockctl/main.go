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
	"strings"
	"time"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/ZaparooProject/go-nfclock/link"
)

type config struct {
	port      *string
	blocklist *string
	baud      *int
	passcode  *uint64
	timeout   *time.Duration
	poll      *time.Duration
	debug     *bool
}

func parseFlags() *config {
	cfg := &config{
		port: flag.String("port", "",
			"Serial port of the lock (e.g., /dev/ttyUSB0 or COM3). Leave empty for auto-detection."),
		blocklist: flag.String("blocklist", "", "Comma separated VID:PID pairs to skip during auto-detection"),
		baud:      flag.Int("baud", link.DefaultBaudRate, "Line rate"),
		passcode:  flag.Uint64("passcode", 0, "Passcode to present. Zero only prints the mailbox."),
		timeout:   flag.Duration("timeout", 60*time.Second, "How long to wait for the activation to finish"),
		poll:      flag.Duration("poll-interval", 200*time.Millisecond, "Status polling interval"),
		debug:     flag.Bool("debug", false, "Enable debug output"),
	}
	flag.Parse()

	if *cfg.debug {
		nfclock.SetDebugEnabled(true)
	}
	return cfg
}

func statusName(status uint32) string {
	switch status {
	case 0:
		return "none"
	case nfclock.StatusPasscodeValid:
		return "passcode accepted"
	case nfclock.StatusPasscodeInvalid:
		return "passcode rejected"
	case nfclock.StatusHarvestingDone:
		return "done"
	case nfclock.StatusHarvestTimeout:
		return "harvest timed out"
	case nfclock.StatusPersistFailed:
		return "persist failed"
	case nfclock.StatusActuationFailed:
		return "actuation failed"
	default:
		return "unknown"
	}
}

// finished reports whether status ends an activation
func finished(status uint32) bool {
	switch status {
	case nfclock.StatusPasscodeInvalid, nfclock.StatusHarvestingDone,
		nfclock.StatusPersistFailed, nfclock.StatusActuationFailed:
		return true
	}
	return false
}

func printMailbox(ctx context.Context, client *link.Client) error {
	for _, slot := range []int{nfclock.SlotMCUValid, nfclock.SlotStatus, nfclock.SlotProgress, nfclock.SlotVoltageSweep} {
		v, err := client.ReadWord(ctx, slot)
		if err != nil {
			return fmt.Errorf("read slot %d: %w", slot, err)
		}
		_, _ = fmt.Printf("[%d] 0x%08X\n", slot, v)
	}
	return nil
}

func activate(ctx context.Context, client *link.Client, passcode uint32, poll time.Duration) error {
	mcu, err := client.ReadWord(ctx, nfclock.SlotMCUValid)
	if err != nil {
		return fmt.Errorf("read MCU marker: %w", err)
	}
	if mcu != nfclock.MCUValid {
		return fmt.Errorf("lock not ready: marker 0x%08X", mcu)
	}

	// the lock stays in Idle until it loses power, so a terminal status
	// left from an earlier activation must not count as this one's result
	baseline, err := client.ReadWord(ctx, nfclock.SlotStatus)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	if err := client.WriteWord(ctx, nfclock.SlotPasscode, passcode); err != nil {
		return fmt.Errorf("write passcode: %w", err)
	}

	lastStatus, changed := baseline, false
	var lastProgress uint32
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		status, err := client.ReadWord(ctx, nfclock.SlotStatus)
		if err != nil {
			return fmt.Errorf("read status: %w", err)
		}
		progress, err := client.ReadWord(ctx, nfclock.SlotProgress)
		if err != nil {
			return fmt.Errorf("read progress: %w", err)
		}
		if status != baseline {
			changed = true
		}
		if status != lastStatus || progress != lastProgress {
			_, _ = fmt.Printf("status 0x%04X (%s), progress 0x%08X\n", status, statusName(status), progress)
			lastStatus, lastProgress = status, progress
		}
		if changed && finished(status) {
			if status != nfclock.StatusHarvestingDone {
				return fmt.Errorf("activation failed: %s", statusName(status))
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// parsePasscode rejects flag values that do not fit a mailbox word
func parsePasscode(v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: passcode 0x%X exceeds 32 bits", nfclock.ErrInvalidParameter, v)
	}
	return uint32(v), nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func main() {
	cfg := parseFlags()
	passcode, err := parsePasscode(*cfg.passcode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *cfg.timeout)
	defer cancel()

	name := *cfg.port
	if name == "" {
		_, _ = fmt.Println("Auto-detecting lock...")
		found, err := link.Discover(ctx, *cfg.baud, splitList(*cfg.blocklist))
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Auto-detection failed: %v\n", err)
			cancel()
			os.Exit(1)
		}
		name = found
	}
	_, _ = fmt.Printf("Opening lock on %s\n", name)

	port, err := link.OpenPort(name, *cfg.baud)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to open port: %v\n", err)
		cancel()
		os.Exit(1)
	}
	defer func() { _ = port.Close() }()

	client := link.NewClient(port)
	if passcode == 0 {
		err = printMailbox(ctx, client)
	} else {
		err = activate(ctx, client, passcode, *cfg.poll)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			_, _ = fmt.Printf("timeout: activation did not finish within %s\n", *cfg.timeout)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		cancel()
		os.Exit(1)
	}
}
