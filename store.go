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
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-nfclock/internal/retry"
)

// StoreConfig configures lock state persistence
type StoreConfig struct {
	Layout     Layout
	MaxRetries int
	RetryDelay time.Duration
	// Verify compares the programmed page against the assembly buffer
	Verify bool
}

// DefaultStoreConfig returns the default persistence configuration
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Layout:     DefaultLayout(),
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		Verify:     true,
	}
}

// Store keeps the lock state record in its reserved flash page.
//
// Erase and program are separate steps, so a power cut between them leaves
// the page erased. Read reports that as RecordErased and the record decodes
// as unregistered and locked; the previous intent is lost.
type Store struct {
	driver   FlashPageDriver
	clock    Clock
	config   *StoreConfig
	lastGood LockStateRecord
	mu       sync.Mutex
	haveGood bool
}

// NewStore creates a store on driver. A nil config selects DefaultStoreConfig.
func NewStore(driver FlashPageDriver, clock Clock, config *StoreConfig) (*Store, error) {
	if driver == nil {
		return nil, fmt.Errorf("%w: nil flash driver", ErrInvalidParameter)
	}
	if config == nil {
		config = DefaultStoreConfig()
	}
	if config.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: negative retry count", ErrInvalidParameter)
	}
	if err := config.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flash layout: %w", err)
	}
	if int(config.Layout.PageSize) != driver.PageSize() {
		return nil, fmt.Errorf("%w: layout page size %d, driver page size %d",
			ErrInvalidParameter, config.Layout.PageSize, driver.PageSize())
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Store{driver: driver, clock: clock, config: config}, nil
}

// Read returns the stored record and what the page contained. Erased and
// corrupt pages decode to UnregisteredRecord.
func (s *Store) Read() (LockStateRecord, RecordStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (LockStateRecord, RecordStatus, error) {
	addr := s.config.Layout.LockStateAddr
	buf := make([]byte, RecordSize)
	if err := s.driver.Read(addr, buf); err != nil {
		return UnregisteredRecord(), RecordCorrupt,
			NewFlashError("read", addr, fmt.Errorf("%w: %w", ErrFlashRead, err), ErrorTypeTransient)
	}

	rec, status := decodeRecord(buf)
	switch status {
	case RecordValid:
		s.lastGood = rec
		s.haveGood = true
	case RecordErased:
		debugln("lock state page erased, treating as unregistered")
	case RecordCorrupt:
		debugf("lock state page at 0x%08X is corrupt, treating as unregistered", addr)
	}
	return rec, status, nil
}

// Write programs rec into the lock state page. Flash failures are retried.
// When retries run out after the page was erased, the last known good record
// is programmed back so the page is not left erased; a page that was never
// erased is left alone. The write error is returned either way.
func (s *Store) Write(rec LockStateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(rec)
}

func (s *Store) write(rec LockStateRecord) error {
	buf, err := rec.MarshalBinary()
	if err != nil {
		return err
	}

	// touched is set once any attempt has erased the page
	var touched bool
	_, err = retry.Do(retry.Config{
		Description: "lock state write",
		MaxRetries:  s.config.MaxRetries,
		RetryDelay:  s.config.RetryDelay,
		Sleep:       s.clock.Sleep,
		OnRetry: func(attempt int, cause error) error {
			debugf("lock state write retry %d: %v", attempt, cause)
			return nil
		},
	}, func(int) (struct{}, bool, error) {
		erased, err := s.program(buf)
		touched = touched || erased
		if err == nil {
			return struct{}{}, false, nil
		}
		return struct{}{}, IsRetryable(err), err
	})
	if err == nil {
		s.lastGood = rec
		s.haveGood = true
		return nil
	}

	if touched {
		s.restoreLastGood(rec)
	}
	return err
}

// Toggle flips the stored lock state, registering passcode with it, and
// returns the record that was written.
func (s *Store) Toggle(passcode uint32) (LockStateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, status, err := s.read()
	if err != nil {
		return cur, err
	}
	if status != RecordValid && s.haveGood {
		debugf("lock state page %s, toggling from last known good %s", status, s.lastGood.State)
		cur = s.lastGood
	}

	next := LockStateRecord{
		Registered: true,
		Passcode:   passcode,
		State:      cur.State.Toggle(),
		Reserved:   cur.Reserved,
	}
	if err := s.write(next); err != nil {
		return cur, err
	}
	return next, nil
}

// LastKnownGood returns the most recent record read or written successfully
func (s *Store) LastKnownGood() (LockStateRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastGood, s.haveGood
}

func (s *Store) restoreLastGood(failed LockStateRecord) {
	if !s.haveGood || s.lastGood == failed {
		return
	}
	buf, err := s.lastGood.MarshalBinary()
	if err != nil {
		return
	}
	if _, err := s.program(buf); err != nil {
		debugf("restoring last known good record failed: %v", err)
		return
	}
	debugf("restored last known good record (%s)", s.lastGood.State)
}

// program runs one open/copy/erase/program/verify cycle, aborting the
// assembly buffer on any failure. erased reports whether the page was
// erased, after which its previous contents are gone.
func (s *Store) program(buf []byte) (erased bool, err error) {
	addr := s.config.Layout.LockStateAddr
	d := s.driver

	fail := func(op string, sentinel, err error) error {
		d.AbortProgram()
		errType := ErrorTypeTransient
		if errors.Is(err, ErrInvalidParameter) {
			errType = ErrorTypePermanent
		}
		return NewFlashError(op, addr, fmt.Errorf("%w: %w", sentinel, err), errType)
	}

	if err := d.OpenBuffer(addr); err != nil {
		return false, fail("open", ErrFlashOpen, err)
	}
	if err := d.CopyToBuffer(addr, buf); err != nil {
		return false, fail("copy", ErrFlashCopy, err)
	}
	// a failed erase may have cleared part of the page
	if err := d.ErasePage(); err != nil {
		return true, fail("erase", ErrFlashErase, err)
	}
	if err := d.ProgramPage(); err != nil {
		return true, fail("program", ErrFlashProgram, err)
	}
	if s.config.Verify {
		if err := d.VerifyProgram(); err != nil {
			return true, fail("verify", ErrFlashVerify, err)
		}
	}
	return true, nil
}
