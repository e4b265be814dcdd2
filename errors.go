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
	"time"
)

// Controller errors
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrShootThrough     = errors.New("bridge configuration shorts a leg")
	ErrWaitTimeout      = errors.New("wait timed out")
	ErrBridgeWrite      = errors.New("bridge driver write failed")
)

// Flash errors
var (
	ErrFlashOpen     = errors.New("flash assembly buffer open failed")
	ErrFlashCopy     = errors.New("flash assembly buffer copy failed")
	ErrFlashErase    = errors.New("flash page erase failed")
	ErrFlashProgram  = errors.New("flash page program failed")
	ErrFlashVerify   = errors.New("flash program verify failed")
	ErrFlashRead     = errors.New("flash read failed")
	ErrLayoutOverlap = errors.New("lock state page overlaps reserved flash")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away on their own
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed when retried
	ErrorTypeTransient
	// ErrorTypeTimeout errors come from a bounded wait running out
	ErrorTypeTimeout
)

// FlashError describes a failed flash operation on a page address
type FlashError struct {
	Err  error
	Op   string
	Addr uint32
	Type ErrorType
}

// NewFlashError wraps err for the flash operation op at addr
func NewFlashError(op string, addr uint32, err error, errType ErrorType) *FlashError {
	return &FlashError{
		Err:  err,
		Op:   op,
		Addr: addr,
		Type: errType,
	}
}

func (e *FlashError) Error() string {
	return fmt.Sprintf("flash %s at 0x%08X: %v", e.Op, e.Addr, e.Err)
}

func (e *FlashError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when a bounded wait gives up
type TimeoutError struct {
	Op     string
	Waited time.Duration
}

// NewTimeoutError creates a timeout error for op after waited
func NewTimeoutError(op string, waited time.Duration) *TimeoutError {
	return &TimeoutError{Op: op, Waited: waited}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %v after %v", e.Op, ErrWaitTimeout, e.Waited)
}

func (*TimeoutError) Unwrap() error {
	return ErrWaitTimeout
}

// IsRetryable reports whether err is worth retrying
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var flashErr *FlashError
	if errors.As(err, &flashErr) {
		return flashErr.Type == ErrorTypeTransient
	}

	switch {
	case errors.Is(err, ErrFlashErase),
		errors.Is(err, ErrFlashProgram),
		errors.Is(err, ErrFlashVerify):
		return true
	default:
		return false
	}
}

// IsTimeout reports whether err came from a bounded wait running out
func IsTimeout(err error) bool {
	return errors.Is(err, ErrWaitTimeout)
}
