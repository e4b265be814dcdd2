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

// Package link exposes the lock mailbox to an NFC reader host over a serial
// line. Every request and reply is one checksummed frame from
// internal/frame.
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/ZaparooProject/go-nfclock/internal/frame"
	"go.bug.st/serial"
)

// DefaultBaudRate is the line rate used by Open
const DefaultBaudRate = 115200

// readTimeout bounds each serial read so Serve notices cancellation
const readTimeout = 100 * time.Millisecond

// Link errors
var (
	ErrRemote     = errors.New("remote rejected request")
	ErrUnexpected = errors.New("unexpected reply")
)

// RemoteError is a CmdError reply decoded on the client side
type RemoteError struct {
	Code byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote rejected request: code 0x%02X", e.Code)
}

func (*RemoteError) Unwrap() error { return ErrRemote }

// OpenPort opens name at baud 8N1 with a short read timeout
func OpenPort(name string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return port, nil
}

// Server answers mailbox requests on the lock side
type Server struct {
	rw       io.ReadWriter
	mailbox  *nfclock.Mailbox
	writable map[byte]bool
}

// NewServer serves mailbox over rw. The reader host may only write the
// passcode slot; every other slot belongs to the lock.
func NewServer(rw io.ReadWriter, mailbox *nfclock.Mailbox) *Server {
	return &Server{
		rw:       rw,
		mailbox:  mailbox,
		writable: map[byte]bool{nfclock.SlotPasscode: true},
	}
}

// Serve handles frames until ctx is done or the line is closed
func (s *Server) Serve(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		buf, err := readFrame(ctx, s.rw)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
		reply := s.handle(buf)
		if _, err := s.rw.Write(frame.Encode(reply)); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("write reply: %w", err)
		}
	}
}

func (s *Server) handle(buf []byte) frame.Frame {
	req, err := frame.Decode(buf)
	if err != nil {
		nfclock.Debugf("link: dropping frame % X: %v", buf, err)
		return frame.Frame{Cmd: frame.CmdError, Value: frame.ErrCodeChecksum}
	}
	if int(req.Index) >= nfclock.MailboxWords {
		return frame.Frame{Cmd: frame.CmdError, Index: req.Index, Value: frame.ErrCodeIndex}
	}

	switch req.Cmd {
	case frame.CmdRead:
		return frame.Frame{
			Cmd:   frame.CmdRead | frame.ResponseFlag,
			Index: req.Index,
			Value: s.mailbox.Load(int(req.Index)),
		}
	case frame.CmdWrite:
		if !s.writable[req.Index] {
			return frame.Frame{Cmd: frame.CmdError, Index: req.Index, Value: frame.ErrCodeReadOnly}
		}
		if err := s.mailbox.Store(int(req.Index), req.Value); err != nil {
			return frame.Frame{Cmd: frame.CmdError, Index: req.Index, Value: frame.ErrCodeIndex}
		}
		nfclock.Debugf("link: slot %d <- 0x%08X", req.Index, req.Value)
		return frame.Frame{Cmd: frame.CmdWrite | frame.ResponseFlag, Index: req.Index, Value: req.Value}
	default:
		return frame.Frame{Cmd: frame.CmdError, Index: req.Index, Value: frame.ErrCodeCommand}
	}
}

// Client issues mailbox requests from the reader host side
type Client struct {
	rw io.ReadWriter
	mu sync.Mutex
}

// NewClient wraps rw
func NewClient(rw io.ReadWriter) *Client {
	return &Client{rw: rw}
}

// ReadWord returns mailbox word index
func (c *Client) ReadWord(ctx context.Context, index int) (uint32, error) {
	if err := checkIndex(index); err != nil {
		return 0, err
	}
	reply, err := c.transact(ctx, frame.Frame{Cmd: frame.CmdRead, Index: byte(index)})
	if err != nil {
		return 0, err
	}
	return reply.Value, nil
}

// WriteWord stores v in mailbox word index
func (c *Client) WriteWord(ctx context.Context, index int, v uint32) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	_, err := c.transact(ctx, frame.Frame{Cmd: frame.CmdWrite, Index: byte(index), Value: v})
	return err
}

func checkIndex(index int) error {
	if index < 0 || index >= nfclock.MailboxWords {
		return fmt.Errorf("%w: mailbox index %d", nfclock.ErrInvalidParameter, index)
	}
	return nil
}

func (c *Client) transact(ctx context.Context, req frame.Frame) (frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.rw.Write(frame.Encode(req)); err != nil {
		return frame.Frame{}, fmt.Errorf("write request: %w", err)
	}
	buf, err := readFrame(ctx, c.rw)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("read reply: %w", err)
	}
	reply, err := frame.Decode(buf)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("decode reply: %w", err)
	}
	if reply.Cmd == frame.CmdError {
		return frame.Frame{}, &RemoteError{Code: byte(reply.Value)}
	}
	if reply.Cmd != req.Cmd|frame.ResponseFlag || reply.Index != req.Index {
		return frame.Frame{}, fmt.Errorf("%w: cmd 0x%02X index %d", ErrUnexpected, reply.Cmd, reply.Index)
	}
	return reply, nil
}

// readFrame skips to the next start byte and reads one full frame. A read
// returning no data, as a serial port does on timeout, is retried until ctx
// is done.
func readFrame(ctx context.Context, r io.Reader) ([]byte, error) {
	buf := make([]byte, frame.Length)
	n := 0
	for n < frame.Length {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := r.Read(buf[n:])
		if got > 0 {
			if n == 0 {
				// resync on the start byte
				start := 0
				for start < got && buf[start] != frame.StartOfFrame {
					start++
				}
				copy(buf, buf[start:got])
				got -= start
			}
			n += got
		}
		if err != nil {
			if n == frame.Length {
				break
			}
			return nil, err
		}
	}
	return buf, nil
}
