/*
   OqtaDrive - Sinclair Microdrive emulator
   Copyright (c) 2021, Alexander Vollschwitz

   This file is part of OqtaDrive.

   OqtaDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   OqtaDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with OqtaDrive. If not, see <http://www.gnu.org/licenses/>.
*/

// Package conduit is the narrow hardware boundary between the track
// engine's ring buffers and a flux pump: either a real serial-attached
// board (opened via jacobsa/go-serial) or, for development and test, an
// in-process loopback. It runs a protocol-agnostic byte-stream handshake
// suited to streaming raw bitcells rather than structured request/reply
// framing.
package conduit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"

	"github.com/oqtaflux/trackengine/pkg/engine"
	"github.com/oqtaflux/trackengine/pkg/ringbuf"
)

const (
	helloLength  = 4
	pollInterval = 10 * time.Millisecond
	pumpChunk    = 512
)

// ErrConduitStopped is returned by Serve once Close has been called.
var ErrConduitStopped = errors.New("conduit: stopped")

// helloPump and helloEngine are the fixed four-byte handshake tokens
// exchanged before either side starts streaming ring-buffer contents.
var (
	helloPump   = []byte("flxp")
	helloEngine = []byte("flxd")
)

// defaultBaud is used when OpenSerial's caller has no specific rate in
// mind; it comfortably outpaces the engine's ring buffer drain rate.
const defaultBaud = 2000000

// Conduit streams ring buffer contents across port, a serial-equivalent
// full-duplex byte stream, on behalf of eng.
type Conduit struct {
	port    io.ReadWriteCloser
	eng     *engine.Engine
	stopped int32
}

// OpenSerial opens a real serial-attached flux pump at the given OS
// device path and binds it to eng.
func OpenSerial(path string, eng *engine.Engine) (*Conduit, error) {
	port, err := serial.Open(serial.OpenOptions{
		PortName:        path,
		BaudRate:        defaultBaud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("conduit: open %s: %v", path, err)
	}
	return &Conduit{port: port, eng: eng}, nil
}

// NewLoopback wraps a no-hardware stand-in port around eng, for tests
// and for running the engine without physical flux hardware attached:
// writes are discarded and reads block until Close.
func NewLoopback(eng *engine.Engine) *Conduit {
	return &Conduit{port: newLoopPort(), eng: eng}
}

// loopPort is a minimal io.ReadWriteCloser that answers the hello
// handshake itself, discards everything else written to it, and blocks
// reads until closed.
type loopPort struct {
	in     chan byte
	closed chan struct{}
}

func newLoopPort() *loopPort {
	p := &loopPort{in: make(chan byte, helloLength), closed: make(chan struct{})}
	for _, b := range helloPump {
		p.in <- b
	}
	return p
}

func (p *loopPort) Read(b []byte) (int, error) {
	select {
	case c := <-p.in:
		b[0] = c
		return 1, nil
	case <-p.closed:
		return 0, io.EOF
	}
}

func (p *loopPort) Write(b []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	default:
		return len(b), nil
	}
}

func (p *loopPort) Close() error {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	return nil
}

// Close releases the underlying byte stream and signals Serve to return.
func (c *Conduit) Close() error {
	atomic.StoreInt32(&c.stopped, 1)
	return c.port.Close()
}

// Serve runs the handshake, then cooperatively pumps ring buffer
// contents across the conduit and ticks eng until Close is called.
func (c *Conduit) Serve() error {
	if err := c.Handshake(); err != nil {
		if atomic.LoadInt32(&c.stopped) == 1 {
			return ErrConduitStopped
		}
		return err
	}

	for atomic.LoadInt32(&c.stopped) == 0 {
		if _, err := c.PumpOut(c.eng.ReadRing(), pumpChunk); err != nil {
			if atomic.LoadInt32(&c.stopped) == 1 {
				return ErrConduitStopped
			}
			return err
		}
		if _, err := c.PumpIn(c.eng.WriteRing(), pumpChunk); err != nil {
			if atomic.LoadInt32(&c.stopped) == 1 {
				return ErrConduitStopped
			}
			return err
		}
		c.eng.Tick()
		time.Sleep(pollInterval)
	}
	return ErrConduitStopped
}

// Handshake exchanges the hello tokens, discarding any stale bytes in
// flight first via a one-byte-at-a-time shifting window scan.
func (c *Conduit) Handshake() error {
	log.Info("conduit: syncing with flux pump")

	window := make([]byte, helloLength)
	for !bytes.Equal(window, helloPump) {
		copy(window, window[1:])
		if _, err := io.ReadFull(c.port, window[len(window)-1:]); err != nil {
			return fmt.Errorf("conduit: handshake read: %v", err)
		}
	}
	if _, err := c.port.Write(helloEngine); err != nil {
		return fmt.Errorf("conduit: handshake write: %v", err)
	}
	log.Info("conduit: synced with flux pump")
	return nil
}

// PumpOut drains ring into the conduit in fixed-size chunks, writing
// chunk after chunk until the ring is empty; call it from the engine's
// cooperative loop. It returns the number of
// bytes written.
func (c *Conduit) PumpOut(ring *ringbuf.Ring, chunk int) (int, error) {
	buf := make([]byte, chunk)
	total := 0
	for {
		n := ring.Pop(buf)
		if n == 0 {
			return total, nil
		}
		if _, err := c.port.Write(buf[:n]); err != nil {
			return total, fmt.Errorf("conduit: write: %v", err)
		}
		total += n
	}
}

// PumpIn reads up to chunk bytes from the conduit (if any are
// immediately available — callers on a non-blocking port should set a
// short read deadline) and pushes them into ring, returning the number
// of bytes moved.
func (c *Conduit) PumpIn(ring *ringbuf.Ring, chunk int) (int, error) {
	buf := make([]byte, chunk)
	n, err := c.port.Read(buf)
	if err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("conduit: read: %v", err)
	}
	return ring.Push(buf[:n]), nil
}
