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

// Package engine ties the dispatcher, ring buffers, and track state
// machine together into the cooperatively-scheduled handle the serve
// loop drives one Tick at a time.
package engine

import (
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/oqtaflux/trackengine/pkg/dispatch"
	"github.com/oqtaflux/trackengine/pkg/host"
	"github.com/oqtaflux/trackengine/pkg/ringbuf"
)

// bcRingCapacity is the raw-bitcell ring buffer size in bytes; must be a
// power of two and large enough to hold several sectors' worth of
// encoded bytes so the producer rarely stalls waiting on the consumer.
const bcRingCapacity = 16 * 1024

// Engine is one mounted image's live state: the opened format handle,
// the current (cyl, side) the drive head is positioned over, the
// read-side raw-bitcell ring the flux conduit drains, the write-side ring
// it fills, and the write-path decoder currently locked onto that ring.
type Engine struct {
	mu      sync.Mutex
	path    string
	closer  io.Closer
	img     dispatch.Image
	bc      *ringbuf.Ring // read side: engine -> conduit
	wrBC    *ringbuf.Ring // write side: conduit -> engine
	wrq     *ringbuf.WriteDescQueue
	dec     dispatch.FluxDecoder
	decCyl  int
	decSide int
	cyl     int
	side    int
	mounted bool
}

// New creates an idle, unmounted engine.
func New() (*Engine, error) {
	bc, err := ringbuf.New(bcRingCapacity)
	if err != nil {
		return nil, err
	}
	wrBC, err := ringbuf.New(bcRingCapacity)
	if err != nil {
		return nil, err
	}
	wrq, err := ringbuf.NewWriteDescQueue(64)
	if err != nil {
		return nil, err
	}
	return &Engine{bc: bc, wrBC: wrBC, wrq: wrq}, nil
}

// Mount opens path, resolves its geometry via the dispatcher for the
// given host profile, and positions the head at track (0,0). If the
// engine already holds a mounted image, it is unmounted first.
func (e *Engine) Mount(path string, r interface {
	io.ReaderAt
	io.Closer
}, size int64, profile host.Profile) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mounted {
		e.unmountLocked()
	}

	img, err := dispatch.Open(path, r, size, profile)
	if err != nil {
		r.Close()
		return fmt.Errorf("engine: mount %s: %v", path, err)
	}

	e.path = path
	e.closer = r
	e.img = img
	e.cyl, e.side = 0, 0
	e.bc.Reset()
	e.wrBC.Reset()
	e.wrq.Reset()
	e.dec = nil
	e.mounted = true

	log.WithFields(log.Fields{
		"path": path, "cyls": img.NrCyls(), "sides": img.NrSides(),
	}).Info("mounted image")
	return nil
}

// Unmount closes the backing file and drops all per-image state.
func (e *Engine) Unmount() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unmountLocked()
}

func (e *Engine) unmountLocked() error {
	if !e.mounted {
		return nil
	}
	var err error
	if e.closer != nil {
		err = e.closer.Close()
	}
	e.img = nil
	e.closer = nil
	e.mounted = false
	log.WithField("path", e.path).Info("unmounted image")
	return err
}

// Mounted reports whether an image is currently mounted.
func (e *Engine) Mounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted
}

// Path returns the currently mounted image's path, or "" if none.
func (e *Engine) Path() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

// Seek moves the head to (cyl, side), clamped to the image's geometry.
func (e *Engine) Seek(cyl, side int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return fmt.Errorf("engine: no image mounted")
	}
	if cyl < 0 {
		cyl = 0
	}
	if cyl >= e.img.NrCyls() {
		cyl = e.img.NrCyls() - 1
	}
	if side < 0 || side >= e.img.NrSides() {
		side = 0
	}
	if cyl != e.cyl || side != e.side {
		e.cyl, e.side = cyl, side
		e.bc.Reset()
		e.wrBC.Reset()
		e.dec = nil
	}
	return nil
}

// Tick is the cooperative step function the server loop calls repeatedly:
// it never blocks, and does at most one bounded unit of work per call
// rather than spawning a goroutine per unit of work. Each call refills
// the read-side ring from the mounted image's flux source, feeds any
// queued write-side bitcells through the write-path decoder, and drains
// write-window descriptors so the write path never stalls behind a full
// queue.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return
	}

	if fr, ok := e.img.(dispatch.FluxReader); ok {
		if err := fr.ReadTrack(e.bc, e.cyl, e.side); err != nil {
			log.WithFields(log.Fields{"cyl": e.cyl, "side": e.side}).Warnf("read track: %v", err)
		}
	}

	if e.dec == nil || e.decCyl != e.cyl || e.decSide != e.side {
		e.dec = nil
		if fw, ok := e.img.(dispatch.FluxWriter); ok {
			if dec, ok := fw.NewTrackDecoder(e.cyl, e.side); ok {
				e.dec = dec
			}
		}
		e.decCyl, e.decSide = e.cyl, e.side
	}
	if e.dec != nil {
		buf := make([]byte, 256)
		for {
			n := e.wrBC.Pop(buf)
			if n == 0 {
				break
			}
			for _, b := range buf[:n] {
				for i := 7; i >= 0; i-- {
					e.dec.FeedBit((b >> uint(i)) & 1)
				}
			}
			if n < len(buf) {
				break
			}
		}
	}

	for e.wrq.Pending() {
		if _, ok := e.wrq.Consume(); !ok {
			break
		}
	}
}

// ReadRing exposes the read-side raw-bitcell ring for the flux conduit
// boundary to drain.
func (e *Engine) ReadRing() *ringbuf.Ring {
	return e.bc
}

// WriteRing exposes the write-side raw-bitcell ring for the flux conduit
// boundary to fill.
func (e *Engine) WriteRing() *ringbuf.Ring {
	return e.wrBC
}

// WriteDescriptors exposes the write-window descriptor queue for the
// flux-pump boundary to publish into.
func (e *Engine) WriteDescriptors() *ringbuf.WriteDescQueue {
	return e.wrq
}

// Geometry returns the mounted image's cylinder/side counts, or (0,0,
// false) if nothing is mounted.
func (e *Engine) Geometry() (cyls, sides int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return 0, 0, false
	}
	return e.img.NrCyls(), e.img.NrSides(), true
}

// DumpTrack returns the raw encoded bytes of (cyl, side) on the mounted
// image, for the dump diagnostic command. It fails if no image is
// mounted or the mounted format doesn't support dumping.
func (e *Engine) DumpTrack(cyl, side int) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return nil, fmt.Errorf("engine: no image mounted")
	}
	d, ok := e.img.(dispatch.TrackDumper)
	if !ok {
		return nil, fmt.Errorf("engine: mounted format does not support track dump")
	}
	return d.DumpTrack(cyl, side)
}

// SectorMap returns the rotational sector placement for (cyl, side) on
// the mounted image, for the map diagnostic command.
func (e *Engine) SectorMap(cyl, side int) ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return nil, fmt.Errorf("engine: no image mounted")
	}
	m, ok := e.img.(dispatch.SectorMapper)
	if !ok {
		return nil, fmt.Errorf("engine: mounted format does not expose a sector map")
	}
	return m.SectorMap(cyl, side), nil
}
