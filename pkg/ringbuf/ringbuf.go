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

// Package ringbuf implements the single-producer/single-consumer byte
// rings that sit between the track engine and the hardware flux pump.
// Capacity is always a power of two; prod/cons are monotonically
// increasing counters indexed modulo capacity, with atomic store/load
// standing in for the release/acquire barrier pair a lock-free SPSC ring
// requires.
package ringbuf

import (
	"fmt"
	"sync/atomic"
)

// Ring is a byte ring buffer of power-of-two capacity.
type Ring struct {
	buf  []byte
	mask uint32
	prod uint32
	cons uint32
}

// New creates a ring of the given capacity, which must be a power of two.
func New(capacity int) (*Ring, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring capacity must be a power of two, got %d", capacity)
	}
	return &Ring{buf: make([]byte, capacity), mask: uint32(capacity - 1)}, nil
}

// Reset abandons any in-flight state, setting prod = cons = 0. Called on
// every track change.
func (r *Ring) Reset() {
	atomic.StoreUint32(&r.cons, 0)
	atomic.StoreUint32(&r.prod, 0)
}

// Len returns the number of bytes currently queued.
func (r *Ring) Len() int {
	prod := atomic.LoadUint32(&r.prod)
	cons := atomic.LoadUint32(&r.cons)
	return int(prod - cons)
}

// Free returns the number of bytes that can still be produced before the
// ring is full.
func (r *Ring) Free() int {
	return len(r.buf) - r.Len()
}

// Cap returns the ring's capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Push appends data to the ring. It is the producer's responsibility to
// have checked Free() first; Push returns the number of bytes actually
// written, which is short only if the caller over-committed.
func (r *Ring) Push(data []byte) int {

	n := len(data)
	if free := r.Free(); n > free {
		n = free
	}

	prod := atomic.LoadUint32(&r.prod)
	for i := 0; i < n; i++ {
		r.buf[(prod+uint32(i))&r.mask] = data[i]
	}
	// release: publish prod only after the buffer writes above are visible
	atomic.StoreUint32(&r.prod, prod+uint32(n))
	return n
}

// Pop reads up to len(dest) queued bytes into dest, returning how many
// were copied.
func (r *Ring) Pop(dest []byte) int {

	// acquire: read prod before consuming, so we never read past what the
	// producer has published
	prod := atomic.LoadUint32(&r.prod)
	cons := atomic.LoadUint32(&r.cons)

	n := int(prod - cons)
	if n > len(dest) {
		n = len(dest)
	}

	for i := 0; i < n; i++ {
		dest[i] = r.buf[(cons+uint32(i))&r.mask]
	}
	atomic.StoreUint32(&r.cons, cons+uint32(n))
	return n
}

// Discard drops up to n queued bytes without copying them out.
func (r *Ring) Discard(n int) int {
	if avail := r.Len(); n > avail {
		n = avail
	}
	cons := atomic.LoadUint32(&r.cons)
	atomic.StoreUint32(&r.cons, cons+uint32(n))
	return n
}

// WriteDescriptor marks the boundaries of one write window observed by the
// flux pump: the tick at which the host controller started writing, and
// the bitcell position at which the write ended.
type WriteDescriptor struct {
	StartTick uint64
	BCEnd     int
}

// WriteDescQueue is the small SPSC array of WriteDescriptor used to hand
// write-window boundaries from the pump (producer, advances wrBC) to the
// engine (consumer, advances wrCons).
type WriteDescQueue struct {
	entries []WriteDescriptor
	mask    uint32
	wrBC    uint32
	wrCons  uint32
}

// NewWriteDescQueue creates a queue with the given power-of-two capacity.
func NewWriteDescQueue(capacity int) (*WriteDescQueue, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("write descriptor queue capacity must be a power of two, got %d", capacity)
	}
	return &WriteDescQueue{
		entries: make([]WriteDescriptor, capacity),
		mask:    uint32(capacity - 1),
	}, nil
}

// Reset clears the queue, abandoning any in-flight descriptors.
func (q *WriteDescQueue) Reset() {
	atomic.StoreUint32(&q.wrCons, 0)
	atomic.StoreUint32(&q.wrBC, 0)
}

// Publish is called by the pump side when a write window closes.
func (q *WriteDescQueue) Publish(d WriteDescriptor) bool {
	wrBC := atomic.LoadUint32(&q.wrBC)
	wrCons := atomic.LoadUint32(&q.wrCons)
	if wrBC-wrCons >= uint32(len(q.entries)) {
		return false // queue full, pump must retry
	}
	q.entries[wrBC&q.mask] = d
	atomic.StoreUint32(&q.wrBC, wrBC+1)
	return true
}

// Pending reports whether the engine has an unconsumed write descriptor to
// act on; the engine must consult wrBC through this acquire-barrier-backed
// read before deciding whether the current call is a flushing call.
func (q *WriteDescQueue) Pending() bool {
	return atomic.LoadUint32(&q.wrBC) != atomic.LoadUint32(&q.wrCons)
}

// Consume hands the engine the oldest unconsumed descriptor and advances
// wrCons. ok is false if the queue was empty.
func (q *WriteDescQueue) Consume() (d WriteDescriptor, ok bool) {
	wrBC := atomic.LoadUint32(&q.wrBC)
	wrCons := atomic.LoadUint32(&q.wrCons)
	if wrCons == wrBC {
		return WriteDescriptor{}, false
	}
	d = q.entries[wrCons&q.mask]
	atomic.StoreUint32(&q.wrCons, wrCons+1)
	return d, true
}
