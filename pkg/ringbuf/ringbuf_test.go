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

package ringbuf

import "testing"

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := New(100); err == nil {
		t.Fatal("expected error for a non-power-of-two capacity")
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	r, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := r.Push([]byte{1, 2, 3, 4})
	if n != 4 {
		t.Fatalf("Push returned %d, want 4", n)
	}
	if r.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", r.Len())
	}
	out := make([]byte, 4)
	if got := r.Pop(out); got != 4 {
		t.Fatalf("Pop returned %d, want 4", got)
	}
	if out[0] != 1 || out[3] != 4 {
		t.Fatalf("unexpected popped bytes: %v", out)
	}
}

func TestPushTruncatesWhenFull(t *testing.T) {
	r, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := r.Push([]byte{1, 2, 3, 4, 5, 6})
	if n != 4 {
		t.Fatalf("Push returned %d, want 4 (ring capacity)", n)
	}
	if r.Free() != 0 {
		t.Fatalf("Free() = %d, want 0", r.Free())
	}
}

func TestWraparound(t *testing.T) {
	r, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Push([]byte{1, 2, 3})
	out := make([]byte, 3)
	r.Pop(out)
	r.Push([]byte{4, 5, 6})
	out2 := make([]byte, 3)
	n := r.Pop(out2)
	if n != 3 || out2[0] != 4 || out2[2] != 6 {
		t.Fatalf("wraparound pop mismatch: n=%d out=%v", n, out2)
	}
}

func TestDiscard(t *testing.T) {
	r, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Push([]byte{1, 2, 3, 4})
	if got := r.Discard(2); got != 2 {
		t.Fatalf("Discard returned %d, want 2", got)
	}
	if r.Len() != 2 {
		t.Fatalf("Len() after Discard = %d, want 2", r.Len())
	}
}

func TestResetClearsState(t *testing.T) {
	r, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Push([]byte{1, 2, 3})
	r.Reset()
	if r.Len() != 0 || r.Free() != r.Cap() {
		t.Fatalf("Reset did not clear: Len=%d Free=%d Cap=%d", r.Len(), r.Free(), r.Cap())
	}
}

func TestWriteDescQueuePublishConsume(t *testing.T) {
	q, err := NewWriteDescQueue(4)
	if err != nil {
		t.Fatalf("NewWriteDescQueue: %v", err)
	}
	if q.Pending() {
		t.Fatal("expected empty queue to report no pending descriptor")
	}
	if !q.Publish(WriteDescriptor{StartTick: 10, BCEnd: 20}) {
		t.Fatal("expected Publish to succeed with room available")
	}
	if !q.Pending() {
		t.Fatal("expected Pending true after Publish")
	}
	d, ok := q.Consume()
	if !ok || d.StartTick != 10 || d.BCEnd != 20 {
		t.Fatalf("Consume returned d=%+v ok=%v", d, ok)
	}
	if q.Pending() {
		t.Fatal("expected queue empty after Consume")
	}
}

func TestWriteDescQueueFullRejectsPublish(t *testing.T) {
	q, err := NewWriteDescQueue(2)
	if err != nil {
		t.Fatalf("NewWriteDescQueue: %v", err)
	}
	if !q.Publish(WriteDescriptor{}) || !q.Publish(WriteDescriptor{}) {
		t.Fatal("expected first two Publish calls to succeed")
	}
	if q.Publish(WriteDescriptor{}) {
		t.Fatal("expected Publish to fail once queue is full")
	}
}

func TestWriteDescQueueResetDropsState(t *testing.T) {
	q, err := NewWriteDescQueue(4)
	if err != nil {
		t.Fatalf("NewWriteDescQueue: %v", err)
	}
	q.Publish(WriteDescriptor{StartTick: 1})
	q.Reset()
	if q.Pending() {
		t.Fatal("expected Reset to clear pending state")
	}
}
