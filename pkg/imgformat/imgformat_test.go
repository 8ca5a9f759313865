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

package imgformat

import (
	"bytes"
	"testing"

	"github.com/oqtaflux/trackengine/pkg/host"
)

// memRW is an in-memory io.ReaderAt/io.WriterAt over a fixed-size buffer.
type memRW struct{ buf []byte }

func (m *memRW) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, bytes.ErrTooLarge
	}
	return n, nil
}

func (m *memRW) WriteAt(p []byte, off int64) (int, error) {
	n := copy(m.buf[off:], p)
	return n, nil
}

func TestOpenMatchesDefaultTypeTable(t *testing.T) {
	fileSize := 40 * 8 * 128 // 40 cyls, 1 side, 8 secs, 128B secs
	rw := &memRW{buf: make([]byte, fileSize)}
	img, ok, err := Handler{}.Open(rw, int64(fileSize), host.Default)
	if err != nil || !ok {
		t.Fatalf("Open: ok=%v err=%v", ok, err)
	}
	im := img.(*Image)
	if im.NrCyls() != 40 || im.NrSides() != 1 {
		t.Fatalf("unexpected geometry: cyls=%d sides=%d", im.NrCyls(), im.NrSides())
	}
}

func TestOpenRejectsUnmatchedSize(t *testing.T) {
	rw := &memRW{buf: make([]byte, 12345)}
	_, ok, err := Handler{}.Open(rw, 12345, host.Default)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ok {
		t.Fatal("expected no match for an arbitrary file size")
	}
}

func TestReadWriteSectorRoundTrip(t *testing.T) {
	fileSize := 40 * 8 * 128
	rw := &memRW{buf: make([]byte, fileSize)}
	img, ok, err := Handler{}.Open(rw, int64(fileSize), host.Default)
	if err != nil || !ok {
		t.Fatalf("Open: ok=%v err=%v", ok, err)
	}
	im := img.(*Image)

	data := bytes.Repeat([]byte{0x77}, 128)
	if err := im.WriteSector(rw, 0, 0, 3, data); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	got, err := im.ReadSector(0, 0, 3)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("ReadSector returned %x, want %x", got, data)
	}
}

func TestSectorMapAndDumpTrack(t *testing.T) {
	fileSize := 40 * 8 * 128
	rw := &memRW{buf: make([]byte, fileSize)}
	for i := range rw.buf {
		rw.buf[i] = byte(i)
	}
	img, ok, err := Handler{}.Open(rw, int64(fileSize), host.Default)
	if err != nil || !ok {
		t.Fatalf("Open: ok=%v err=%v", ok, err)
	}
	im := img.(*Image)

	m := im.SectorMap(0, 0)
	if len(m) != 8 {
		t.Fatalf("SectorMap len = %d, want 8", len(m))
	}

	raw, err := im.DumpTrack(0, 0)
	if err != nil {
		t.Fatalf("DumpTrack: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("DumpTrack returned no bytes")
	}
}
