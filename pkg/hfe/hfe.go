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

// Package hfe reads and writes HFE v1/v3 images: pre-encoded flux
// bitstreams stored as a per-track lookup table pointing at 512-byte
// blocks that interleave both heads 256 bytes at a time, with v3 adding a
// small opcode stream for index marks, mid-track bitrate changes, bit
// skips, and randomized ("flaky") bytes.
package hfe

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	sigV1 = "HXCPICFE"
	sigV3 = "HXCHFEV3"

	blockSize = 512
)

// Encoding names an HFE track_encoding byte.
type Encoding uint8

const (
	EncISOIBMMFM Encoding = iota
	EncAmigaMFM
	EncISOIBMFM
	EncEmuFM
	EncUnknown Encoding = 0xff
)

// Header is the fixed-size HFE disk header.
type Header struct {
	IsV3            bool
	FormatRevision  uint8
	NrTracks        uint8
	NrSides         uint8
	TrackEncoding   Encoding
	BitrateKbps     uint16
	RPM             uint16
	InterfaceMode   uint8
	TrackListOffset uint16
	WriteAllowed    bool
	SingleStep      bool
}

// ParseHeader reads and validates the 32-byte HFE disk header.
func ParseHeader(r io.Reader) (Header, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, fmt.Errorf("hfe: read header: %v", err)
	}

	var h Header
	sig := string(buf[0:8])
	switch sig {
	case sigV3:
		if buf[8] > 0 {
			return Header{}, fmt.Errorf("hfe: unsupported v3 format revision %d", buf[8])
		}
		h.IsV3 = true
	case sigV1:
		if buf[8] > 1 {
			return Header{}, fmt.Errorf("hfe: unsupported v1 format revision %d", buf[8])
		}
	default:
		return Header{}, fmt.Errorf("hfe: unrecognized signature %q", sig)
	}

	h.FormatRevision = buf[8]
	h.NrTracks = buf[9]
	h.NrSides = buf[10]
	h.TrackEncoding = Encoding(buf[11])
	h.BitrateKbps = binary.LittleEndian.Uint16(buf[12:14])
	h.RPM = binary.LittleEndian.Uint16(buf[14:16])
	h.InterfaceMode = buf[16]
	h.TrackListOffset = binary.LittleEndian.Uint16(buf[18:20])
	h.WriteAllowed = buf[20] != 0
	h.SingleStep = buf[21] != 0

	if h.NrTracks == 0 || h.NrSides < 1 || h.NrSides > 2 || h.BitrateKbps == 0 {
		return Header{}, fmt.Errorf("hfe: invalid header fields")
	}
	return h, nil
}

// EffectiveCyls returns the logical cylinder count after double-stepping
// is accounted for, capped at 255 the way the original clamps it.
func (h Header) EffectiveCyls() int {
	n := int(h.NrTracks)
	if !h.SingleStep {
		n *= 2
		if n > 255 {
			n = 255
		}
	}
	return n
}

// TrackEntry is one row of the track lookup table: a block offset, kept
// as stored, and a byte length already halved from the on-disk value
// (which counts bytes across both interleaved heads).
type TrackEntry struct {
	Offset int // in 512-byte blocks
	Len    int // per-head byte length
}

// ReadTrackList reads one TrackEntry for the given logical track number
// out of the track lookup table.
func ReadTrackList(r io.ReaderAt, tlutBase int, track int) (TrackEntry, error) {
	off := int64(tlutBase)*blockSize + int64(track/2)*4
	var buf [4]byte
	if _, err := r.ReadAt(buf[:], off); err != nil {
		return TrackEntry{}, fmt.Errorf("hfe: read track list entry %d: %v", track, err)
	}
	return TrackEntry{
		Offset: int(binary.LittleEndian.Uint16(buf[0:2])),
		Len:    int(binary.LittleEndian.Uint16(buf[2:4])) / 2,
	}, nil
}

// Opcode is a v3 4-bit stream opcode, carried in the high nibble of its
// marker byte.
type Opcode uint8

const (
	OpNop     Opcode = 0
	OpIndex   Opcode = 8
	OpBitrate Opcode = 4
	OpSkip    Opcode = 12
	OpRand    Opcode = 2
)

// Event is one decoded v3 opcode with any operand byte it consumed.
type Event struct {
	Op      Opcode
	Operand byte
}

// Interp walks a v3 track's raw byte stream, splitting it into plain data
// bytes and Events wherever an opcode byte is found. A byte flags an
// opcode by having its low nibble set to 0xf; the opcode value itself is
// the byte's high nibble. Ordinary MFM/FM data bytes essentially never
// take that form, so the disambiguation is safe.
type Interp struct {
	data   []byte
	pos    int
	bitrate uint16
}

// NewInterp creates an opcode interpreter over one track's raw v3 bytes,
// with the track's nominal bitrate as the initial OpBitrate baseline.
func NewInterp(data []byte, bitrateKbps uint16) *Interp {
	return &Interp{data: data, bitrate: bitrateKbps}
}

// Next returns the next plain data byte, or an Event when the stream
// carries a v3 opcode at the current position. atEnd is true once the
// underlying byte stream is exhausted.
func (p *Interp) Next() (b byte, ev *Event, atEnd bool) {
	if p.pos >= len(p.data) {
		return 0, nil, true
	}
	raw := p.data[p.pos]
	p.pos++

	if raw&0x0f != 0x0f {
		return raw, nil, false
	}

	code := Opcode(raw >> 4)
	e := Event{Op: code}
	switch code {
	case OpBitrate, OpSkip:
		if p.pos < len(p.data) {
			e.Operand = p.data[p.pos]
			p.pos++
			if code == OpBitrate {
				p.bitrate = uint16(e.Operand) * 10
			}
		}
	}
	return 0, &e, false
}

// Bitrate returns the interpreter's current bitrate, updated by any
// OpBitrate events consumed so far.
func (p *Interp) Bitrate() uint16 {
	return p.bitrate
}

// HeadBlock extracts one head's 256-byte slice out of a 512-byte
// dual-head-interleaved block read from the image file.
func HeadBlock(block []byte, head int) []byte {
	if head == 0 {
		return block[0:256]
	}
	return block[256:512]
}

// BatchSectors chooses how many 512-byte blocks to read per I/O op from
// the bitcell time in nanoseconds: 2 blocks when cells are longer than
// 1500ns (DD or slower), 8 blocks for shorter cells (HD or faster), where
// the data passes under the head faster.
func BatchSectors(writeBCTicksNS int) int {
	if writeBCTicksNS > 1500 {
		return 2
	}
	return 8
}
