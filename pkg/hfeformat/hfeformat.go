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

// Package hfeformat implements the dispatch.Handler for HFE v1/v3 images,
// wiring pkg/hfe's header/track-list/opcode primitives into the same
// dispatch surface the IMG-family handler uses.
package hfeformat

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/oqtaflux/trackengine/pkg/dispatch"
	"github.com/oqtaflux/trackengine/pkg/hfe"
	"github.com/oqtaflux/trackengine/pkg/host"
	"github.com/oqtaflux/trackengine/pkg/ringbuf"
)

// Image is one mounted HFE file: its parsed header and a per-track cache
// of the last TrackEntry looked up (matching hfe_seek_track's "only
// re-seek if the logical track changed" shortcut).
type Image struct {
	r      io.ReaderAt
	w      io.WriterAt // nil if the backing store was opened read-only
	hdr    hfe.Header
	curTrk int
	entry  hfe.TrackEntry

	rdCyl, rdSide int
	rdData        []byte
	rdPos         int
}

func (im *Image) NrCyls() int  { return im.hdr.EffectiveCyls() }
func (im *Image) NrSides() int { return int(im.hdr.NrSides) }

// SeekTrack loads the TrackEntry for a logical track (2*cyl+side, or
// double the cylinder step when double-stepping), caching it so repeated
// reads of the same track don't re-hit the lookup table.
func (im *Image) SeekTrack(cyl, side int) (hfe.TrackEntry, error) {
	if !im.hdr.SingleStep {
		cyl /= 2
	}
	track := cyl*2 + side
	if track == im.curTrk && im.entry.Len > 0 {
		return im.entry, nil
	}
	e, err := hfe.ReadTrackList(im.r, int(im.hdr.TrackListOffset), track)
	if err != nil {
		return hfe.TrackEntry{}, err
	}
	im.curTrk = track
	im.entry = e
	return e, nil
}

// ReadRaw reads one head's raw (still MFM/FM-encoded) byte stream for the
// track most recently sought, running it through the v3 opcode
// interpreter when the image is a v3 image.
func (im *Image) ReadRaw(side int) ([]byte, *hfe.Interp, error) {
	buf := make([]byte, im.entry.Len*2) // both heads interleaved, 512B per 256B/head
	if _, err := im.r.ReadAt(buf, int64(im.entry.Offset)*512); err != nil {
		return nil, nil, fmt.Errorf("hfeformat: read track data: %v", err)
	}

	out := make([]byte, 0, im.entry.Len)
	for off := 0; off+512 <= len(buf); off += 512 {
		out = append(out, hfe.HeadBlock(buf[off:off+512], side)...)
	}

	if !im.hdr.IsV3 {
		return out, nil, nil
	}
	return out, hfe.NewInterp(out, im.hdr.BitrateKbps), nil
}

// DumpTrack seeks to (cyl, side) and returns its plain encoded bytes,
// running the raw stream through the v3 opcode interpreter first when
// present so index/bitrate/skip/rand events don't show up as bogus data.
func (im *Image) DumpTrack(cyl, side int) ([]byte, error) {
	if _, err := im.SeekTrack(cyl, side); err != nil {
		return nil, err
	}
	raw, interp, err := im.ReadRaw(side)
	if err != nil {
		return nil, err
	}
	return stripOpcodes(raw, interp), nil
}

// stripOpcodes drains interp (nil for v1 images, which have no opcode
// stream to interpret) and returns just the plain data bytes it yields,
// discarding index/bitrate/skip/rand events.
func stripOpcodes(raw []byte, interp *hfe.Interp) []byte {
	if interp == nil {
		return raw
	}
	out := make([]byte, 0, len(raw))
	for {
		b, ev, atEnd := interp.Next()
		if atEnd {
			break
		}
		if ev == nil {
			out = append(out, b)
		}
	}
	return out
}

// ReadTrack implements dispatch.FluxReader: it keeps the current lap's
// plain data bytes buffered across calls, reseeking and re-reading only
// when (cyl, side) changes, and loops back to the start of the buffer
// once a full lap has been pushed into bc, mirroring a disk that keeps
// spinning under the read head.
func (im *Image) ReadTrack(bc *ringbuf.Ring, cyl, side int) error {
	if im.rdData == nil || im.rdCyl != cyl || im.rdSide != side {
		if _, err := im.SeekTrack(cyl, side); err != nil {
			return err
		}
		raw, interp, err := im.ReadRaw(side)
		if err != nil {
			return err
		}
		im.rdData = stripOpcodes(raw, interp)
		im.rdCyl, im.rdSide = cyl, side
		im.rdPos = 0
	}
	if len(im.rdData) == 0 {
		return nil
	}
	for bc.Free() > 0 {
		if im.rdPos >= len(im.rdData) {
			im.rdPos = 0
		}
		chunk := bc.Free()
		if remaining := len(im.rdData) - im.rdPos; chunk > remaining {
			chunk = remaining
		}
		bc.Push(im.rdData[im.rdPos : im.rdPos+chunk])
		im.rdPos += chunk
	}
	return nil
}

// dataByteOffsets returns, in stream order, the raw-buffer index of every
// plain data byte in a v3 track's byte stream, skipping opcode marker
// bytes and the operand byte an OpBitrate/OpSkip event consumes, the same
// walk hfe.Interp.Next performs. v1 images carry no opcode stream, so
// every offset is a data byte.
func dataByteOffsets(raw []byte, isV3 bool) []int {
	if !isV3 {
		offs := make([]int, len(raw))
		for i := range offs {
			offs[i] = i
		}
		return offs
	}
	var offs []int
	for i := 0; i < len(raw); i++ {
		if raw[i]&0x0f != 0x0f {
			offs = append(offs, i)
			continue
		}
		switch hfe.Opcode(raw[i] >> 4) {
		case hfe.OpBitrate, hfe.OpSkip:
			i++
		}
	}
	return offs
}

// writeSink is hfeformat's write-path FluxDecoder. HFE stores tracks as
// already MFM/FM-encoded bytes, so unlike the IMG-family decoder there is
// nothing to demodulate: every 8 incoming bitcells form one byte that
// drops straight into the next plain-data slot of the cached track
// buffer. Opcode/operand bytes from the original v3 stream are left
// untouched. Once a full lap has been captured the buffer is flushed back
// to the backing file in BatchSectors()-sized read-modify-write windows,
// preserving the other head's interleaved half of each block.
type writeSink struct {
	im        *Image
	head      int
	entry     hfe.TrackEntry
	raw       []byte
	positions []int
	next      int
	shift     uint16
	nbits     int
}

func (im *Image) newWriteSink(cyl, head int) (*writeSink, error) {
	entry, err := im.SeekTrack(cyl, head)
	if err != nil {
		return nil, err
	}
	raw, _, err := im.ReadRaw(head)
	if err != nil {
		return nil, err
	}
	return &writeSink{
		im:        im,
		head:      head,
		entry:     entry,
		raw:       append([]byte(nil), raw...),
		positions: dataByteOffsets(raw, im.hdr.IsV3),
	}, nil
}

// NewTrackDecoder implements dispatch.FluxWriter. ok is false when the
// image was opened read-only.
func (im *Image) NewTrackDecoder(cyl, head int) (dispatch.FluxDecoder, bool) {
	if im.w == nil {
		return nil, false
	}
	s, err := im.newWriteSink(cyl, head)
	if err != nil {
		log.WithFields(log.Fields{"cyl": cyl, "head": head}).Warnf("hfeformat: new write sink: %v", err)
		return nil, false
	}
	return s, true
}

func (s *writeSink) FeedBit(bit byte) {
	s.shift = (s.shift << 1) | uint16(bit&1)
	s.nbits++
	if s.nbits < 8 {
		return
	}
	b := byte(s.shift)
	s.nbits, s.shift = 0, 0

	if len(s.positions) == 0 {
		return
	}
	if s.next >= len(s.positions) {
		s.flush()
		s.next = 0
	}
	s.raw[s.positions[s.next]] = b
	s.next++
	if s.next == len(s.positions) {
		s.flush()
		s.next = 0
	}
}

// flush writes the whole cached track buffer back to the file, batched in
// BatchSectors()-sized windows of 512-byte dual-head blocks; each window
// is read back first so the other head's interleaved half survives.
func (s *writeSink) flush() {
	totalBlocks := s.entry.Len / 256
	writeBCTicksNS := 0
	if s.im.hdr.BitrateKbps > 0 {
		writeBCTicksNS = 500000 / int(s.im.hdr.BitrateKbps)
	}
	batch := hfe.BatchSectors(writeBCTicksNS)

	for b := 0; b < totalBlocks; b += batch {
		n := batch
		if b+n > totalBlocks {
			n = totalBlocks - b
		}
		blockOff := int64(s.entry.Offset+b) * 512
		buf := make([]byte, n*512)
		if _, err := s.im.r.ReadAt(buf, blockOff); err != nil {
			log.Warnf("hfeformat: read-modify-write read: %v", err)
			return
		}
		for i := 0; i < n; i++ {
			off := (b + i) * 256
			end := off + 256
			if end > len(s.raw) {
				end = len(s.raw)
			}
			copy(hfe.HeadBlock(buf[i*512:(i+1)*512], s.head), s.raw[off:end])
		}
		if _, err := s.im.w.WriteAt(buf, blockOff); err != nil {
			log.Warnf("hfeformat: read-modify-write write: %v", err)
			return
		}
	}
}

// Handler implements dispatch.Handler for HFE images.
type Handler struct{}

func (Handler) Name() string { return "hfe" }

func (Handler) Open(r io.ReaderAt, size int64, _ host.Profile) (dispatch.Image, bool, error) {
	sr := io.NewSectionReader(r, 0, size)
	hdr, err := hfe.ParseHeader(sr)
	if err != nil {
		return nil, false, nil // not our format, not fatal
	}
	w, _ := r.(io.WriterAt)
	im := &Image{r: r, w: w, hdr: hdr, curTrk: -1}
	if _, err := im.SeekTrack(0, 0); err != nil {
		return nil, false, err
	}
	return im, true, nil
}

func init() {
	dispatch.Register(Handler{}, "hfe")
}
