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

// Package track implements the per-track state machine: enumerating a
// track's IDAM/DAM/data/gap regions in rotational order to synthesize the
// read-side flux stream, and re-locking onto that same structure via sync
// scanning to decode a write-side flux stream back into sector bytes.
package track

import (
	log "github.com/sirupsen/logrus"

	"github.com/oqtaflux/trackengine/pkg/codec"
	"github.com/oqtaflux/trackengine/pkg/geometry"
	"github.com/oqtaflux/trackengine/pkg/ringbuf"
	"github.com/oqtaflux/trackengine/pkg/secmap"
)

// SectorSource supplies the sector bytes a read pass encodes onto the
// wire. cyl/head/sec are the on-disk address-mark values, not the
// rotational-order index.
type SectorSource interface {
	ReadSector(cyl, head, sec int) ([]byte, error)
}

// SectorSink accepts the sector bytes a write pass decoded off the wire,
// keyed the same way as SectorSource.
type SectorSink interface {
	WriteSector(cyl, head, sec int, data []byte) error
}

// region names the phase of the rotational cycle the decode position is
// currently in, mirroring decode_pos's (idx*4+phase) encoding but spelled
// out for readability.
type region int

const (
	regionPostIndex region = iota
	regionIDAM
	regionDAMPre
	regionData
	regionPostData
	regionPreIndex
)

// State is one mounted track's decode/encode cursor plus the geometry and
// sector map it was seeked onto. It is not safe for concurrent read and
// write passes; the engine serializes access to it.
type State struct {
	Geo     geometry.Track
	SecMap  []int // rotational slot -> on-disk sector number
	Cyl     int
	Head    int
	NrCyls  int
	NrSides int

	region  region
	secIdx  int // rotational slot currently being processed
	dataOff int // byte offset within the current 1024-byte data chunk pass
	crc     *codec.CRC16
	enc     *codec.Encoder
}

// Seek re-derives the sector map for (cyl, head) and resets the decode
// cursor to the start of the post-index gap, mirroring img_seek_track
// followed by calc_start_pos with cur_bc == 0.
func (s *State) Seek(cyl, head, absTrack int, interleave, skew, base int, skewCylsOnly bool) {
	s.Cyl, s.Head = cyl, head
	s.SecMap = secmap.Build(s.Geo.NrSectors, interleave, skew, skewCylsOnly, cyl, absTrack, base)
	s.region = regionPostIndex
	s.secIdx = 0
	s.dataOff = 0
	s.crc = codec.NewCRC16()
	s.enc = codec.NewEncoder(s.Geo.Sync)
}

// ReadTrack emits MFM/FM bytes into bc for as long as there is room and
// there is more track left to encode, pulling sector payloads from src.
// It mirrors mfm_read_track/fm_read_track's cooperative "return false
// when the ring can't take the next chunk" contract: call it again once
// the consumer has drained more space.
func (s *State) ReadTrack(bc *ringbuf.Ring, src SectorSource) error {
	for {
		switch s.region {
		case regionPostIndex:
			if !s.emitPostIndex(bc) {
				return nil
			}
		case regionIDAM:
			if !s.emitIDAM(bc) {
				return nil
			}
		case regionDAMPre:
			if !s.emitDAMPre(bc) {
				return nil
			}
		case regionData:
			ok, err := s.emitData(bc, src)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		case regionPostData:
			if !s.emitPostData(bc) {
				return nil
			}
		case regionPreIndex:
			if !s.emitPreIndex(bc) {
				return nil
			}
			// one full revolution enumerated; start the next lap on the
			// following call rather than re-emitting the trailing gap
			// forever, matching a disk that keeps spinning.
			s.region = regionPostIndex
			s.secIdx = 0
			s.dataOff = 0
			return nil
		}
	}
}

func wordBytes(w uint16) [2]byte {
	return [2]byte{byte(w >> 8), byte(w)}
}

func (s *State) pushWord(bc *ringbuf.Ring, w uint16) bool {
	b := wordBytes(w)
	if bc.Free() < 2 {
		return false
	}
	bc.Push(b[:])
	return true
}

func (s *State) emitPostIndex(bc *ringbuf.Ring) bool {
	if bc.Free() < s.Geo.IdxSz*2 {
		return false
	}
	for i := 0; i < s.Geo.Gap4a; i++ {
		s.pushWord(bc, s.enc.EncodeByte(0x4e))
	}
	if s.Geo.HasIAM {
		syncCount := geometry.GapSync
		if s.Geo.FM {
			syncCount = geometry.FMGapSync
		}
		for i := 0; i < syncCount; i++ {
			s.pushWord(bc, s.enc.EncodeByte(0x00))
		}
		if s.Geo.FM {
			s.pushWord(bc, s.enc.EncodeSyncWord(codec.FMSync(0xfc)))
		} else {
			for i := 0; i < 3; i++ {
				s.pushWord(bc, s.enc.EncodeSyncWord(codec.SyncC2))
			}
			s.pushWord(bc, s.enc.EncodeByte(0xfc))
		}
		for i := 0; i < geometry.Gap1; i++ {
			s.pushWord(bc, s.enc.EncodeByte(0x4e))
		}
	}
	s.region = regionIDAM
	return true
}

func (s *State) currentSector() int {
	return s.SecMap[s.secIdx]
}

func (s *State) emitIDAM(bc *ringbuf.Ring) bool {
	if bc.Free() < s.Geo.IdamSz*2 {
		return false
	}
	sec := s.currentSector()
	idam := []byte{0xa1, 0xa1, 0xa1, 0xfe, byte(s.Cyl), byte(s.Head), byte(sec), byte(s.Geo.SecNo)}

	idamGapSync := s.Geo.Gap3
	if idamGapSync > geometry.GapSync {
		idamGapSync = geometry.GapSync
	}
	if s.Geo.FM {
		idamGapSync = geometry.FMGapSync
	}
	for i := 0; i < idamGapSync; i++ {
		s.pushWord(bc, s.enc.EncodeByte(0x00))
	}
	if s.Geo.FM {
		s.pushWord(bc, s.enc.EncodeSyncWord(codec.FMSync(idam[3])))
	} else {
		for i := 0; i < 3; i++ {
			s.pushWord(bc, s.enc.EncodeSyncWord(codec.SyncA1))
		}
		s.pushWord(bc, s.enc.EncodeByte(idam[3]))
	}
	for _, b := range idam[4:] {
		s.pushWord(bc, s.enc.EncodeByte(b))
	}
	crc := codec.Checksum(idam)
	s.pushWord(bc, s.enc.EncodeByte(byte(crc>>8)))
	s.pushWord(bc, s.enc.EncodeByte(byte(crc)))
	for i := 0; i < s.Geo.PostCRCSyncs; i++ {
		if s.Geo.FM {
			s.pushWord(bc, s.enc.EncodeSyncWord(codec.FMSync(idam[3])))
		} else {
			s.pushWord(bc, s.enc.EncodeSyncWord(codec.SyncA1))
		}
	}
	for i := 0; i < s.Geo.Gap2; i++ {
		s.pushWord(bc, s.enc.EncodeByte(0x4e))
	}
	s.region = regionDAMPre
	return true
}

func (s *State) emitDAMPre(bc *ringbuf.Ring) bool {
	if bc.Free() < s.Geo.DamSzPre*2 {
		return false
	}
	syncCount := geometry.GapSync
	if s.Geo.FM {
		syncCount = geometry.FMGapSync
	}
	for i := 0; i < syncCount; i++ {
		s.pushWord(bc, s.enc.EncodeByte(0x00))
	}
	dam := []byte{0xa1, 0xa1, 0xa1, 0xfb}
	if s.Geo.FM {
		s.pushWord(bc, s.enc.EncodeSyncWord(codec.FMSync(dam[3])))
	} else {
		for i := 0; i < 3; i++ {
			s.pushWord(bc, s.enc.EncodeSyncWord(codec.SyncA1))
		}
		s.pushWord(bc, s.enc.EncodeByte(dam[3]))
	}
	s.crc = codec.NewCRC16()
	s.crc.UpdateBytes(dam)
	s.region = regionData
	s.dataOff = 0
	return true
}

func (s *State) emitData(bc *ringbuf.Ring, src SectorSource) (bool, error) {
	sec := s.currentSector()
	data, err := src.ReadSector(s.Cyl, s.Head, sec)
	if err != nil {
		log.WithFields(log.Fields{"cyl": s.Cyl, "head": s.Head, "sec": sec}).Warnf("read sector: %v", err)
		return false, err
	}

	remaining := len(data) - s.dataOff
	chunk := remaining
	if chunk > 1024 {
		chunk = 1024
	}
	if bc.Free() < chunk*2 {
		return false, nil
	}
	for _, b := range data[s.dataOff : s.dataOff+chunk] {
		s.pushWord(bc, s.enc.EncodeByte(b))
	}
	s.crc.UpdateBytes(data[s.dataOff : s.dataOff+chunk])
	s.dataOff += chunk
	if s.dataOff >= len(data) {
		s.dataOff = 0
		s.region = regionPostData
	}
	return true, nil
}

func (s *State) emitPostData(bc *ringbuf.Ring) bool {
	if bc.Free() < s.Geo.DamSzPost*2 {
		return false
	}
	crc := s.crc.Value()
	s.pushWord(bc, s.enc.EncodeByte(byte(crc>>8)))
	s.pushWord(bc, s.enc.EncodeByte(byte(crc)))
	for i := 0; i < s.Geo.PostCRCSyncs; i++ {
		if s.Geo.FM {
			s.pushWord(bc, s.enc.EncodeSyncWord(codec.FMSync(0xfb)))
		} else {
			s.pushWord(bc, s.enc.EncodeSyncWord(codec.SyncA1))
		}
	}
	for i := 0; i < s.Geo.Gap3; i++ {
		s.pushWord(bc, s.enc.EncodeByte(0x4e))
	}
	s.secIdx++
	if s.secIdx >= len(s.SecMap) {
		s.region = regionPreIndex
	} else {
		s.region = regionIDAM
	}
	return true
}

func (s *State) emitPreIndex(bc *ringbuf.Ring) bool {
	if bc.Free() < s.Geo.Gap4*2 {
		return false
	}
	for i := 0; i < s.Geo.Gap4; i++ {
		s.pushWord(bc, s.enc.EncodeByte(0x4e))
	}
	return true
}

// Decoder re-locks onto a write-side flux stream by scanning for address
// marks, then captures the following bytes: IDAM (to learn which sector
// is about to be written), a DAM search, then exactly sector-size bytes
// of data, checked against the trailing CRC before being handed to sink.
// It mirrors the write path's re-synchronization: real drives don't tell
// the controller where on the track a write begins, so the decoder must
// find its own bearings from the bitstream alone.
type Decoder struct {
	geo    geometry.Track
	scan   codec.Scanner
	sink   SectorSink
	cyl    int
	head   int
	state  writeState
	idam   []byte
	data   []byte
	crc    *codec.CRC16
	nbits  int
	shift  uint16
}

type writeState int

const (
	wsSeekIDAM writeState = iota
	wsIDAM
	wsSeekDAM
	wsData
)

// NewDecoder creates a write-path decoder for the given geometry and
// current (cyl, head), delivering completed sectors to sink.
func NewDecoder(geo geometry.Track, cyl, head int, sink SectorSink) *Decoder {
	return &Decoder{geo: geo, cyl: cyl, head: head, sink: sink, state: wsSeekIDAM}
}

// FeedBit pushes one raw bitcell (0 or 1 in the low bit) from the write
// head into the decoder. Address marks are recognized as raw sync words
// so ordinary MFM/FM decoding resumes automatically once three marks (or
// one, for FM) have been matched.
func (d *Decoder) FeedBit(bit byte) {
	want := codec.SyncA1
	if d.geo.FM {
		want = codec.FMSync(0xfe)
	}

	switch d.state {
	case wsSeekIDAM:
		if d.scan.Feed(bit, want) {
			// for MFM the scanner already matched the first of the three
			// A1 sync words; what's left to capture is the other two, the
			// 0xFE mark, and the six address-mark fields.
			d.idam = d.idam[:0]
			d.nbits = 0
			d.shift = 0
			d.state = wsIDAM
			if d.geo.FM {
				// FM's single sync word is the 0xFE mark itself, so only
				// the six address-mark fields are left to capture.
				d.idam = append(d.idam, 0xa1, 0xa1, 0xfe)
			}
		}
	case wsIDAM:
		d.shiftIn(bit)
		if d.nbits != 16 {
			return
		}
		b := codec.DecodeWord(d.shift)
		d.nbits, d.shift = 0, 0
		d.idam = append(d.idam, b)
		switch {
		case len(d.idam) <= 2: // 2nd and 3rd A1 sync words
			if b != 0xa1 {
				d.state = wsSeekIDAM
				d.scan.Reset()
			}
		case len(d.idam) == 3: // address mark
			if b != 0xfe {
				d.state = wsSeekIDAM
				d.scan.Reset()
			}
		case len(d.idam) == 9: // cyl,head,sec,size,crcHi,crcLo captured
			if d.idamCRCValid() {
				d.state = wsSeekDAM
			} else {
				log.WithFields(log.Fields{
					"cyl": d.idam[3], "head": d.idam[4], "sec": d.idam[5],
				}).Warn("IDAM CRC mismatch")
				d.state = wsSeekIDAM
			}
			d.scan.Reset()
		}
	case wsSeekDAM:
		damWant := codec.SyncA1
		if d.geo.FM {
			damWant = codec.FMSync(0xfb)
		}
		if d.scan.Feed(bit, damWant) {
			secLen := 128 << uint(d.idam[6])
			d.data = make([]byte, 0, secLen)
			d.crc = codec.NewCRC16()
			d.crc.UpdateBytes([]byte{0xa1, 0xa1, 0xa1, 0xfb})
			d.nbits, d.shift = 0, 0
			d.state = wsData
			if !d.geo.FM {
				// the other two A1 sync words and the 0xFB mark follow
				// the matched one; let their 48 bits pass before data.
				d.nbits = -48
			}
		}
	case wsData:
		d.shiftIn(bit)
		if d.nbits == 16 {
			b := codec.DecodeWord(d.shift)
			d.nbits, d.shift = 0, 0
			secLen := 128 << uint(d.idam[6])
			if len(d.data) < secLen {
				d.data = append(d.data, b)
				d.crc.Update(b)
			} else if len(d.data) == secLen {
				d.data = append(d.data, b) // crc hi
			} else {
				d.data = append(d.data, b) // crc lo
				d.finishSector()
			}
		}
	}
}

// idamCRCValid checks the captured IDAM (cyl, head, sec, size, crcHi,
// crcLo at d.idam[3:9]) against the CRC16 computed over the address-mark
// sequence that precedes it, the same A1 A1 A1 FE cyl hd sec sz bytes
// emitIDAM feeds to the CRC on the read side.
func (d *Decoder) idamCRCValid() bool {
	crc := codec.Checksum([]byte{
		0xa1, 0xa1, 0xa1, 0xfe, d.idam[3], d.idam[4], d.idam[5], d.idam[6],
	})
	trailer := uint16(d.idam[7])<<8 | uint16(d.idam[8])
	return crc == trailer
}

func (d *Decoder) shiftIn(bit byte) {
	d.shift = (d.shift << 1) | uint16(bit&1)
	d.nbits++
}

func (d *Decoder) finishSector() {
	secLen := 128 << uint(d.idam[6])
	trailerCRC := uint16(d.data[secLen])<<8 | uint16(d.data[secLen+1])
	computed := d.crc.Value()
	cyl, head, sec := int(d.idam[3]), int(d.idam[4]), int(d.idam[5])
	if computed != trailerCRC {
		log.WithFields(log.Fields{
			"cyl": cyl, "head": head, "sec": sec,
		}).Warnf("data CRC mismatch: got %04x want %04x", computed, trailerCRC)
	} else if err := d.sink.WriteSector(cyl, head, sec, d.data[:secLen]); err != nil {
		log.WithFields(log.Fields{"cyl": cyl, "head": head, "sec": sec}).Warnf("write sector: %v", err)
	}
	d.state = wsSeekIDAM
	d.scan.Reset()
}
