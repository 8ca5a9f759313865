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

// Package dispatch selects the image-format handler (IMG-family sector
// image, or HFE pre-encoded bitstream) that opens a given file.
package dispatch

import (
	"fmt"
	"io"
	"strings"

	"github.com/oqtaflux/trackengine/pkg/host"
	"github.com/oqtaflux/trackengine/pkg/ringbuf"
)

// Handler opens an image file, given its declared size and a probe hint
// (host profile and file extension), returning something that can seek
// tracks and read/write sectors. The concrete type varies per format;
// callers type-assert to the interface they need (SectorSource,
// SectorSink) once opened.
type Handler interface {
	// Name identifies the format for logging and the control API.
	Name() string
	// Open validates that r/size actually is this handler's format,
	// returning ok=false (not an error) when it plainly isn't.
	Open(r io.ReaderAt, size int64, profile host.Profile) (Image, bool, error)
}

// Image is the opened, geometry-resolved handle a mounted format exposes
// to the engine.
type Image interface {
	NrCyls() int
	NrSides() int
}

// TrackDumper is an optional capability a format can implement to expose
// one track's raw encoded bytes for diagnostics, independent of whatever
// the format's live read/write path looks like internally. Both
// imgformat and hfeformat implement it.
type TrackDumper interface {
	DumpTrack(cyl, side int) ([]byte, error)
}

// SectorMapper is an optional capability exposing the rotational
// placement of sectors on a track, implemented by IMG-family images;
// pre-encoded HFE images carry no separate sector map to report.
type SectorMapper interface {
	SectorMap(cyl, side int) []int
}

// FluxReader is an optional capability for formats that can stream one
// track's flux bytes into bc a chunk at a time, continuing the
// rotational cursor across calls and only reseeking when (cyl, side)
// changes, rather than producing a whole track in one shot. The engine's
// Tick drives this on every pass while an image is mounted.
type FluxReader interface {
	ReadTrack(bc *ringbuf.Ring, cyl, side int) error
}

// FluxDecoder accepts one raw bitcell (0 or 1 in the low bit) at a time,
// reconstructing sector writes from the live write-side stream.
// track.Decoder implements it.
type FluxDecoder interface {
	FeedBit(bit byte)
}

// FluxWriter is an optional capability for formats that can build a
// FluxDecoder for (cyl, head) wired to their own backing store. ok is
// false when the image was opened read-only.
type FluxWriter interface {
	NewTrackDecoder(cyl, head int) (FluxDecoder, bool)
}

// registry maps a lower-cased file extension (without the leading dot) to
// the handler that owns it, mirroring format.NewFormat's switch-by-type
// dispatch but keyed by extension rather than an explicit type string,
// since track-engine images are always identified by how they arrived
// (a file with an extension), not chosen by the caller.
var registry = map[string]Handler{}

// Register adds a handler under one or more file extensions. Called from
// each format package's init().
func Register(h Handler, extensions ...string) {
	for _, ext := range extensions {
		registry[strings.ToLower(ext)] = h
	}
}

// ForExtension returns the handler registered for a file extension
// (without the leading dot; case-insensitive).
func ForExtension(ext string) (Handler, error) {
	h, ok := registry[strings.ToLower(strings.TrimPrefix(ext, "."))]
	if !ok {
		return nil, fmt.Errorf("dispatch: no handler registered for extension %q", ext)
	}
	return h, nil
}

// Open resolves the handler for path's extension and calls its Open.
func Open(path string, r io.ReaderAt, size int64, profile host.Profile) (Image, error) {
	ext := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		ext = path[i+1:]
	}
	h, err := ForExtension(ext)
	if err != nil {
		return nil, err
	}
	img, ok, err := h.Open(r, size, profile)
	if err != nil {
		return nil, fmt.Errorf("dispatch: opening %s as %s: %v", path, h.Name(), err)
	}
	if !ok {
		return nil, fmt.Errorf("dispatch: %s did not recognize %s", h.Name(), path)
	}
	return img, nil
}
