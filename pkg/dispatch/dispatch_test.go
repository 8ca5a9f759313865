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

package dispatch

import (
	"io"
	"testing"

	"github.com/oqtaflux/trackengine/pkg/host"
)

type fakeImage struct{ cyls, sides int }

func (f fakeImage) NrCyls() int  { return f.cyls }
func (f fakeImage) NrSides() int { return f.sides }

type fakeHandler struct {
	name    string
	matches bool
}

func (h fakeHandler) Name() string { return h.name }

func (h fakeHandler) Open(r io.ReaderAt, size int64, profile host.Profile) (Image, bool, error) {
	if !h.matches {
		return nil, false, nil
	}
	return fakeImage{cyls: 80, sides: 2}, true, nil
}

func TestRegisterAndForExtension(t *testing.T) {
	Register(fakeHandler{name: "fake", matches: true}, "fk1")
	h, err := ForExtension("fk1")
	if err != nil {
		t.Fatalf("ForExtension: %v", err)
	}
	if h.Name() != "fake" {
		t.Fatalf("Name() = %q, want fake", h.Name())
	}
}

func TestForExtensionCaseInsensitiveAndDotStrip(t *testing.T) {
	Register(fakeHandler{name: "fake2", matches: true}, "fk2")
	if _, err := ForExtension(".FK2"); err != nil {
		t.Fatalf("ForExtension(.FK2): %v", err)
	}
}

func TestForExtensionUnregistered(t *testing.T) {
	if _, err := ForExtension("nosuchext"); err == nil {
		t.Fatal("expected error for an unregistered extension")
	}
}

func TestOpenDispatchesByExtension(t *testing.T) {
	Register(fakeHandler{name: "fake3", matches: true}, "fk3")
	img, err := Open("disk.fk3", nil, 0, host.Default)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if img.NrCyls() != 80 || img.NrSides() != 2 {
		t.Fatalf("unexpected image: %+v", img)
	}
}

func TestOpenPropagatesHandlerRejection(t *testing.T) {
	Register(fakeHandler{name: "fake4", matches: false}, "fk4")
	if _, err := Open("disk.fk4", nil, 0, host.Default); err == nil {
		t.Fatal("expected error when handler does not recognize the file")
	}
}
