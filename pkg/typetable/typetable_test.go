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

package typetable

import (
	"testing"

	"github.com/oqtaflux/trackengine/pkg/host"
)

func TestSecSize(t *testing.T) {
	cases := map[int]int{0: 128, 1: 256, 2: 512, 3: 1024}
	for no, want := range cases {
		if got := SecSize(no); got != want {
			t.Fatalf("SecSize(%d) = %d, want %d", no, got, want)
		}
	}
}

func TestLookupMatchesKnown80TrackDSDD(t *testing.T) {
	// 9 secs/track, 512B secs, 2 sides, 80 cyls -> 9*512*2*80 bytes
	fileSize := int64(9 * 512 * 2 * 80)
	m, ok := Lookup(Default, 2, fileSize)
	if !ok {
		t.Fatal("expected a match for a standard 720K DSDD image")
	}
	if m.NrCyls != 80 || m.NrSecs != 9 || m.Sides != 2 {
		t.Fatalf("unexpected match: %+v", m)
	}
}

func TestLookupNoMatch(t *testing.T) {
	if _, ok := Lookup(Default, 2, 12345); ok {
		t.Fatal("expected no match for an arbitrary file size")
	}
}

func TestLookupAnySizeFindsSectorSize(t *testing.T) {
	fileSize := int64(9 * 256 * 2 * 80)
	m, no, ok := LookupAnySize(Default, fileSize)
	if !ok {
		t.Fatal("expected LookupAnySize to find a match")
	}
	if no != 0 {
		t.Fatalf("sector-size code = %d, want 0 (18x128-byte rows match before 256-byte sectors are tried)", no)
	}
	if m.NrCyls != 80 {
		t.Fatalf("NrCyls = %d, want 80", m.NrCyls)
	}
}

func TestForProfileKnownHosts(t *testing.T) {
	cases := []struct {
		p     host.Profile
		table *[]Entry
	}{
		{host.Akai, &Akai},
		{host.Casio, &Casio},
		{host.Dec, &Dec},
		{host.Ensoniq, &Ensoniq},
		{host.Fluke, &Fluke},
		{host.Kaypro, &Kaypro},
		{host.Memotech, &Memotech},
		{host.Msx, &Msx},
		{host.Nascom, &Nascom},
		{host.PC98, &PC98},
		{host.UKNC, &UKNC},
	}
	for _, c := range cases {
		table, layout := ForProfile(c.p)
		if &table[0] != &(*c.table)[0] {
			t.Fatalf("ForProfile(%v) did not return the expected table", c.p)
		}
		if layout != LayoutInterleaved {
			t.Fatalf("ForProfile(%v) layout = %v, want LayoutInterleaved", c.p, layout)
		}
	}
}

func TestForProfileDefaultFallback(t *testing.T) {
	table, _ := ForProfile(host.Default)
	if &table[0] != &Default[0] {
		t.Fatal("ForProfile(Default) did not fall back to Default table")
	}
}
