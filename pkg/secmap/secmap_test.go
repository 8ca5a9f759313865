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

package secmap

import (
	"sort"
	"testing"

	"github.com/oqtaflux/trackengine/pkg/typetable"
)

func TestBuildNoSkewNoInterleave(t *testing.T) {
	m := Build(9, 1, 0, false, 0, 0, 1)
	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9}
	for i, v := range m {
		if v != want[i] {
			t.Fatalf("m[%d] = %d, want %d (full map %v)", i, v, want[i], m)
		}
	}
}

func TestBuildIsPermutationOfSectorIDs(t *testing.T) {
	m := Build(9, 2, 3, false, 5, 11, 1)
	seen := map[int]bool{}
	for _, v := range m {
		if seen[v] {
			t.Fatalf("duplicate sector id %d in map %v", v, m)
		}
		seen[v] = true
	}
	ids := make([]int, 0, len(m))
	for v := range seen {
		ids = append(ids, v)
	}
	sort.Ints(ids)
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("map %v is not a permutation of 1..9: got ids %v", m, ids)
		}
	}
}

func TestBuildEmptyOnZeroSectors(t *testing.T) {
	if m := Build(0, 1, 0, false, 0, 0, 1); m != nil {
		t.Fatalf("expected nil for zero sectors, got %v", m)
	}
}

func TestInterTrackBase(t *testing.T) {
	if got := InterTrackBase(1, 9, true); got != 10 {
		t.Fatalf("InterTrackBase with numbering = %d, want 10", got)
	}
	if got := InterTrackBase(1, 9, false); got != 1 {
		t.Fatalf("InterTrackBase without numbering = %d, want 1", got)
	}
}

func TestTrackOffsetInterleaved(t *testing.T) {
	off := TrackOffset(typetable.LayoutInterleaved, 3, 1, 80, 2, 512*9)
	want := int64((3*2+1)*512*9)
	if off != want {
		t.Fatalf("TrackOffset = %d, want %d", off, want)
	}
}

func TestTrackOffsetSwapSides(t *testing.T) {
	off0 := TrackOffset(typetable.LayoutInterleavedSwapSides, 2, 0, 80, 2, 100)
	off1 := TrackOffset(typetable.LayoutInterleavedSwapSides, 2, 1, 80, 2, 100)
	// side 0 and side 1 offsets should swap to adjacent slots relative to plain interleaved
	plain0 := TrackOffset(typetable.LayoutInterleaved, 2, 0, 80, 2, 100)
	plain1 := TrackOffset(typetable.LayoutInterleaved, 2, 1, 80, 2, 100)
	if off0 != plain1 || off1 != plain0 {
		t.Fatalf("swap-sides offsets not swapped: off0=%d off1=%d plain0=%d plain1=%d", off0, off1, plain0, plain1)
	}
}

func TestTrackOffsetSequentialReverseSide1(t *testing.T) {
	nrCyls := 40
	off := TrackOffset(typetable.LayoutSequentialReverseSide1, 0, 1, nrCyls, 2, 100)
	want := int64(2*nrCyls-0-1) * 100
	if off != want {
		t.Fatalf("TrackOffset side1 reversed = %d, want %d", off, want)
	}
	off0 := TrackOffset(typetable.LayoutSequentialReverseSide1, 0, 0, nrCyls, 2, 100)
	if off0 != 0 {
		t.Fatalf("TrackOffset side0 cyl0 = %d, want 0", off0)
	}
}
