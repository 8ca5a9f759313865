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

package control

import (
	"encoding/hex"
	"net/http"
	"strconv"
)

func trackCoords(req *http.Request) (cyl, side int) {
	cyl, _ = strconv.Atoi(req.URL.Query().Get("cyl"))
	side, _ = strconv.Atoi(req.URL.Query().Get("side"))
	return
}

// dump reports a hex encoding of one track's raw encoded bytes, for
// operators diagnosing a mounted image track by track.
func (a *api) dump(w http.ResponseWriter, req *http.Request) {
	cyl, side := trackCoords(req)
	raw, err := a.engine.DumpTrack(cyl, side)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}
	sendJSONReply(map[string]string{"hex": hex.EncodeToString(raw)}, http.StatusOK, w)
}

// secmap reports the rotational sector placement for one track.
func (a *api) secmap(w http.ResponseWriter, req *http.Request) {
	cyl, side := trackCoords(req)
	m, err := a.engine.SectorMap(cyl, side)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}
	sendJSONReply(map[string][]int{"sectors": m}, http.StatusOK, w)
}
