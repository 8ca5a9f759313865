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

import "net/http"

// Status reports whether an image is mounted and, if so, its path and
// geometry.
type Status struct {
	Mounted bool   `json:"mounted"`
	Path    string `json:"path,omitempty"`
	NrCyls  int    `json:"nrCyls,omitempty"`
	NrSides int    `json:"nrSides,omitempty"`
}

func (a *api) status(w http.ResponseWriter, req *http.Request) {
	st := Status{Mounted: a.engine.Mounted()}
	if st.Mounted {
		st.Path = a.engine.Path()
		st.NrCyls, st.NrSides, _ = a.engine.Geometry()
	}
	sendJSONReply(st, http.StatusOK, w)
}
