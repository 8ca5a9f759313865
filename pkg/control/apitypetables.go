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
	"net/http"

	"github.com/oqtaflux/trackengine/pkg/host"
	"github.com/oqtaflux/trackengine/pkg/typetable"
)

// typeTables reports the built-in geometry table for every host profile,
// so an operator can see what a bare .img will be matched against before
// mounting it.
func (a *api) typeTables(w http.ResponseWriter, req *http.Request) {
	out := map[string][]typetable.Entry{}
	for p := host.Default; p <= host.UKNC; p++ {
		table, _ := typetable.ForProfile(p)
		out[p.String()] = table
	}
	sendJSONReply(out, http.StatusOK, w)
}
