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
	"os"

	"github.com/oqtaflux/trackengine/pkg/repo"
)

// mount resolves the ?ref= image reference (repo://, http(s)://, or a
// bare local path) and mounts it on the engine.
func (a *api) mount(w http.ResponseWriter, req *http.Request) {
	ref := req.URL.Query().Get("ref")
	if ref == "" {
		handleError(errBadRequest("missing ref parameter"), http.StatusUnprocessableEntity, w)
		return
	}

	profile := profileFromQuery(req)

	if repo.IsReference(ref) {
		rc, err := repo.Resolve(ref, a.repository)
		if handleError(err, http.StatusNotAcceptable, w) {
			return
		}
		rc.Close()
		handleError(errBadRequest("reference sources must resolve to a local file for mounting"), http.StatusNotImplemented, w)
		return
	}

	f, err := os.OpenFile(ref, os.O_RDWR, 0)
	if os.IsPermission(err) {
		f, err = os.Open(ref) // fall back to read-only; writes will be rejected
	}
	if handleError(err, http.StatusNotFound, w) {
		return
	}
	info, err := f.Stat()
	if handleError(err, http.StatusInternalServerError, w) {
		f.Close()
		return
	}

	if err := a.engine.Mount(ref, f, info.Size(), profile); handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	a.status(w, req)
}

func (a *api) unmount(w http.ResponseWriter, req *http.Request) {
	if err := a.engine.Unmount(); handleError(err, http.StatusInternalServerError, w) {
		return
	}
	a.status(w, req)
}
