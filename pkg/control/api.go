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

// Package control is the narrow HTTP operator surface for the track
// engine: mount/unmount an image, report status, and list the built-in
// type tables. It is deliberately not a CLI, just a small additive
// surface alongside the hardware conduit.
package control

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/oqtaflux/trackengine/pkg/engine"
	"github.com/oqtaflux/trackengine/pkg/host"
)

// APIServer is the lifecycle surface for the control API's HTTP server.
type APIServer interface {
	Serve() error
	Stop() error
}

// NewAPIServer creates an APIServer bound to addr, fronting eng. repo is
// the base directory for repo:// image references; empty disables it.
func NewAPIServer(addr string, eng *engine.Engine, repo string) APIServer {
	return &api{address: addr, engine: eng, repository: repo}
}

type api struct {
	address    string
	engine     *engine.Engine
	repository string
	server     *http.Server
}

func (a *api) Serve() error {
	router := mux.NewRouter().StrictSlash(true)

	addRoute(router, "status", "GET", "/status", a.status)
	addRoute(router, "mount", "POST", "/mount", a.mount)
	addRoute(router, "unmount", "POST", "/unmount", a.unmount)
	addRoute(router, "typetables", "GET", "/typetables", a.typeTables)
	addRoute(router, "dump", "GET", "/dump", a.dump)
	addRoute(router, "map", "GET", "/map", a.secmap)

	addr := a.address
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:8888", a.address)
	}

	log.Infof("track engine control API starts listening on %s", addr)
	a.server = &http.Server{Addr: addr, Handler: router}

	err := a.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *api) Stop() error {
	if a.server != nil {
		log.Info("control API stopping...")
		err := a.server.Shutdown(context.Background())
		a.server = nil
		return err
	}
	return nil
}

func addRoute(r *mux.Router, name, method, pattern string, handler http.HandlerFunc) {
	r.Methods(method).
		Path(pattern).
		Name(name).
		Handler(requestLogger(handler, name))
}

func requestLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
			"method": r.Method,
			"path":   r.RequestURI,
		}).Debugf("API BEGIN | %s", name)

		start := time.Now()
		inner.ServeHTTP(w, r)

		log.WithFields(log.Fields{
			"remote":   r.RemoteAddr,
			"method":   r.Method,
			"path":     r.RequestURI,
			"duration": time.Since(start),
		}).Debugf("API END   | %s", name)
	})
}

// profileFromQuery resolves the ?host= query parameter to a host.Profile,
// defaulting to host.Default when absent or unrecognized.
func profileFromQuery(req *http.Request) host.Profile {
	v := req.URL.Query().Get("host")
	for p := host.Default; p <= host.UKNC; p++ {
		if p.String() == v {
			return p
		}
	}
	return host.Default
}
