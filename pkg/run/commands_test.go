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

package run

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// Commands reach ParseSettings through their Run method, which always
// re-derives a setting's value from Viper -- so the port a test wants to
// hit has to be supplied the same way a real invocation would, as a parsed
// command line flag, rather than poked directly into the struct field.

func fakeAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"mounted":false}`)
	})
	mux.HandleFunc("/mount", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"mounted":true}`)
	})
	mux.HandleFunc("/unmount", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"mounted":false}`)
	})
	mux.HandleFunc("/dump", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cyl") == "" || r.URL.Query().Get("side") == "" {
			t.Fatal("expected cyl & side query params on /dump")
		}
		fmt.Fprint(w, "00 00 00 00\n")
	})
	mux.HandleFunc("/map", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cyl") == "" || r.URL.Query().Get("side") == "" {
			t.Fatal("expected cyl & side query params on /map")
		}
		fmt.Fprint(w, "[1,2,3]\n")
	})
	mux.HandleFunc("/typetables", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default":[]}`)
	})
	return httptest.NewServer(mux)
}

func TestStatusRun(t *testing.T) {
	srv := fakeAPIServer(t)
	defer srv.Close()

	s := NewStatus()
	port := strconv.Itoa(testServerPort(t, srv))
	if err := s.Execute([]string{"--port", port}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestMountRun(t *testing.T) {
	srv := fakeAPIServer(t)
	defer srv.Close()

	m := NewMount()
	port := strconv.Itoa(testServerPort(t, srv))
	if err := m.Execute([]string{"--port", port, "--file", "disk.img"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestUnmountRun(t *testing.T) {
	srv := fakeAPIServer(t)
	defer srv.Close()

	u := NewUnmount()
	port := strconv.Itoa(testServerPort(t, srv))
	if err := u.Execute([]string{"--port", port}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestDumpRun(t *testing.T) {
	srv := fakeAPIServer(t)
	defer srv.Close()

	d := NewDump()
	port := strconv.Itoa(testServerPort(t, srv))
	if err := d.Execute([]string{"--port", port, "--cyl", "3", "--side", "1"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestMapRun(t *testing.T) {
	srv := fakeAPIServer(t)
	defer srv.Close()

	m := NewMap()
	port := strconv.Itoa(testServerPort(t, srv))
	if err := m.Execute([]string{"--port", port, "--cyl", "2", "--side", "0"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestTypeTablesRun(t *testing.T) {
	srv := fakeAPIServer(t)
	defer srv.Close()

	tt := NewTypeTables()
	port := strconv.Itoa(testServerPort(t, srv))
	if err := tt.Execute([]string{"--port", port}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}
