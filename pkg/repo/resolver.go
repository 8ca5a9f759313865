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

// Package repo resolves image references, either against a configured
// local repository directory (repo://) or over HTTP(S), for the "load an
// image by name" operator surface.
package repo

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// PrefixRepoRef marks a reference resolved against the configured
// repository directory rather than treated as a bare filesystem path.
const PrefixRepoRef = "repo://"

func newFileSource(file string) (*fileSource, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	return &fileSource{file: f, reader: bufio.NewReader(f)}, nil
}

type fileSource struct {
	file   *os.File
	reader io.Reader
}

func (fs *fileSource) Read(p []byte) (n int, err error) {
	return fs.reader.Read(p)
}

func (fs *fileSource) Close() error {
	return fs.file.Close()
}

// httpClient is shared across HTTP resolutions so repeated loads reuse
// connections.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// Resolve opens a repo://, http://, https://, or bare filesystem
// reference. repo is the configured local repository base directory,
// used only for repo:// references.
func Resolve(ref, repo string) (io.ReadCloser, error) {

	log.WithFields(log.Fields{
		"reference":  ref,
		"repository": repo,
	}).Debug("resolving ref")

	switch {
	case strings.HasPrefix(ref, PrefixRepoRef):
		if repo == "" {
			return nil, fmt.Errorf("image repository is not enabled")
		}
		return newFileSource(filepath.Join(repo, ref[len(PrefixRepoRef):]))

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		resp, err := httpClient.Get(ref)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %v", ref, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching %s: status %s", ref, resp.Status)
		}
		return resp.Body, nil

	default:
		return newFileSource(ref)
	}
}

// IsReference reports whether r uses one of the recognized reference
// schemes rather than being a bare filesystem path.
func IsReference(r string) bool {
	return strings.HasPrefix(r, PrefixRepoRef) ||
		strings.HasPrefix(r, "http://") ||
		strings.HasPrefix(r, "https://")
}
