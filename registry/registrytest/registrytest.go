// Package registrytest provides an in-memory HTTP server that speaks the
// Artifactory-style wire contract registry/artifactory's client expects
// (§4.4, §6), for use in end-to-end tests of install/publish without a
// real registry. The spec's own source carries vestigial local- and
// in-memory-registry test types for the same purpose; this is this
// repo's equivalent (§9 Open Question 3).
package registrytest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// Server is an in-memory registry backing store plus the HTTP router
// that serves it.
type Server struct {
	mu       sync.Mutex
	artifact map[string][]byte // "{repository}/{name}/{name}-{version}.tgz" -> tarball
	token    string            // required bearer token, empty disables auth
	puts     map[string]int    // per-key upload count, for diamond-publish assertions

	router *mux.Router
}

// NewServer constructs a Server with no required authentication.
func NewServer() *Server {
	s := &Server{artifact: make(map[string][]byte), puts: make(map[string]int)}
	s.router = s.buildRouter()
	return s
}

// PutCount reports how many times repository/name@ver was uploaded,
// for asserting a package was published exactly once despite multiple
// local-dependency references to it (spec.md §4.10 step 4).
func (s *Server) PutCount(repository, pkgName, ver string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[artifactKey(repository, pkgName, ver)]
}

// RequireToken configures the server to reject requests whose bearer
// token does not match token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Handler returns the server's http.Handler, suitable for wrapping in
// an httptest.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Seed preloads repository/name/name-version.tgz with tarball, as if it
// had already been published.
func (s *Server) Seed(repository, pkgName, ver string, tarball []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact[artifactKey(repository, pkgName, ver)] = tarball
}

func artifactKey(repository, pkgName, ver string) string {
	return fmt.Sprintf("%s/%s/%s-%s.tgz", repository, pkgName, pkgName, ver)
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handlePing).Methods(http.MethodGet)
	r.HandleFunc("/api/storage/{repository}/{name}", s.handleFolderInfo).Methods(http.MethodGet)
	r.HandleFunc("/{repository}/{name}/{file}", s.handleArtifact).Methods(http.MethodGet, http.MethodPut)
	return r
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.token
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	repository, pkgName, file := vars["repository"], vars["name"], vars["file"]

	prefix := pkgName + "-"
	if !strings.HasPrefix(file, prefix) || !strings.HasSuffix(file, ".tgz") {
		http.NotFound(w, r)
		return
	}
	ver := strings.TrimSuffix(strings.TrimPrefix(file, prefix), ".tgz")
	key := artifactKey(repository, pkgName, ver)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		data, ok := s.artifact[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-gzip")
		_, _ = w.Write(data)
	case http.MethodPut:
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.artifact[key] = buf
		s.puts[key]++
		w.WriteHeader(http.StatusCreated)
	}
}

type folderChild struct {
	URI    string `json:"uri"`
	Folder bool   `json:"folder"`
}

type folderInfo struct {
	Children []folderChild `json:"children"`
}

func (s *Server) handleFolderInfo(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	repository, pkgName := vars["repository"], vars["name"]
	prefix := repository + "/" + pkgName + "/" + pkgName + "-"

	s.mu.Lock()
	seen := make(map[string]bool)
	for key := range s.artifact {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		ver := strings.TrimSuffix(strings.TrimPrefix(key, prefix), ".tgz")
		seen[ver] = true
	}
	s.mu.Unlock()

	versions := make([]string, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	info := folderInfo{}
	for _, v := range versions {
		info.Children = append(info.Children, folderChild{URI: "/" + v, Folder: true})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
