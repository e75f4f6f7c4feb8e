package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// StaticHandler serves the single-page app from a directory. Unknown paths
// fall back to index.html so client-side routes survive a reload.
type StaticHandler struct {
	root       fs.FS
	fileServer http.Handler
}

func NewStaticHandler(dir string) *StaticHandler {
	return newStaticHandlerFS(os.DirFS(dir))
}

func newStaticHandlerFS(root fs.FS) *StaticHandler {
	return &StaticHandler{root: root, fileServer: http.FileServer(http.FS(root))}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	if strings.HasPrefix(name, "api/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if _, err := fs.Stat(h.root, name); errors.Is(err, fs.ErrNotExist) {
		if path.Ext(name) != "" {
			http.NotFound(w, r)
			return
		}
		r = r.Clone(r.Context())
		r.URL.Path = "/"
	}

	switch {
	case name == "index.html" || r.URL.Path == "/" || name == "sw.js":
		w.Header().Set("Cache-Control", "no-cache")
	case strings.HasSuffix(name, ".json"):
		w.Header().Set("Cache-Control", "no-cache")
	default:
		w.Header().Set("Cache-Control", "public, max-age=86400")
	}

	h.fileServer.ServeHTTP(w, r)
}
