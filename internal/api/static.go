package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// staticHandler serves the front-end. Extensionless paths fall back to "<path>.html", so /admin serves admin.html.
type staticHandler struct {
	dir   string
	files http.Handler
}

func newStaticHandler(dir string) http.Handler {
	return &staticHandler{dir: dir, files: http.FileServer(http.Dir(dir))}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	p := path.Clean("/" + r.URL.Path)
	if p != "/" && path.Ext(p) == "" {
		candidate := filepath.Join(h.dir, filepath.FromSlash(p)+".html")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			http.ServeFile(w, r, candidate)
			return
		}
	}
	h.files.ServeHTTP(w, r)
}
