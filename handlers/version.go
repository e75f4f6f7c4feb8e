package handlers

import (
	"net/http"
	"os"
	"strings"
	"sync"
)

// Version can be set at build time with -ldflags "-X jywanonton/handlers.Version=...".
var Version string

var (
	resolvedVersion string
	versionOnce     sync.Once
	versionPaths    = []string{"version.txt", "/app/version.txt"}
)

type VersionResponse struct {
	Version string `json:"version"`
}

// CurrentVersion returns the build version, falling back to version.txt and
// finally "unknown". The result is resolved once.
func CurrentVersion() string {
	versionOnce.Do(func() {
		if v := strings.TrimSpace(Version); v != "" {
			resolvedVersion = v
			return
		}
		for _, path := range versionPaths {
			if data, err := os.ReadFile(path); err == nil {
				if v := strings.TrimSpace(string(data)); v != "" {
					resolvedVersion = v
					return
				}
			}
		}
		resolvedVersion = "unknown"
	})
	return resolvedVersion
}

func GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: CurrentVersion()})
}
