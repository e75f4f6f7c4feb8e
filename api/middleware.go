package api

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// AdminKeyHeader carries the admin API key.
const AdminKeyHeader = "X-Api-Key"

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// AdminKeyMiddleware only lets requests through whose X-Api-Key matches key.
// An empty key locks the admin routes entirely.
func AdminKeyMiddleware(key string) mux.MiddlewareFunc {
	expected := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			given := strings.TrimSpace(r.Header.Get(AdminKeyHeader))
			if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(given), expected) != 1 {
				log.Printf("[http] rejected admin request %s %s from %s", r.Method, r.URL.Path, ClientIP(r))
				writeError(w, http.StatusForbidden, "Unauthorized: Invalid API Key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
