package handlers

import (
	"log"
	"net/http"

	"jywanonton/services/melolo"
)

type cacheClearer interface {
	ClearCache() error
}

var _ cacheClearer = (*melolo.Service)(nil)

// CacheHandler lets an admin drop cached upstream responses.
type CacheHandler struct {
	Cache cacheClearer
}

func NewCacheHandler(c cacheClearer) *CacheHandler {
	return &CacheHandler{Cache: c}
}

func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.ClearCache(); err != nil {
		log.Printf("[melolo] cache clear failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to clear cache",
			"message": err.Error(),
		})
		return
	}
	log.Printf("[melolo] response cache cleared")
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Cache cleared"})
}
