package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"jywanonton/models"
	"jywanonton/services/notice"
)

const maxNoticeBytes = 64 << 10

type noticeStore interface {
	Get() (models.Notice, error)
	Put(models.Notice) error
}

var _ noticeStore = (*notice.Store)(nil)

// NoticeHandler serves the site announcement and lets an admin replace it.
type NoticeHandler struct {
	Store noticeStore
}

func NewNoticeHandler(store noticeStore) *NoticeHandler {
	return &NoticeHandler{Store: store}
}

func (h *NoticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.Get()
	if err != nil {
		if !errors.Is(err, notice.ErrNoNotice) {
			log.Printf("[notice] read failed: %v", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"active": false, "message": "No notice found"})
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Update replaces the notice. Callers are authenticated by the admin key
// middleware before reaching here.
func (h *NoticeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var n models.Notice
	if err := json.NewDecoder(io.LimitReader(r.Body, maxNoticeBytes)).Decode(&n); err != nil {
		writeBadRequest(w, "Invalid notice data")
		return
	}

	if err := h.Store.Put(n); err != nil {
		log.Printf("[notice] save failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to save notice",
			"message": err.Error(),
		})
		return
	}

	log.Printf("[notice] updated notice %q (active=%t)", n.ID, n.Active)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Notice updated successfully", Data: n})
}
