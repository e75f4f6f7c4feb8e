package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"jywanonton/models"
	"jywanonton/services/melolo"
)

// upstreamFailureMessage is shown for every upstream failure; by far the most
// common cause is the upstream throttling this server's address.
const upstreamFailureMessage = "IP terkena limit, silakan tunggu beberapa menit dan coba lagi"

type dramaService interface {
	Search(ctx context.Context, query string, offset, limit int) ([]models.DramaSummary, error)
	Detail(ctx context.Context, bookID string) (*models.DramaDetail, error)
	Episodes(ctx context.Context, bookID string) ([]models.EpisodeRef, error)
	Episode(ctx context.Context, bookID, index string) (*models.EpisodeResolution, error)
	Stream(ctx context.Context, videoID string) (*models.StreamResolution, error)
	Latest(ctx context.Context) ([]models.DramaSummary, error)
	Trending(ctx context.Context) ([]models.DramaSummary, error)
	ForYou(ctx context.Context) ([]models.DramaSummary, error)
	VIP(ctx context.Context) ([]models.DramaSummary, error)
	Dubbed(ctx context.Context, page int) ([]models.DramaSummary, error)
	Random(ctx context.Context) (*models.DramaSummary, error)
	PopularSearches() []string
	Home(ctx context.Context) (*models.HomeFeed, error)
}

var _ dramaService = (*melolo.Service)(nil)

// DramaHandler serves the public drama API.
type DramaHandler struct {
	Service dramaService
}

func NewDramaHandler(service dramaService) *DramaHandler {
	return &DramaHandler{Service: service}
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("[http] %s %s failed: %v", r.Method, r.URL.Path, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   upstreamFailureMessage,
		"message": err.Error(),
	})
}

func requireParam(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = strings.TrimSpace(r.URL.Query().Get(name))
		if values[i] == "" {
			quoted := make([]string, len(names))
			for j, n := range names {
				quoted[j] = `"` + n + `"`
			}
			writeBadRequest(w, "Parameter "+strings.Join(quoted, " dan ")+" dibutuhkan")
			return nil, false
		}
	}
	return values, true
}

func intParam(r *http.Request, name string, def int) int {
	if v := strings.TrimSpace(r.URL.Query().Get(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// nonNil keeps empty lists rendering as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (h *DramaHandler) Search(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParam(w, r, "query")
	if !ok {
		return
	}
	hits, err := h.Service.Search(r.Context(), params[0], intParam(r, "offset", 0), intParam(r, "limit", 0))
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeData(w, nonNil(hits))
}

func (h *DramaHandler) Detail(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParam(w, r, "bookId")
	if !ok {
		return
	}
	detail, err := h.Service.Detail(r.Context(), params[0])
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeData(w, detail)
}

func (h *DramaHandler) Episodes(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParam(w, r, "bookId")
	if !ok {
		return
	}
	episodes, err := h.Service.Episodes(r.Context(), params[0])
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeData(w, nonNil(episodes))
}

// Episode resolves one episode. A missing index is a normal negative
// answer and is reported with HTTP 200.
func (h *DramaHandler) Episode(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParam(w, r, "bookId", "index")
	if !ok {
		return
	}
	ep, err := h.Service.Episode(r.Context(), params[0], params[1])
	if errors.Is(err, melolo.ErrEpisodeNotFound) {
		writeJSON(w, http.StatusOK, envelope{Success: false, Message: "Episode not found"})
		return
	}
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeData(w, ep)
}

func (h *DramaHandler) Stream(w http.ResponseWriter, r *http.Request) {
	params, ok := requireParam(w, r, "videoId")
	if !ok {
		return
	}
	res, err := h.Service.Stream(r.Context(), params[0])
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeData(w, map[string]string{"playUrl": res.URL})
}

func (h *DramaHandler) shelf(load func(context.Context) ([]models.DramaSummary, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits, err := load(r.Context())
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}
		writeData(w, nonNil(hits))
	}
}

func (h *DramaHandler) Latest(w http.ResponseWriter, r *http.Request) {
	h.shelf(h.Service.Latest)(w, r)
}

func (h *DramaHandler) Trending(w http.ResponseWriter, r *http.Request) {
	h.shelf(h.Service.Trending)(w, r)
}

func (h *DramaHandler) ForYou(w http.ResponseWriter, r *http.Request) {
	h.shelf(h.Service.ForYou)(w, r)
}

func (h *DramaHandler) VIP(w http.ResponseWriter, r *http.Request) {
	h.shelf(h.Service.VIP)(w, r)
}

// Dubbed accepts an optional classify of "terpopuler" or "terbaru" (both
// return the same shelf) and a 1-based page.
func (h *DramaHandler) Dubbed(w http.ResponseWriter, r *http.Request) {
	if classify := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("classify"))); classify != "" &&
		classify != "terpopuler" && classify != "terbaru" {
		writeBadRequest(w, "Parameter classify harus terpopuler atau terbaru")
		return
	}
	page := intParam(r, "page", 1)
	h.shelf(func(ctx context.Context) ([]models.DramaSummary, error) {
		return h.Service.Dubbed(ctx, page)
	})(w, r)
}

// Random answers with an empty object when the search came back empty.
func (h *DramaHandler) Random(w http.ResponseWriter, r *http.Request) {
	pick, err := h.Service.Random(r.Context())
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	if pick == nil {
		writeData(w, struct{}{})
		return
	}
	writeData(w, pick)
}

func (h *DramaHandler) PopularSearches(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.Service.PopularSearches())
}

func (h *DramaHandler) Home(w http.ResponseWriter, r *http.Request) {
	feed, err := h.Service.Home(r.Context())
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	feed.Latest = nonNil(feed.Latest)
	feed.Trending = nonNil(feed.Trending)
	feed.ForYou = nonNil(feed.ForYou)
	writeData(w, feed)
}
