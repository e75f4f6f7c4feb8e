package melolo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"jywanonton/models"
)

const (
	searchEndpoint = "/i18n_novel/search/page/v1/"
	detailEndpoint = "/novel/player/video_detail/v1/"
	streamEndpoint = "/novel/player/video_model/v1/"

	detailStub = "238B6268DE1F0B757306031C76B5397E"
	streamStub = "B7FB786F2CAA8B9EFB7C67A524B73AFB"

	defaultSearchLimit = 10
)

// curated views are fixed searches; upstream has no dedicated feed endpoints.
var (
	viewLatest   = curatedView{query: "Hot", limit: 15}
	viewTrending = curatedView{query: "Boss", limit: 10}
	viewForYou   = curatedView{query: "Cinta", limit: 15}
	viewVIP      = curatedView{query: "VIP", limit: 15}
	viewDubbed   = curatedView{query: "Indonesia", limit: 15}
	viewRandom   = curatedView{query: "Drama", limit: 1}

	popularSearches = []string{"Boss", "Nikah", "CEO", "Cinta", "Sekretaris", "Sultan"}
)

type curatedView struct {
	query string
	limit int
}

// ErrMissingID is returned when a lookup is attempted without an id.
var ErrMissingID = errors.New("id required")

type upstreamCaller interface {
	Call(ctx context.Context, method, endpoint string, params url.Values, body any, headers map[string]string) (gjson.Result, error)
}

// Service answers drama lookups by composing upstream calls with the
// normalizers. Apart from the optional cache it keeps no state between calls.
type Service struct {
	client   upstreamCaller
	cache    *fileCache
	backfill authorBackfill
	group    singleflight.Group
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithCache enables the response cache for search results and details.
// Stream URLs are never cached because upstream signs them with an expiry.
// A non-positive ttl leaves caching disabled.
func WithCache(fs afero.Fs, dir string, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 && strings.TrimSpace(dir) != "" {
			s.cache = newFileCache(fs, filepath.Join(dir, "melolo"), ttl)
		}
	}
}

// NewService wires a Service around an upstream client.
func NewService(client upstreamCaller, opts ...ServiceOption) *Service {
	s := &Service{client: client}
	s.backfill = authorBackfill{searcher: s}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClearCache drops every cached response.
func (s *Service) ClearCache() error {
	return s.cache.clear()
}

// Search runs a keyword search. A non-positive limit uses the default of 10.
func (s *Service) Search(ctx context.Context, query string, offset, limit int) ([]models.DramaSummary, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	key := cacheKey(query, "search", strconv.Itoa(offset), strconv.Itoa(limit))
	var cached []models.DramaSummary
	if ok, _ := s.cache.get(key, &cached); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("search_source_id", "clks###")
	params.Set("IsFetchDebug", "false")
	params.Set("offset", strconv.Itoa(offset))
	params.Set("cancel_search_category_enhance", "false")
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("search_id", "")

	payload, err := s.client.Call(ctx, http.MethodGet, searchEndpoint, params, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := NormalizeSearchHits(payload)
	if err := s.cache.set(key, results); err != nil {
		log.Printf("[melolo] cache write failed for search %q: %v", query, err)
	}
	return results, nil
}

// Detail fetches a drama with its episode list. When upstream omits the
// author a title search is tried; failing that the author is UnknownAuthor.
// Concurrent lookups of the same drama share one upstream round trip.
func (s *Service) Detail(ctx context.Context, bookID string) (*models.DramaDetail, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, fmt.Errorf("detail: book %w", ErrMissingID)
	}

	key := cacheKey("detail", bookID)
	var cached models.DramaDetail
	if ok, _ := s.cache.get(key, &cached); ok {
		return &cached, nil
	}

	// The shared fetch outlives any single caller; the client timeout bounds it.
	ch := s.group.DoChan(bookID, func() (any, error) {
		return s.fetchDetail(context.WithoutCancel(ctx), bookID)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("detail %s: %w", bookID, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	fetched := res.Val.(*fetchedDetail)
	detail := fetched.detail

	if fetched.cacheable {
		if err := s.cache.set(key, detail); err != nil {
			log.Printf("[melolo] cache write failed for detail %s: %v", bookID, err)
		}
	}
	return &detail, nil
}

// fetchedDetail is what one coalesced detail lookup produces. A detail whose
// author backfill failed is not cacheable, so the next lookup retries it.
type fetchedDetail struct {
	detail    models.DramaDetail
	cacheable bool
}

func (s *Service) fetchDetail(ctx context.Context, bookID string) (*fetchedDetail, error) {
	body := map[string]any{
		"biz_param": map[string]any{
			"detail_page_version":       0,
			"from_video_id":             "",
			"need_all_video_definition": false,
			"need_mp4_align":            false,
			"source":                    4,
			"use_os_player":             false,
			"video_id_type":             1,
		},
		"series_id": bookID,
	}
	payload, err := s.client.Call(ctx, http.MethodPost, detailEndpoint, nil, body, stubHeaders(detailStub))
	if err != nil {
		return nil, fmt.Errorf("detail %s: %w", bookID, err)
	}

	detail := NormalizeDetail(payload, bookID)
	cacheable := true
	if detail.Author == "" {
		author, err := s.backfill.resolve(ctx, bookID, detail.BookName)
		detail.Author = author
		cacheable = err == nil
	}
	if detail.Author == "" {
		detail.Author = UnknownAuthor
	}
	return &fetchedDetail{detail: detail, cacheable: cacheable}, nil
}

// Episodes returns the episode list of a drama.
func (s *Service) Episodes(ctx context.Context, bookID string) ([]models.EpisodeRef, error) {
	detail, err := s.Detail(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return detail.Episodes, nil
}

// Episode resolves the playable episode whose chapter index equals index.
// index is compared numerically, so "3", " 3" and "03" all select episode 3.
// ErrEpisodeNotFound is returned when nothing matches.
func (s *Service) Episode(ctx context.Context, bookID, index string) (*models.EpisodeResolution, error) {
	detail, err := s.Detail(ctx, bookID)
	if err != nil {
		return nil, err
	}

	ep, ok := findEpisode(detail.Episodes, index)
	if !ok {
		return nil, ErrEpisodeNotFound
	}

	stream, err := s.Stream(ctx, ep.ChapterID)
	if err != nil {
		return nil, err
	}
	return &models.EpisodeResolution{
		ChapterID:    ep.ChapterID,
		ChapterIndex: ep.ChapterIndex,
		ChapterName:  ep.ChapterName,
		PlayURL:      stream.URL,
		Cover:        ep.Cover,
	}, nil
}

// EpisodeAt is Episode for callers holding a numeric index.
func (s *Service) EpisodeAt(ctx context.Context, bookID string, index int) (*models.EpisodeResolution, error) {
	return s.Episode(ctx, bookID, strconv.Itoa(index))
}

// findEpisode returns the first episode whose index matches; duplicates
// further down the list are ignored.
func findEpisode(episodes []models.EpisodeRef, index string) (models.EpisodeRef, bool) {
	want, err := strconv.ParseFloat(strings.TrimSpace(index), 64)
	if err != nil {
		return models.EpisodeRef{}, false
	}
	for _, ep := range episodes {
		if float64(ep.ChapterIndex) == want {
			return ep, true
		}
	}
	return models.EpisodeRef{}, false
}

// Stream resolves the best playable URL for a video id.
func (s *Service) Stream(ctx context.Context, videoID string) (*models.StreamResolution, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("stream: video %w", ErrMissingID)
	}
	body := map[string]any{
		"biz_param": map[string]any{
			"detail_page_version":       0,
			"device_level":              3,
			"from_video_id":             "",
			"need_all_video_definition": true,
			"need_mp4_align":            false,
			"source":                    4,
			"use_os_player":             false,
			"video_id_type":             0,
			"video_platform":            3,
		},
		"video_id": videoID,
	}
	payload, err := s.client.Call(ctx, http.MethodPost, streamEndpoint, nil, body, stubHeaders(streamStub))
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", videoID, err)
	}
	res := ResolveBestStream(payload)
	return &res, nil
}

func stubHeaders(stub string) map[string]string {
	return map[string]string{
		"X-Ss-Stub":    stub,
		"Content-Type": "application/json; charset=utf-8",
	}
}

func (s *Service) view(ctx context.Context, v curatedView, offset int) ([]models.DramaSummary, error) {
	return s.Search(ctx, v.query, offset, v.limit)
}

// Latest is the "new releases" shelf.
func (s *Service) Latest(ctx context.Context) ([]models.DramaSummary, error) {
	return s.view(ctx, viewLatest, 0)
}

// Trending is the "trending now" shelf.
func (s *Service) Trending(ctx context.Context) ([]models.DramaSummary, error) {
	return s.view(ctx, viewTrending, 0)
}

// ForYou is the recommendations shelf.
func (s *Service) ForYou(ctx context.Context) ([]models.DramaSummary, error) {
	return s.view(ctx, viewForYou, 0)
}

// VIP is the premium shelf.
func (s *Service) VIP(ctx context.Context) ([]models.DramaSummary, error) {
	return s.view(ctx, viewVIP, 0)
}

// Dubbed lists Indonesian-dubbed dramas, one page of 15 at a time. Pages
// start at 1.
func (s *Service) Dubbed(ctx context.Context, page int) ([]models.DramaSummary, error) {
	if page < 1 {
		page = 1
	}
	return s.view(ctx, viewDubbed, (page-1)*viewDubbed.limit)
}

// Random returns one drama, or nil when the search came back empty.
func (s *Service) Random(ctx context.Context) (*models.DramaSummary, error) {
	hits, err := s.view(ctx, viewRandom, 0)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return &hits[0], nil
}

// PopularSearches returns the fixed keyword suggestions.
func (s *Service) PopularSearches() []string {
	return append([]string(nil), popularSearches...)
}

// Home loads the landing page shelves concurrently.
func (s *Service) Home(ctx context.Context) (*models.HomeFeed, error) {
	var feed models.HomeFeed
	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		feed.Latest, err = s.Latest(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		feed.Trending, err = s.Trending(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		feed.ForYou, err = s.ForYou(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return &feed, nil
}
