package melolo

import (
	"encoding/base64"
	"log"
	"net/url"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"jywanonton/models"
)

// ProxyImagePath is the local route that fetches upstream images on behalf of
// the browser.
const ProxyImagePath = "/api/proxy-image"

// ProxyImageURL rewrites an upstream image URL to go through the local image
// proxy. Empty input is returned unchanged.
func ProxyImageURL(raw string) string {
	if raw == "" {
		return raw
	}
	return ProxyImagePath + "?url=" + url.QueryEscape(raw)
}

// UnproxyImageURL extracts the original URL from a ProxyImageURL result.
// Anything else is returned unchanged.
func UnproxyImageURL(proxied string) string {
	rest, ok := strings.CutPrefix(proxied, ProxyImagePath+"?")
	if !ok {
		return proxied
	}
	q, err := url.ParseQuery(rest)
	if err != nil {
		return proxied
	}
	return q.Get("url")
}

// NormalizeSearchHits flattens data.search_data[*].books[*] into summaries.
// Sections without a books array are skipped.
func NormalizeSearchHits(payload gjson.Result) []models.DramaSummary {
	results := []models.DramaSummary{}
	sections := payload.Get("data.search_data")
	if !sections.IsArray() {
		return results
	}
	sections.ForEach(func(_, section gjson.Result) bool {
		books := section.Get("books")
		if !books.IsArray() {
			return true
		}
		books.ForEach(func(_, book gjson.Result) bool {
			results = append(results, summaryFromBook(book))
			return true
		})
		return true
	})
	return results
}

func summaryFromBook(book gjson.Result) models.DramaSummary {
	chapters := book.Get("serial_count").Int()
	if chapters == 0 {
		chapters = book.Get("last_chapter_index").Int()
	}
	return models.DramaSummary{
		BookID:       book.Get("book_id").String(),
		BookName:     book.Get("book_name").String(),
		Cover:        ProxyImageURL(book.Get("thumb_url").String()),
		Author:       book.Get("author").String(),
		Introduction: book.Get("abstract").String(),
		Status:       book.Get("show_creation_status").String(),
		Tags:         stringList(book.Get("stat_infos")),
		ChapterCount: chapters,
	}
}

// NormalizeDetail maps data.video_data into a DramaDetail. fallbackID is used
// when upstream omits series_id_str. Author is left empty when upstream has
// none; the resolver decides how to fill it.
func NormalizeDetail(payload gjson.Result, fallbackID string) models.DramaDetail {
	data := payload.Get("data.video_data")

	bookID := data.Get("series_id_str").String()
	if bookID == "" {
		bookID = fallbackID
	}
	author := data.Get("author").String()
	if author == "" {
		author = data.Get("series_author").String()
	}

	episodes := []models.EpisodeRef{}
	videos := data.Get("video_list")
	if !videos.IsArray() {
		videos = gjson.Result{}
	}
	videos.ForEach(func(_, v gjson.Result) bool {
		episodes = append(episodes, models.EpisodeRef{
			ChapterID:    v.Get("vid").String(),
			ChapterIndex: v.Get("vid_index").Int(),
			ChapterName:  v.Get("title").String(),
			Duration:     v.Get("duration").Int(),
			Likes:        v.Get("digged_count").Int(),
			Cover:        ProxyImageURL(v.Get("cover").String()),
		})
		return true
	})

	return models.DramaDetail{
		DramaSummary: models.DramaSummary{
			BookID:       bookID,
			BookName:     data.Get("series_title").String(),
			Cover:        ProxyImageURL(data.Get("series_cover").String()),
			Author:       author,
			Introduction: data.Get("series_intro").String(),
			Tags:         parseCategorySchema(data.Get("category_schema").String()),
			ChapterCount: data.Get("episode_cnt").Int(),
		},
		Episodes: episodes,
	}
}

// parseCategorySchema reads the JSON-encoded [{"name": ...}] string upstream
// embeds in the detail payload. Malformed input yields an empty list.
func parseCategorySchema(schema string) []string {
	tags := []string{}
	if strings.TrimSpace(schema) == "" {
		return tags
	}
	parsed := gjson.Parse(schema)
	if !gjson.Valid(schema) || !parsed.IsArray() {
		log.Printf("[melolo] ignoring malformed category_schema (%d bytes)", len(schema))
		return tags
	}
	parsed.ForEach(func(_, cat gjson.Result) bool {
		if name := cat.Get("name").String(); name != "" {
			tags = append(tags, name)
		}
		return true
	})
	return tags
}

type streamVariant struct {
	size int64
	url  string
}

// ResolveBestStream picks the largest variant from data.video_model when it
// parses and has at least one entry, otherwise data.main_url. Variant URLs
// that are not absolute http(s) URLs are base64 text and get decoded.
func ResolveBestStream(payload gjson.Result) models.StreamResolution {
	data := payload.Get("data")
	best := data.Get("main_url").String()

	if variants, ok := parseVideoModel(data.Get("video_model").String()); ok && len(variants) > 0 {
		// Stable so equal sizes keep upstream order.
		sort.SliceStable(variants, func(i, j int) bool {
			return variants[i].size > variants[j].size
		})
		if u := decodeStreamURL(variants[0].url); u != "" {
			best = u
		}
	}

	return models.StreamResolution{URL: best, Status: true}
}

func parseVideoModel(model string) ([]streamVariant, bool) {
	if strings.TrimSpace(model) == "" {
		return nil, false
	}
	if !gjson.Valid(model) {
		log.Printf("[melolo] ignoring malformed video_model (%d bytes)", len(model))
		return nil, false
	}
	list := gjson.Get(model, "video_list")
	if !list.IsObject() && !list.IsArray() {
		return nil, false
	}
	var variants []streamVariant
	list.ForEach(func(_, v gjson.Result) bool {
		variants = append(variants, streamVariant{
			size: v.Get("size").Int(),
			url:  v.Get("main_url").String(),
		})
		return true
	})
	return variants, true
}

func isAbsoluteHTTP(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// decodeStreamURL returns s as-is when it is already a URL, else its base64
// decoding. Standard and URL-safe alphabets, padded or not, are accepted.
func decodeStreamURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || isAbsoluteHTTP(s) {
		return s
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(s); err == nil {
			return string(decoded)
		}
	}
	log.Printf("[melolo] stream url is neither absolute nor base64, using as-is")
	return s
}

func stringList(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		return out
	}
	r.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}
