package models

// DramaSummary is a single drama as returned by search and the curated views.
type DramaSummary struct {
	BookID       string   `json:"bookId"`
	BookName     string   `json:"bookName"`
	Cover        string   `json:"cover"`
	Author       string   `json:"author"`
	Introduction string   `json:"introduction"`
	Status       string   `json:"status,omitempty"`
	Tags         []string `json:"tags"`
	ChapterCount int64    `json:"chapterCount"`
}

// DramaDetail is a drama with its full episode list.
type DramaDetail struct {
	DramaSummary
	Episodes []EpisodeRef `json:"episodes"`
}

// EpisodeRef describes one episode of a drama. ChapterIndex is unique within
// a drama in practice, but upstream does not enforce it.
type EpisodeRef struct {
	ChapterID    string `json:"chapterId"`
	ChapterIndex int64  `json:"chapterIndex"`
	ChapterName  string `json:"chapterName"`
	Duration     int64  `json:"duration"`
	Likes        int64  `json:"likes"`
	Cover        string `json:"cover"`
}

// StreamResolution is the best playable URL found for a video.
type StreamResolution struct {
	URL    string `json:"url"`
	Status bool   `json:"status"`
}

// EpisodeResolution is an episode together with its resolved play URL.
type EpisodeResolution struct {
	ChapterID    string `json:"chapterId"`
	ChapterIndex int64  `json:"chapterIndex"`
	ChapterName  string `json:"chapterName"`
	PlayURL      string `json:"playUrl"`
	Cover        string `json:"cover"`
}

// HomeFeed bundles the curated views the landing page renders.
type HomeFeed struct {
	Latest   []DramaSummary `json:"latest"`
	Trending []DramaSummary `json:"trending"`
	ForYou   []DramaSummary `json:"forYou"`
}
