package melolo

import (
	"context"
	"log"
	"strings"

	"golang.org/x/text/unicode/norm"

	"jywanonton/models"
)

// UnknownAuthor is shown when neither the detail payload nor the backfill
// search produced an author.
const UnknownAuthor = "Unknown"

type titleSearcher interface {
	Search(ctx context.Context, query string, offset, limit int) ([]models.DramaSummary, error)
}

// authorBackfill fills a missing author by searching for the drama's title
// and trusting the top hit only if it is the same drama. This is a best-effort
// heuristic: a wrong author can still slip through when two dramas share an
// exact title and upstream returns the other one first with a matching name.
type authorBackfill struct {
	searcher titleSearcher
}

// resolve returns the backfilled author, or "" when none was trusted. A
// failed search is logged and returned so callers can avoid caching the gap.
func (b authorBackfill) resolve(ctx context.Context, bookID, title string) (string, error) {
	if b.searcher == nil || strings.TrimSpace(title) == "" {
		backfillAttempts.WithLabelValues("skipped").Inc()
		return "", nil
	}

	hits, err := b.searcher.Search(ctx, title, 0, 1)
	if err != nil {
		log.Printf("[melolo] author backfill search failed for %s: %v", bookID, err)
		backfillAttempts.WithLabelValues("error").Inc()
		return "", err
	}
	if len(hits) == 0 {
		backfillAttempts.WithLabelValues("miss").Inc()
		return "", nil
	}

	candidate := hits[0]
	if !sameDrama(candidate, bookID, title) || strings.TrimSpace(candidate.Author) == "" {
		backfillAttempts.WithLabelValues("rejected").Inc()
		return "", nil
	}
	backfillAttempts.WithLabelValues("hit").Inc()
	return candidate.Author, nil
}

// sameDrama guards against borrowing the author of an unrelated title: the
// candidate must carry the same id or exactly the same (NFC-normalized) title.
func sameDrama(candidate models.DramaSummary, bookID, title string) bool {
	if candidate.BookID != "" && candidate.BookID == bookID {
		return true
	}
	return norm.NFC.String(candidate.BookName) == norm.NFC.String(title)
}
