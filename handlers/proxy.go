package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gabriel-vasile/mimetype"

	"jywanonton/utils"
)

const (
	imageProxyUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	imageProxyReferer   = "https://api.tmtreader.com/"
	maxImageBytes       = 10 << 20
)

// ImageProxyHandler fetches upstream cover images so browsers never talk to
// the upstream CDN directly. Images are passed through as-is.
type ImageProxyHandler struct {
	client   *http.Client
	attempts uint
	delay    time.Duration
}

func NewImageProxyHandler(client *http.Client) *ImageProxyHandler {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ImageProxyHandler{client: client, attempts: 3, delay: 200 * time.Millisecond}
}

type imageFetchError struct {
	status int
}

func (e *imageFetchError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.status)
}

func (h *ImageProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		http.Error(w, "URL required", http.StatusBadRequest)
		return
	}
	target, err := utils.NormalizeRemoteURL(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.fetch(r.Context(), target)
	if err != nil {
		log.Printf("[proxy] fetch %s failed: %v", raw, err)
		http.Error(w, "Failed to proxy image: "+err.Error(), http.StatusBadGateway)
		return
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		log.Printf("[proxy] %s is %s, not an image", raw, mtype.String())
		http.Error(w, "Upstream did not return an image", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", mtype.String())
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.Write(data)
}

// fetch retries transport errors and 5xx/429 answers; other statuses fail at once.
func (h *ImageProxyHandler) fetch(ctx context.Context, target string) ([]byte, error) {
	var data []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", imageProxyUserAgent)
			req.Header.Set("Referer", imageProxyReferer)

			resp, err := h.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
				ferr := &imageFetchError{status: resp.StatusCode}
				if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
					return ferr
				}
				return retry.Unrecoverable(ferr)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
			if err != nil {
				return err
			}
			if len(body) > maxImageBytes {
				return retry.Unrecoverable(fmt.Errorf("image larger than %d bytes", maxImageBytes))
			}
			data = body
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(h.attempts),
		retry.Delay(h.delay),
		retry.LastErrorOnly(true),
	)
	return data, err
}
