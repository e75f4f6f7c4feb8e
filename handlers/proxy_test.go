package handlers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestProxy() *ImageProxyHandler {
	h := NewImageProxyHandler(nil)
	h.delay = time.Millisecond
	return h
}

func proxyRequest(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/api/proxy-image?url="+url.QueryEscape(target), nil)
}

func TestImageProxy_PassesImageThrough(t *testing.T) {
	img := pngBytes(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, imageProxyReferer, r.Header.Get("Referer"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(img)
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	newTestProxy().ServeHTTP(rec, proxyRequest(upstream.URL+"/cover.heic"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000", rec.Header().Get("Cache-Control"))
	assert.Equal(t, img, rec.Body.Bytes())
}

func TestImageProxy_RequiresURL(t *testing.T) {
	for _, target := range []string{"/api/proxy-image", "/api/proxy-image?url=ftp%3A%2F%2Fx", "/api/proxy-image?url=%2Frelative"} {
		rec := httptest.NewRecorder()
		newTestProxy().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestImageProxy_RetriesServerErrors(t *testing.T) {
	img := pngBytes(t)
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(img)
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	newTestProxy().ServeHTTP(rec, proxyRequest(upstream.URL+"/a.png"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, calls.Load())
}

func TestImageProxy_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	newTestProxy().ServeHTTP(rec, proxyRequest(upstream.URL+"/missing.png"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestImageProxy_RejectsNonImages(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("<html><body>captcha</body></html>"))
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	newTestProxy().ServeHTTP(rec, proxyRequest(upstream.URL+"/a.jpg"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
