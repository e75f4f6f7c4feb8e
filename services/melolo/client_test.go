package melolo

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jywanonton/internal/identity"
)

func testProfile(base string) Profile {
	p := DefaultProfile(identity.ClientIdentity{
		DeviceID:  "1234567890123456789",
		InstallID: "9876543210987654321",
		OpenUDID:  "0123456789abcdef",
		CDID:      "6f1c2a4e-8d3b-4c5a-9e7f-0a1b2c3d4e5f",
	})
	p.BaseURL = base
	return p
}

func TestClientCallMergesParamsAndHeaders(t *testing.T) {
	var got *http.Request
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"ok":true}}`)
	}))
	defer server.Close()

	client := NewClient(testProfile(server.URL))
	params := url.Values{}
	params.Set("language", "en")
	params.Set("_rticket", "1")
	params.Set("query", "ceo")

	res, err := client.Call(context.Background(), http.MethodPost, "/novel/player/video_detail/v1/",
		params, map[string]any{"series_id": "77"}, map[string]string{"X-Ss-Stub": "ABC", "Sdk-Version": "3"})
	require.NoError(t, err)
	assert.True(t, res.Get("data.ok").Bool())

	require.NotNil(t, got)
	assert.Equal(t, "/novel/player/video_detail/v1/", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "1234567890123456789", q.Get("device_id"))
	assert.Equal(t, "9876543210987654321", q.Get("iid"))
	assert.Equal(t, "0123456789abcdef", q.Get("openudid"))
	assert.Equal(t, "Melolo", q.Get("app_name"))
	assert.Equal(t, "en", q.Get("language"), "call params override static params")
	assert.Equal(t, "ceo", q.Get("query"))
	assert.NotEqual(t, "1", q.Get("_rticket"), "ticket is always generated")
	_, err = strconv.ParseInt(q.Get("_rticket"), 10, 64)
	assert.NoError(t, err)

	assert.Equal(t, "ABC", got.Header.Get("X-Ss-Stub"))
	assert.Equal(t, "3", got.Header.Get("Sdk-Version"), "call headers override static headers")
	assert.Equal(t, "50357", got.Header.Get("Passport-Sdk-Version"))
	assert.Equal(t, "77", gotBody["series_id"])
}

func TestClientCallFreshTicketEachCall(t *testing.T) {
	var mu sync.Mutex
	var tickets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		tickets = append(tickets, r.URL.Query().Get("_rticket"))
		mu.Unlock()
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client := NewClient(testProfile(server.URL))
	for i := 0; i < 5; i++ {
		_, err := client.Call(context.Background(), http.MethodGet, "/x", nil, nil, nil)
		require.NoError(t, err)
	}
	require.Len(t, tickets, 5)
	for _, tk := range tickets {
		assert.NotEmpty(t, tk)
	}
}

func TestClientCallNon2xxSurfacesRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"message":"risk control","code":10000}`)
	}))
	defer server.Close()

	_, err := NewClient(testProfile(server.URL)).Call(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusForbidden, ue.StatusCode)
	assert.Contains(t, ue.RawBody, "risk control")
	assert.Contains(t, err.Error(), "risk control")
}

func TestClientCallInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>blocked</html>`)
	}))
	defer server.Close()

	_, err := NewClient(testProfile(server.URL)).Call(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "<html>blocked</html>", ue.RawBody)
}

func TestClientCallTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	_, err := NewClient(testProfile(base)).Call(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Zero(t, ue.StatusCode)
	assert.Empty(t, ue.RawBody)
}

func TestClientCallTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(testProfile(server.URL), WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := client.Call(context.Background(), http.MethodGet, "/slow", nil, nil, nil)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClientCallDecodesBrotli(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "br")
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		io.WriteString(bw, `{"data":{"main_url":"https://cdn.example/v.mp4"}}`)
		bw.Close()
	}))
	defer server.Close()

	res, err := NewClient(testProfile(server.URL)).Call(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v.mp4", res.Get("data.main_url").String())
}

func TestClientCallDecodesGzipAndDeflate(t *testing.T) {
	const doc = `{"data":{"ok":true}}`
	compress := map[string]func(*bytes.Buffer) io.WriteCloser{
		"gzip": func(b *bytes.Buffer) io.WriteCloser { return gzip.NewWriter(b) },
		"zlib": func(b *bytes.Buffer) io.WriteCloser { return zlib.NewWriter(b) },
		"raw flate": func(b *bytes.Buffer) io.WriteCloser {
			fw, _ := flate.NewWriter(b, flate.DefaultCompression)
			return fw
		},
	}
	encoding := map[string]string{"gzip": "gzip", "zlib": "deflate", "raw flate": "deflate"}

	for name, newWriter := range compress {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			zw := newWriter(&buf)
			io.WriteString(zw, doc)
			require.NoError(t, zw.Close())

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", encoding[name])
				w.Write(buf.Bytes())
			}))
			defer server.Close()

			res, err := NewClient(testProfile(server.URL)).Call(context.Background(), http.MethodGet, "/x", nil, nil, nil)
			require.NoError(t, err)
			assert.True(t, res.Get("data.ok").Bool())
		})
	}
}

func TestClientSendsPinnedHost(t *testing.T) {
	var hosts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hosts = append(hosts, r.Host)
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	_, err := NewClient(testProfile(server.URL)).Call(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.NoError(t, err)

	_, err = NewClient(testProfile(""), WithBaseURL(server.URL+"/")).Call(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.NoError(t, err)

	require.Len(t, hosts, 2)
	assert.Equal(t, "api.tmtreader.com", hosts[0])
	assert.Equal(t, strings.TrimPrefix(server.URL, "http://"), hosts[1], "Host follows an overridden base URL")
}

func TestDefaultProfileFingerprint(t *testing.T) {
	p := DefaultProfile(identity.New())
	assert.Equal(t, "ScRaPe/9.9 (KaliLinux; Nusantara Os; My/Shannz)", p.Headers["User-Agent"])
	assert.Equal(t, "ScRaPe", p.Params.Get("device_type"))
	assert.Equal(t, "Shannz", p.Params.Get("device_brand"))
	assert.Equal(t, "645713", p.Params.Get("aid"))
	assert.Equal(t, defaultBaseURL, p.BaseURL)
}

func TestNewClientCopiesProfile(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query().Get("device_id")
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	profile := testProfile(server.URL)
	client := NewClient(profile)
	profile.Params.Set("device_id", "mutated")

	_, err := client.Call(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "1234567890123456789", seen)
}
