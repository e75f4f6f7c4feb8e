package melolo

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"

	"jywanonton/internal/identity"
)

const (
	defaultCallTimeout = 15 * time.Second
	maxResponseBytes   = 16 << 20
)

// Client issues signed requests against the upstream API. It holds no
// per-call state and is safe for concurrent use.
type Client struct {
	profile    Profile
	httpClient *http.Client
	timeout    time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every upstream call. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBaseURL points the client at a different upstream host. A pinned Host
// header in the profile follows the new host.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimSpace(base); base == "" {
			return
		}
		c.profile.BaseURL = strings.TrimSuffix(base, "/")
		u, err := url.Parse(c.profile.BaseURL)
		if err != nil || u.Host == "" {
			return
		}
		for k := range c.profile.Headers {
			if strings.EqualFold(k, "Host") {
				c.profile.Headers[k] = u.Host
			}
		}
	}
}

// NewClient builds a client for the given profile. The profile is copied so
// later changes by the caller do not leak into requests.
func NewClient(profile Profile, opts ...Option) *Client {
	c := &Client{
		profile: profile.clone(),
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
				DisableCompression:  true,
			},
		},
		timeout: defaultCallTimeout,
	}
	if c.profile.BaseURL == "" {
		c.profile.BaseURL = defaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one upstream request and returns the parsed JSON document.
// Query parameters are merged as profile < params < _rticket and headers as
// profile < headers. A non-nil body is sent as JSON.
func (c *Client) Call(ctx context.Context, method, endpoint string, params url.Values, body any, headers map[string]string) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.do(ctx, method, endpoint, params, body, headers)
	upstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamRequests.WithLabelValues(endpoint, outcomeOf(err)).Inc()
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(raw) {
		upstreamRequests.WithLabelValues(endpoint, "decode").Inc()
		return gjson.Result{}, &UpstreamError{
			Endpoint: endpoint,
			Message:  "response is not valid JSON",
			RawBody:  truncate(string(raw), 2048),
		}
	}
	upstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return gjson.ParseBytes(raw), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body any, headers map[string]string) ([]byte, error) {
	u, err := url.Parse(c.profile.BaseURL + endpoint)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Message: fmt.Sprintf("build url: %v", err), Err: err}
	}
	u.RawQuery = c.mergeParams(params).Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &UpstreamError{Endpoint: endpoint, Message: fmt.Sprintf("marshal request: %v", err), Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Message: fmt.Sprintf("create request: %v", err), Err: err}
	}
	c.applyHeaders(req, headers)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, readErr := readBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
			RawBody:    truncate(string(respBody), 2048),
		}
	}
	if readErr != nil {
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", readErr), Err: readErr}
	}
	return respBody, nil
}

func (c *Client) mergeParams(params url.Values) url.Values {
	merged := make(url.Values, len(c.profile.Params)+len(params)+1)
	for k, v := range c.profile.Params {
		merged[k] = append([]string(nil), v...)
	}
	for k, v := range params {
		merged[k] = append([]string(nil), v...)
	}
	merged.Set("_rticket", identity.NewRequestTicket())
	return merged
}

func (c *Client) applyHeaders(req *http.Request, headers map[string]string) {
	set := func(k, v string) {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			return
		}
		req.Header.Set(k, v)
	}
	for k, v := range c.profile.Headers {
		set(k, v)
	}
	for k, v := range headers {
		set(k, v)
	}
}

// readBody undoes whatever content encoding upstream chose. The transport's
// transparent gzip is disabled because the app advertises br as well.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	case "deflate":
		return readDeflate(resp.Body)
	}
	return io.ReadAll(io.LimitReader(r, maxResponseBytes))
}

// readDeflate accepts the zlib-wrapped stream HTTP defines for "deflate" and
// falls back to a raw DEFLATE stream, which some servers send instead.
func readDeflate(body io.Reader) ([]byte, error) {
	compressed, err := io.ReadAll(io.LimitReader(body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	var r io.ReadCloser
	if zr, err := zlib.NewReader(bytes.NewReader(compressed)); err == nil {
		r = zr
	} else {
		r = flate.NewReader(bytes.NewReader(compressed))
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, maxResponseBytes))
}

func outcomeOf(err error) string {
	if ue, ok := err.(*UpstreamError); ok && ue.StatusCode != 0 {
		return "status"
	}
	return "transport"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
