package utils

import (
	"errors"
	"net/url"
	"strings"
)

var ErrUnsupportedURL = errors.New("url must be absolute http or https")

// EncodeURLWithSpaces properly encodes a URL that may contain unencoded spaces.
// Upstream cover URLs occasionally carry raw spaces in the path or query.
func EncodeURLWithSpaces(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	encoded := parsedURL.Scheme + "://" + parsedURL.Host + parsedURL.EscapedPath()
	if parsedURL.RawQuery != "" {
		encoded += "?" + strings.ReplaceAll(parsedURL.RawQuery, " ", "%20")
	}
	return encoded, nil
}

// NormalizeRemoteURL checks that raw is an absolute http(s) URL and returns
// it with spaces encoded, ready to fetch.
func NormalizeRemoteURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrUnsupportedURL
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return "", ErrUnsupportedURL
	}
	return EncodeURLWithSpaces(raw)
}
