package utils

import (
	"strings"
	"testing"
)

func TestNormalizeRemoteURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"http://example.com/cover.jpg", false},
		{"https://p16-novel.example/img/abc~tplv-resize:570:810.heic", false},
		{"HTTPS://EXAMPLE.COM/FILE", false},
		{"  https://example.com/padded.png  ", false},

		{"", true},
		{"/api/proxy-image?url=x", true},
		{"file:///etc/passwd", true},
		{"ftp://evil.com/payload", true},
		{"data:image/png;base64,AAAA", true},
		{"https://", true},
	}

	for _, tt := range tests {
		_, err := NormalizeRemoteURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeRemoteURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestEncodeURLWithSpaces(t *testing.T) {
	result, err := EncodeURLWithSpaces("http://example.com/path with spaces/file name.jpg?x=a b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "path%20with%20spaces") {
		t.Errorf("expected encoded spaces in path, got %q", result)
	}
	if !strings.HasSuffix(result, "?x=a%20b") {
		t.Errorf("expected encoded spaces in query, got %q", result)
	}
}
