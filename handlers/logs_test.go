package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLogFile(t *testing.T, lines int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	var content strings.Builder
	for i := 1; i <= lines; i++ {
		content.WriteString(fmt.Sprintf("line %d\n", i))
	}
	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create log file: %v", err)
	}
	return path
}

func TestLogsHandler_TailDefault(t *testing.T) {
	h := NewLogsHandler(writeLogFile(t, 300))

	rec := httptest.NewRecorder()
	h.Tail(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	lines := strings.Split(rec.Body.String(), "\n")
	if len(lines) != defaultLogLines {
		t.Fatalf("expected %d lines, got %d", defaultLogLines, len(lines))
	}
	if lines[0] != "line 101" || lines[len(lines)-1] != "line 300" {
		t.Errorf("unexpected window %q .. %q", lines[0], lines[len(lines)-1])
	}
}

func TestLogsHandler_TailLinesParam(t *testing.T) {
	h := NewLogsHandler(writeLogFile(t, 10))

	rec := httptest.NewRecorder()
	h.Tail(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs?lines=3", nil))
	if got := rec.Body.String(); got != "line 8\nline 9\nline 10" {
		t.Errorf("unexpected tail %q", got)
	}

	rec = httptest.NewRecorder()
	h.Tail(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs?lines=-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative lines, got %d", rec.Code)
	}
}

func TestLogsHandler_NoFile(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/log.txt"} {
		rec := httptest.NewRecorder()
		NewLogsHandler(path).Tail(rec, httptest.NewRequest(http.MethodGet, "/api/admin/logs", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%q: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestReadLastNLines_SpansChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	var content strings.Builder
	long := strings.Repeat("x", 1000)
	for i := 1; i <= 200; i++ {
		content.WriteString(fmt.Sprintf("%d %s\n", i, long))
	}
	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		t.Fatal(err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	lines, err := readLastNLines(file, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 150 {
		t.Fatalf("expected 150 lines, got %d", len(lines))
	}
	for i, line := range lines {
		want := fmt.Sprintf("%d %s", 51+i, long)
		if line != want {
			t.Fatalf("line %d: got prefix %q", i, line[:min(len(line), 10)])
		}
	}
}

func TestReadLastNLines_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.log")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	lines, err := readLastNLines(file, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected 0 lines for empty file, got %d", len(lines))
	}
}

func TestReadLastNLines_NoTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.log")
	if err := os.WriteFile(path, []byte("line1\nline2\r\nline3"), 0644); err != nil {
		t.Fatal(err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	lines, err := readLastNLines(file, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(lines, ",") != "line1,line2,line3" {
		t.Errorf("unexpected lines %v", lines)
	}
}
