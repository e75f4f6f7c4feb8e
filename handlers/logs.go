package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

const (
	defaultLogLines = 200
	maxLogLines     = 5000
)

// LogsHandler exposes the tail of the server log file to admins.
type LogsHandler struct {
	logFile string
}

func NewLogsHandler(logFile string) *LogsHandler {
	return &LogsHandler{logFile: logFile}
}

// Tail writes the last ?lines= lines (default 200, max 5000) as plain text.
func (h *LogsHandler) Tail(w http.ResponseWriter, r *http.Request) {
	n := defaultLogLines
	if v := r.URL.Query().Get("lines"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "Parameter lines harus bilangan positif")
			return
		}
		n = min(parsed, maxLogLines)
	}

	lines, err := h.readLogs(n)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, strings.Join(lines, "\n"))
}

func (h *LogsHandler) readLogs(n int) ([]string, error) {
	if h.logFile == "" {
		return nil, fmt.Errorf("no log file configured")
	}
	f, err := os.Open(h.logFile)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	defer f.Close()
	return readLastNLines(f, n)
}

// readLastNLines reads backwards in chunks so large files are not loaded whole.
func readLastNLines(file *os.File, n int) ([]string, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 || n <= 0 {
		return nil, nil
	}

	const chunkSize = 64 * 1024
	var lines []string
	var leftover []byte
	position := stat.Size()

	for position > 0 && len(lines) < n {
		readSize := min(int64(chunkSize), position)
		position -= readSize

		chunk := make([]byte, readSize, readSize+int64(len(leftover)))
		if _, err := file.ReadAt(chunk, position); err != nil && err != io.EOF {
			return nil, err
		}
		chunk = append(chunk, leftover...)

		parts := bytes.Split(chunk, []byte("\n"))
		leftover = parts[0]
		for i := len(parts) - 1; i > 0 && len(lines) < n; i-- {
			line := bytes.TrimRight(parts[i], "\r")
			if len(line) == 0 && i == len(parts)-1 && len(lines) == 0 {
				// trailing newline at end of file
				continue
			}
			lines = append(lines, string(line))
		}
	}
	if len(leftover) > 0 && len(lines) < n {
		lines = append(lines, string(bytes.TrimRight(leftover, "\r")))
	}

	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}
