package main

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_InvalidConfigReturnsExitCode(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	assert.Equal(t, 1, serve())
}

func TestServe_ListenFailureIsLoggedToFile(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()

	dir := t.TempDir()
	logFile := filepath.Join(dir, "server.log")
	t.Setenv("PORT", strconv.Itoa(busy.Addr().(*net.TCPAddr).Port))
	t.Setenv("LOG_FILE", logFile)
	t.Setenv("CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("NOTICE_PATH", filepath.Join(dir, "notice.json"))
	t.Setenv("PUBLIC_DIR", dir)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	assert.Equal(t, 1, serve())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "server stopped")
}
