package melolo

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"
	"github.com/spf13/afero"
)

// fileCache stores normalized responses as JSON files. Entries expire after
// the TTL plus a per-key jitter of up to 10% so a burst of lookups does not
// expire all at once.
type fileCache struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
}

func newFileCache(fs afero.Fs, dir string, ttl time.Duration) *fileCache {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &fileCache{fs: fs, dir: dir, ttl: ttl}
}

func (c *fileCache) jitteredTTL(key string) time.Duration {
	spread := uint64(c.ttl / 10)
	if spread == 0 {
		return c.ttl
	}
	h := sha256.Sum256([]byte(key))
	n := binary.BigEndian.Uint64(h[:8])
	return c.ttl + time.Duration(n%spread)
}

func (c *fileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *fileCache) get(key string, v any) (bool, error) {
	if c == nil {
		return false, nil
	}
	if key == "" {
		return false, errors.New("empty key")
	}
	path := c.path(key)
	fi, err := c.fs.Stat(path)
	if err != nil {
		return false, nil
	}
	if time.Since(fi.ModTime()) > c.jitteredTTL(key) {
		_ = c.fs.Remove(path)
		return false, nil
	}
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *fileCache) set(key string, v any) error {
	if c == nil {
		return nil
	}
	if key == "" {
		return errors.New("empty key")
	}
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := c.path(key)
	tmp := path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0o644); err != nil {
		_ = c.fs.Remove(tmp)
		return err
	}
	return c.fs.Rename(tmp, path)
}

// clear removes every cached entry.
func (c *fileCache) clear() error {
	if c == nil {
		return nil
	}
	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		_ = c.fs.Remove(filepath.Join(c.dir, entry.Name()))
	}
	return nil
}

// cacheKey builds a filename-safe key: a short readable ASCII slug of the
// first part followed by a hash of all parts.
func cacheKey(parts ...string) string {
	h := sha1.Sum([]byte(strings.Join(parts, ":")))
	sum := hex.EncodeToString(h[:])
	if len(parts) == 0 {
		return sum
	}
	slug := slugify(unidecode.Unidecode(parts[0]))
	if slug == "" {
		return sum
	}
	return slug + "-" + sum
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 32 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
