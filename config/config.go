package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process settings read from the environment.
type Config struct {
	Port string

	UpstreamBaseURL string        // empty = Melolo production host
	UpstreamTimeout time.Duration // per upstream call

	CacheDir string
	CacheTTL time.Duration // 0 disables the response cache

	LogFile string // optional rotating log file in addition to stdout

	AdminAPIKey string // empty disables the admin notice endpoint
	NoticePath  string
	PublicDir   string

	RateLimitPerMinute int  // 0 disables rate limiting
	TrustProxy         bool // key rate limits by X-Forwarded-For; set only behind a proxy that rewrites it
	CORSOrigins        []string
}

const (
	defaultPort            = "4343"
	defaultUpstreamTimeout = 15 * time.Second
	defaultCacheDir        = "cache"
	defaultCacheTTL        = 10 * time.Minute
	defaultNoticePath      = "public/notice.json"
	defaultPublicDir       = "public"
	defaultRateLimit       = 120
)

// Load reads .env files (if present) and then the environment. Variables
// already set in the environment win over .env entries.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	c := Config{
		Port:            getEnv("PORT", defaultPort),
		UpstreamBaseURL: strings.TrimRight(getEnv("UPSTREAM_BASE_URL", ""), "/"),
		CacheDir:        getEnv("CACHE_DIR", defaultCacheDir),
		LogFile:         getEnv("LOG_FILE", ""),
		AdminAPIKey:     getEnv("ADMIN_API_KEY", ""),
		NoticePath:      getEnv("NOTICE_PATH", defaultNoticePath),
		PublicDir:       getEnv("PUBLIC_DIR", defaultPublicDir),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
	}

	var errs []error
	var err error
	if c.UpstreamTimeout, err = getEnvDuration("UPSTREAM_TIMEOUT", defaultUpstreamTimeout); err != nil {
		errs = append(errs, err)
	} else if c.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("UPSTREAM_TIMEOUT must be positive"))
	}
	if c.CacheTTL, err = getEnvDuration("CACHE_TTL", defaultCacheTTL); err != nil {
		errs = append(errs, err)
	} else if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must not be negative"))
	}
	if c.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", defaultRateLimit); err != nil {
		errs = append(errs, err)
	} else if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	if c.TrustProxy, err = getEnvBool("TRUST_PROXY", false); err != nil {
		errs = append(errs, err)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT: %q is not a number", c.Port))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return c, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("15s") and bare seconds ("15").
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
