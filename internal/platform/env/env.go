// Package env reads process configuration from environment variables.
package env

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce は .env ファイルを一度だけ読み込みます。
// 既存の環境変数は上書きしません。ENV_FILE が指定されていればそのパスを使います。
func LoadDotenvOnce() {
	dotenvOnce.Do(func() {
		path := os.Getenv("ENV_FILE")
		if path == "" {
			path = ".env"
		}
		if err := godotenv.Load(path); err != nil {
			slog.Info(".env not found; using system environment variables", "path", path)
		}
	})
}

// String returns the value of key, or def when it is unset or blank.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Duration parses key with time.ParseDuration. Invalid or non-positive values fall back to def.
func Duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration in environment; using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// Int parses key as a base-10 integer, falling back to def.
func Int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment; using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// Bool reports whether key is set to a true value ("true", "1", ...).
func Bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
