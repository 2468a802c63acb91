package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// Extension modules loaded at startup
	Extensions   []string
	ExtensionDir string

	// Bundled extensions
	Builtins             bool
	ContentCacheSize     int
	PDFFallbackPdftotext bool
	DirMaxDepth          int

	// Logging
	LogLevel  slog.Level
	LogFormat string
}

func Load() Config {
	cfg := Config{
		Extensions:   envList("DOCVIEW_EXTENSIONS"),
		ExtensionDir: os.Getenv("DOCVIEW_EXTENSION_DIR"),

		Builtins:             envBool("DOCVIEW_BUILTINS", true),
		ContentCacheSize:     envInt("DOCVIEW_CONTENT_CACHE", 256),
		PDFFallbackPdftotext: envBool("DOCVIEW_PDF_FALLBACK_PDFTOTEXT", true),
		DirMaxDepth:          envInt("DOCVIEW_DIR_MAX_DEPTH", 8),

		LogLevel:  envLevel("DOCVIEW_LOG_LEVEL", slog.LevelWarn),
		LogFormat: strings.ToLower(envOr("DOCVIEW_LOG_FORMAT", "text")),
	}

	if cfg.ContentCacheSize <= 0 {
		cfg.ContentCacheSize = 256
	}
	if cfg.DirMaxDepth <= 0 {
		cfg.DirMaxDepth = 8
	}

	return cfg
}

func (c Config) Validate() error {
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("DOCVIEW_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.ExtensionDir != "" {
		info, err := os.Stat(c.ExtensionDir)
		if err != nil {
			return fmt.Errorf("DOCVIEW_EXTENSION_DIR: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("DOCVIEW_EXTENSION_DIR: %s is not a directory", c.ExtensionDir)
		}
	}
	return nil
}

// ModulePaths returns the configured extension modules followed by every
// shared object in ExtensionDir, in name order.
func (c Config) ModulePaths() ([]string, error) {
	paths := append([]string(nil), c.Extensions...)
	if c.ExtensionDir == "" {
		return paths, nil
	}
	matches, err := filepath.Glob(filepath.Join(c.ExtensionDir, "*.so"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.ExtensionDir, err)
	}
	return append(paths, matches...), nil
}

// Logger builds the process logger described by the config, writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envList splits a path list such as "a.so:b.so".
func envList(key string) []string {
	var out []string
	for _, p := range filepath.SplitList(os.Getenv(key)) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err == nil {
			return level
		}
	}
	return fallback
}
