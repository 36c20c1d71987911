package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// MaxPageSize is the largest page the volumes endpoint serves per request.
const MaxPageSize = 40

// Config holds exporter configuration.
type Config struct {
	BaseURL         string
	Query           string
	MaxResults      int
	PageSize        int
	APIKey          string
	Timeout         time.Duration
	Delay           time.Duration
	MaxPages        int // safety bound on the pagination loop
	MaxEmptyPages   int // consecutive pages adding no new records before giving up
	DedupeMaxSize   int
	OutputFile      string // empty means console preview
	OutputFormat    string // csv, json, or dual
	PreviewRows     int
	PreviewColWidth int
	UserAgent       string
	Verbose         bool
	MetricsAddr     string
}

// DefaultConfig returns conservative defaults for the public endpoint.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://www.googleapis.com/books/v1/volumes",
		MaxResults:      20,
		PageSize:        MaxPageSize,
		Timeout:         30 * time.Second,
		Delay:           100 * time.Millisecond,
		MaxPages:        50,
		MaxEmptyPages:   2,
		DedupeMaxSize:   10000,
		OutputFile:      "",
		OutputFormat:    "csv",
		PreviewRows:     10,
		PreviewColWidth: 80,
		UserAgent:       "bookcsv/1.0 (+https://developers.google.com/books)",
		Verbose:         false,
		MetricsAddr:     "",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.PageSize > MaxPageSize {
		return fmt.Errorf("page size cannot exceed %d", MaxPageSize)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.MaxEmptyPages <= 0 {
		return fmt.Errorf("max empty pages must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.OutputFormat != "csv" && c.OutputFile == "" {
		return fmt.Errorf("output format %q requires an output file", c.OutputFormat)
	}
	if c.PreviewRows <= 0 {
		return fmt.Errorf("preview rows must be positive")
	}
	if c.PreviewColWidth <= 0 {
		return fmt.Errorf("preview column width must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// EnvString reads a string environment variable, reporting presence.
func EnvString(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable, reporting presence.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return value, true, nil
}
