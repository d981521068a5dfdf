package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// FieldNames is the fixed CSV header, in column order.
var FieldNames = []string{
	"product_title",
	"line_description",
	"bullet_description",
	"product_final_price",
	"product_rating",
	"product_seller_name",
	"product_image_url",
}

// Config holds client configuration.
type Config struct {
	// Username and Password are carried for callers but never sent.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	Query        QueryParams `yaml:"query"`
	BaseURL      string      `yaml:"base_url"`
	ImageBaseURL string      `yaml:"image_base_url"`
	CSVFields    []string    `yaml:"csv_fields"`
	NoOfProducts int         `yaml:"no_of_products"`
	FileName     string      `yaml:"file_name"`
	OutputDir    string      `yaml:"output_dir"`
	OutputFormat string      `yaml:"output_format"` // csv, json, or dual

	// IncludeLastPage requests pages 1..last instead of 1..last-1.
	IncludeLastPage bool `yaml:"include_last_page"`
	// KeepZeroValues keeps numeric zero and false values during extraction.
	KeepZeroValues bool `yaml:"keep_zero_values"`

	Timeout       time.Duration `yaml:"timeout"`
	PageCacheSize int           `yaml:"page_cache_size"`
	UserAgent     string        `yaml:"user_agent"`
	Verbose       bool          `yaml:"verbose"`
	MetricsAddr   string        `yaml:"metrics_addr"`
}

// DefaultConfig returns the defaults for the deals endpoint.
func DefaultConfig() *Config {
	fields := make([]string, len(FieldNames))
	copy(fields, FieldNames)

	return &Config{
		Query:           DefaultQuery(),
		BaseURL:         "https://www.newegg.com/store/api/GetShopAllDeals",
		ImageBaseURL:    "https://c1.neweggimages.com/ProductImageCompressAll300/",
		CSVFields:       fields,
		NoOfProducts:    100,
		FileName:        "product_extract",
		OutputDir:       "data_files",
		OutputFormat:    "csv",
		IncludeLastPage: false,
		KeepZeroValues:  false,
		Timeout:         10 * time.Second,
		PageCacheSize:   0,
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:         false,
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

	if c.ImageBaseURL == "" {
		return fmt.Errorf("image base URL cannot be empty")
	}
	if c.Query.PageSize < 0 {
		return fmt.Errorf("page size cannot be negative")
	}
	if c.NoOfProducts < 0 {
		return fmt.Errorf("number of products cannot be negative")
	}
	if len(c.CSVFields) == 0 {
		return fmt.Errorf("csv fields cannot be empty")
	}
	if c.FileName == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if strings.ContainsAny(c.FileName, `/\`) {
		return fmt.Errorf("file name %q must not contain path separators", c.FileName)
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PageCacheSize < 0 {
		return fmt.Errorf("page cache size cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// OutputPath returns the primary output file for the configured format.
func (c *Config) OutputPath() string {
	ext := ".csv"
	if c.OutputFormat == "json" {
		ext = ".jsonl"
	}
	return filepath.Join(c.OutputDir, c.FileName+ext)
}
