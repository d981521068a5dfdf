package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SCRAPER_PRODUCTS", "240")
	t.Setenv("SCRAPER_OUTPUT_DIR", "/tmp/deals")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.NoOfProducts != 240 || cfg.OutputDir != "/tmp/deals" {
		t.Fatalf("env overrides not applied: products=%d dir=%q", cfg.NoOfProducts, cfg.OutputDir)
	}
}

func TestLoadConfigInvalidEnv(t *testing.T) {
	t.Setenv("SCRAPER_PAGE_SIZE", "sixty")
	if _, err := loadConfig(""); err == nil {
		t.Fatalf("expected error for invalid SCRAPER_PAGE_SIZE")
	}
}

func TestApplyFlagsOnlyExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("no_of_products: 300\nfile_name: from_file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("products", -1, "")
	fs.String("format", "", "")
	if err := fs.Parse([]string{"-format", "DUAL"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	applyFlags(cfg, fs, flagValues{products: -1, outputFormat: "DUAL"})

	if cfg.NoOfProducts != 300 {
		t.Fatalf("unset flag overrode file value: %d", cfg.NoOfProducts)
	}
	if cfg.OutputFormat != "dual" || cfg.FileName != "from_file" {
		t.Fatalf("format=%q file=%q", cfg.OutputFormat, cfg.FileName)
	}
}
