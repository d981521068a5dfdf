package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-deals/config"
	"github.com/aluiziolira/go-scrape-deals/models"
	"github.com/aluiziolira/go-scrape-deals/pipeline"
	"github.com/aluiziolira/go-scrape-deals/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	configPath := fs.String("config", "", "Optional YAML config file")
	products := fs.Int("products", -1, "Number of products to request (default from config)")
	pageSize := fs.Int("page-size", -1, "Items per page (default from config)")
	fileName := fs.String("file", "", "Output file name without extension")
	outputDir := fs.String("output-dir", "", "Output directory")
	outputFormat := fs.String("format", "", "Output format: csv, json, or dual")
	baseURL := fs.String("base-url", "", "Search endpoint URL")
	includeLast := fs.Bool("include-last-page", false, "Also request the computed last page")
	keepZero := fs.Bool("keep-zero", false, "Keep zero prices and ratings instead of omitting them")
	metricsAddr := fs.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	strict := fs.Bool("strict", false, "Exit non-zero when any page request failed")
	verbose := fs.Bool("v", false, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	applyFlags(cfg, fs, flagValues{
		products:     *products,
		pageSize:     *pageSize,
		fileName:     *fileName,
		outputDir:    *outputDir,
		outputFormat: *outputFormat,
		baseURL:      *baseURL,
		includeLast:  *includeLast,
		keepZero:     *keepZero,
		metricsAddr:  *metricsAddr,
		verbose:      *verbose,
	})

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	lastPage, _ := scraper.LastPage(cfg.NoOfProducts, cfg.Query.PageSize)
	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("products", cfg.NoOfProducts),
		slog.Int("page_size", cfg.Query.PageSize),
		slog.Int("last_page", lastPage),
	)

	client, err := scraper.NewClient(cfg)
	if err != nil {
		slog.Error("initialising client", slog.Any("error", err))
		return 1
	}

	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputPath(), cfg.CSVFields)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		return 1
	}
	p := pipeline.NewPipeline(writer, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(client.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}
	defer func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}()

	result, runErr := client.Run(ctx, p)
	closeErr := p.Close()
	if err := errors.Join(runErr, closeErr); err != nil {
		slog.Error("saving products failed", slog.Any("error", err))
		return 1
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		return 1
	}

	printSummary(result, cfg.OutputPath(), p.GetMetrics())

	if *strict && result.ErrorCount > 0 {
		return 1
	}
	return 0
}

type flagValues struct {
	products     int
	pageSize     int
	fileName     string
	outputDir    string
	outputFormat string
	baseURL      string
	includeLast  bool
	keepZero     bool
	metricsAddr  string
	verbose      bool
}

// loadConfig starts from the YAML file when given, then applies SCRAPER_*
// environment overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if value, ok, err := config.EnvInt("SCRAPER_PRODUCTS"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_PRODUCTS: %w", err)
	} else if ok {
		cfg.NoOfProducts = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_PAGE_SIZE"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_PAGE_SIZE: %w", err)
	} else if ok {
		cfg.Query.PageSize = value
	}
	if value, ok := config.EnvString("SCRAPER_OUTPUT_DIR"); ok {
		cfg.OutputDir = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	return cfg, nil
}

// applyFlags overrides cfg with flags that were set explicitly.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, v flagValues) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "products":
			cfg.NoOfProducts = v.products
		case "page-size":
			cfg.Query.PageSize = v.pageSize
		case "file":
			cfg.FileName = v.fileName
		case "output-dir":
			cfg.OutputDir = v.outputDir
		case "format":
			cfg.OutputFormat = strings.ToLower(v.outputFormat)
		case "base-url":
			cfg.BaseURL = v.baseURL
		case "include-last-page":
			cfg.IncludeLastPage = v.includeLast
		case "keep-zero":
			cfg.KeepZeroValues = v.keepZero
		case "metrics-addr":
			cfg.MetricsAddr = v.metricsAddr
		case "v":
			cfg.Verbose = v.verbose
		}
	})
}

func printSummary(result *models.ScrapeResult, outputFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	fmt.Printf("  Status:        %s\n", result.Status())
	fmt.Printf("  Products:      %d\n", result.TotalCount)
	fmt.Printf("  Pages:         %d of %d\n", result.PageCount, len(result.Pages))
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if len(result.FailedURLs) > 0 {
		fmt.Printf("  Failed URLs:   %v\n", result.FailedURLs)
	}
	if missing, ok := metrics["missing_fields"].(map[string]int); ok && len(missing) > 0 {
		fmt.Printf("  Missing:       %v\n", missing)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
