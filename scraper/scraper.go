package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-deals/config"
	"github.com/aluiziolira/go-scrape-deals/models"
	"github.com/aluiziolira/go-scrape-deals/pipeline"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const captureKey = "capture"

// Client fetches listing pages from the search endpoint one at a time.
type Client struct {
	cfg       *config.Config
	endpoint  *url.URL
	collector *colly.Collector
	cache     *lru.Cache[string, []models.RawItem]
	Metrics   *Metrics

	requestCount int64
}

// pageCapture carries one page's response out of the collector callbacks.
type pageCapture struct {
	statusCode int
	items      []models.RawItem
	err        error
}

// NewClient builds a client configured from cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	endpoint, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if endpoint.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(endpoint.Hostname()),
		colly.AllowURLRevisit(),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	c := &Client{
		cfg:       cfg,
		endpoint:  endpoint,
		collector: collector,
		Metrics:   NewMetrics(),
	}
	if cfg.PageCacheSize > 0 {
		cache, err := lru.New[string, []models.RawItem](cfg.PageCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create page cache: %w", err)
		}
		c.cache = cache
	}
	c.configureHandlers()
	return c, nil
}

// LastPage returns ceil(target/pageSize). It reports false when either value
// is not positive, in which case no pages should be requested.
func LastPage(target, pageSize int) (int, bool) {
	if target <= 0 || pageSize <= 0 {
		return 0, false
	}
	return (target + pageSize - 1) / pageSize, true
}

// LastPage computes the last page for the configured product count.
func (c *Client) LastPage() (int, bool) {
	return LastPage(c.cfg.NoOfProducts, c.cfg.Query.PageSize)
}

// Fetch requests a single page. Failures are logged and reported in the
// result; they never abort the caller.
func (c *Client) Fetch(ctx context.Context, q config.QueryParams) models.FetchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	target := c.requestURL(q)
	result := models.FetchResult{PageIndex: q.PageIndex, URL: target}

	if err := ctx.Err(); err != nil {
		return c.failed(result, err)
	}

	if c.cache != nil {
		if items, ok := c.cache.Get(target); ok {
			c.Metrics.IncCacheHit()
			slog.Debug("page cache hit", slog.Int("page", q.PageIndex), slog.String("url", target))
			result.Cached = true
			return c.succeeded(result, items)
		}
	}

	capture := &pageCapture{}
	cctx := colly.NewContext()
	cctx.Put(captureKey, capture)

	err := c.collector.Request(http.MethodGet, target, nil, cctx, nil)
	if err != nil {
		return c.failed(result, classifyError(err, capture.statusCode))
	}
	if capture.err != nil {
		return c.failed(result, capture.err)
	}
	if capture.items == nil {
		return c.failed(result, ErrMissingItemList)
	}

	if c.cache != nil {
		c.cache.Add(target, capture.items)
	}
	return c.succeeded(result, capture.items)
}

// GetProducts requests pages 1 through last-1 (or last, with
// IncludeLastPage) and concatenates their items. The first failed page stops
// the loop; items gathered before it are kept.
func (c *Client) GetProducts(ctx context.Context) *models.ScrapeResult {
	if ctx == nil {
		ctx = context.Background()
	}
	result := &models.ScrapeResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	startRequests := atomic.LoadInt64(&c.requestCount)
	defer func() {
		result.RequestCount = int(atomic.LoadInt64(&c.requestCount) - startRequests)
		result.EndTime = time.Now()
	}()

	lastPage, ok := c.LastPage()
	if !ok {
		slog.Info("pagination skipped",
			slog.Int("products", c.cfg.NoOfProducts),
			slog.Int("page_size", c.cfg.Query.PageSize),
		)
		return result
	}
	result.LastPage = lastPage

	final := lastPage - 1
	if c.cfg.IncludeLastPage {
		final = lastPage
	}

	for page := 1; page <= final; page++ {
		fetched := c.Fetch(ctx, c.cfg.Query.WithPage(page))
		summary := fetched
		summary.Items = nil
		result.Pages = append(result.Pages, summary)

		if fetched.Status == models.FetchFailed {
			result.ErrorCount++
			result.ErrorsByType[fetched.ErrorType]++
			result.FailedURLs = append(result.FailedURLs, fetched.URL)
			slog.Warn("pagination stopped",
				slog.Int("page", page),
				slog.Int("last_page", final),
				slog.Int("items", len(result.Items)),
				slog.String("category", fetched.ErrorType),
			)
			break
		}

		result.PageCount++
		result.Items = append(result.Items, fetched.Items...)
	}

	slog.Info("pagination finished",
		slog.Int("pages", result.PageCount),
		slog.Int("items", len(result.Items)),
		slog.String("status", string(result.Status())),
	)
	return result
}

// Run fetches all pages and writes the extracted products through p. The
// returned error reports write failures only; fetch failures are recorded in
// the result.
func (c *Client) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScrapeResult, error) {
	result := c.GetProducts(ctx)

	written, err := p.Process(result.Items)
	result.TotalCount = written
	result.EndTime = time.Now()
	if err != nil {
		return result, fmt.Errorf("process products: %w", err)
	}
	return result, nil
}

// ExtractSaveProducts fetches, extracts, and saves products to
// cfg.OutputPath() in one call. The output file always gets its header, so
// a run with no items still produces a file.
func (c *Client) ExtractSaveProducts(ctx context.Context) (*models.ScrapeResult, error) {
	result := c.GetProducts(ctx)
	path := c.cfg.OutputPath()

	writer, err := pipeline.NewWriter(c.cfg.OutputFormat, path, c.cfg.CSVFields)
	if err != nil {
		slog.Error("save products failed", slog.String("path", path), slog.Any("error", err))
		return result, fmt.Errorf("open output: %w", err)
	}

	p := pipeline.NewPipeline(writer, c.cfg)
	written, processErr := p.Process(result.Items)
	closeErr := p.Close()
	result.TotalCount = written
	result.EndTime = time.Now()

	if err := errors.Join(processErr, closeErr); err != nil {
		slog.Error("save products failed", slog.String("path", path), slog.Any("error", err))
		return result, fmt.Errorf("save products: %w", err)
	}

	slog.Info("products saved",
		slog.String("path", path),
		slog.Int("count", written),
	)
	return result, nil
}

func (c *Client) configureHandlers() {
	c.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		current := atomic.AddInt64(&c.requestCount, 1)
		c.Metrics.IncRequest("started")
		slog.Debug("search request",
			slog.Int64("requests", current),
			slog.String("url", r.URL.String()),
		)
	})

	c.collector.OnResponse(func(r *colly.Response) {
		c.observe(r)
		capture, ok := r.Ctx.GetAny(captureKey).(*pageCapture)
		if !ok {
			return
		}
		capture.statusCode = r.StatusCode
		capture.items, capture.err = decodeItemList(r.Body)
	})

	c.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		c.observe(r)
		capture, ok := r.Ctx.GetAny(captureKey).(*pageCapture)
		if !ok {
			return
		}
		capture.statusCode = r.StatusCode
	})
}

func (c *Client) observe(r *colly.Response) {
	if r.Request == nil {
		return
	}
	if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
		c.Metrics.ObserveDuration(time.Since(start))
	}
}

func (c *Client) requestURL(q config.QueryParams) string {
	u := *c.endpoint
	values := u.Query()
	for key, vals := range q.Values() {
		values[key] = vals
	}
	u.RawQuery = values.Encode()
	return u.String()
}

func (c *Client) succeeded(result models.FetchResult, items []models.RawItem) models.FetchResult {
	result.Items = items
	result.Status = models.FetchOK
	if len(items) == 0 {
		result.Status = models.FetchEmpty
	}
	c.Metrics.IncPage(result.Status.String())
	c.Metrics.AddItems(len(items))
	return result
}

func (c *Client) failed(result models.FetchResult, err error) models.FetchResult {
	category := errorTypeLabel(err)
	result.Status = models.FetchFailed
	result.ErrorType = category
	result.Err = err

	slog.Error("call search api failed",
		slog.Int("page", result.PageIndex),
		slog.String("url", result.URL),
		slog.String("category", category),
		slog.Any("error", err),
	)
	c.Metrics.IncPage(result.Status.String())
	c.Metrics.IncError(category)
	return result
}

func decodeItemList(body []byte) ([]models.RawItem, error) {
	var payload struct {
		ItemList *[]models.RawItem `json:"ItemList"`
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, ErrDecode{Err: err}
	}
	if payload.ItemList == nil {
		return nil, ErrMissingItemList
	}
	if *payload.ItemList == nil {
		return []models.RawItem{}, nil
	}
	return *payload.ItemList, nil
}
