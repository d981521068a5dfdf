package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-scrape-deals/config"
	"github.com/aluiziolira/go-scrape-deals/models"
	"github.com/aluiziolira/go-scrape-deals/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after Close.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(products []models.Product) error
	Close() error
	Validate() error
}

// Pipeline extracts product records from raw items and hands them to the
// writer. It runs synchronously in the caller's goroutine.
type Pipeline struct {
	writer OutputWriter
	opts   parser.Options
	fields []string

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error
}

// NewPipeline builds a pipeline that writes through writer.
func NewPipeline(writer OutputWriter, cfg *config.Config) *Pipeline {
	return &Pipeline{
		writer: writer,
		opts: parser.Options{
			ImageBaseURL:   cfg.ImageBaseURL,
			KeepZeroValues: cfg.KeepZeroValues,
		},
		fields:  cfg.CSVFields,
		metrics: newMetrics(),
	}
}

// Process extracts items and writes the resulting records in one batch.
// It returns the number of records written.
func (p *Pipeline) Process(items []models.RawItem) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPipelineClosed
	}
	if p.err != nil {
		return 0, p.err
	}

	products := parser.ExtractProducts(items, p.opts)
	for _, product := range products {
		for _, field := range parser.MissingFields(product, p.fields) {
			p.metrics.addMissing(field)
		}
	}

	if len(products) > 0 {
		if err := p.writer.Write(products); err != nil {
			p.err = fmt.Errorf("write products: %w", err)
			return 0, p.err
		}
	}

	p.metrics.addProcessed(len(products))
	slog.Info("products written", slog.Int("count", len(products)))
	return len(products), nil
}

// Close closes the writer and prevents more submissions. It returns the
// first processing or close error.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.err
	}
	p.closed = true

	if err := p.writer.Close(); err != nil && p.err == nil {
		p.err = fmt.Errorf("close writer: %w", err)
	}
	return p.err
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

type metrics struct {
	mu        sync.Mutex
	processed int64
	missing   map[string]int
}

func newMetrics() metrics {
	return metrics{
		missing: make(map[string]int),
	}
}

func (m *metrics) addProcessed(n int) {
	m.mu.Lock()
	m.processed += int64(n)
	m.mu.Unlock()
}

func (m *metrics) addMissing(field string) {
	m.mu.Lock()
	m.missing[field]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyMissing := make(map[string]int, len(m.missing))
	for k, v := range m.missing {
		copyMissing[k] = v
	}

	return map[string]interface{}{
		"processed_products": m.processed,
		"missing_fields":     copyMissing,
	}
}
