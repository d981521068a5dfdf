package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-deals/models"
)

// CSVWriter writes products to CSV under a fixed header.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	fields []string
	mu     sync.Mutex
	closed bool
}

// NewCSVWriter creates or truncates filename and writes the header row.
func NewCSVWriter(filename string, fields []string) (*CSVWriter, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("csv header cannot be empty")
	}
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(fields); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	header := make([]string, len(fields))
	copy(header, fields)
	return &CSVWriter{
		file:   f,
		writer: writer,
		fields: header,
	}, nil
}

// Write appends products as rows. Fields outside the header are dropped.
func (cw *CSVWriter) Write(products []models.Product) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return os.ErrClosed
	}
	for _, product := range products {
		if err := cw.writer.Write(product.Row(cw.fields)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle. Repeated calls are no-ops.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return nil
	}
	cw.closed = true
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the header made it to disk.
func (cw *CSVWriter) Validate() error {
	info, err := os.Stat(cw.file.Name())
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
	closed  bool
	count   int
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends products in JSONL format. Only present fields are encoded.
func (jw *JSONWriter) Write(products []models.Product) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return os.ErrClosed
	}
	for _, product := range products {
		if err := jw.encoder.Encode(product); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.count++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return nil
	}
	jw.closed = true
	if err := jw.writer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate succeeds for an empty run; otherwise the file must have data.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	count := jw.count
	jw.mu.Unlock()
	if count == 0 {
		return nil
	}

	info, err := os.Stat(jw.file.Name())
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

// NewWriter builds the writer for format (csv, json, or dual). For dual
// output the JSON file sits next to filename with a .jsonl extension.
func NewWriter(format, filename string, fields []string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(filename)
	case "csv":
		return NewCSVWriter(filename, fields)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return NewDualWriter(filename, jsonFilename, fields)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
