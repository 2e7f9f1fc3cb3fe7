package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/mkueh/citibike-analyse/internal/models"
)

// Sink receives per-topic JSON messages.
type Sink interface {
	Write(topic string, msg []byte) error
	Close() error
}

// NewSink selects the file sink for the configured format, rooted at
// <output_path>/<output_folder>.
func NewSink(cfg *models.Config) (Sink, error) {
	if cfg.OutputPath == "" {
		return &ConsoleSink{}, nil
	}
	base := cfg.OutputDir()
	switch cfg.OutputFormat {
	case "csv":
		return NewCSVSink(base), nil
	case "json":
		return NewJSONSink(base), nil
	case "parquet":
		return NewParquetSink(base), nil
	case "console":
		return &ConsoleSink{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", cfg.OutputFormat)
	}
}

type ConsoleSink struct{}

func (c *ConsoleSink) Write(topic string, msg []byte) error {
	_, err := fmt.Fprintf(os.Stdout, "[%s] %s\n", topic, msg)
	return err
}

func (c *ConsoleSink) Close() error { return nil }

// CSVSink writes one CSV file per topic; the header comes from the first
// message's sorted keys.
type CSVSink struct {
	base    string
	writers map[string]*csv.Writer
	files   map[string]*os.File
	headers map[string][]string
}

func NewCSVSink(base string) *CSVSink {
	return &CSVSink{
		base:    base,
		writers: make(map[string]*csv.Writer),
		files:   make(map[string]*os.File),
		headers: make(map[string][]string),
	}
}

func (c *CSVSink) Write(topic string, msg []byte) error {
	var event map[string]interface{}
	if err := json.Unmarshal(msg, &event); err != nil {
		return err
	}

	w, ok := c.writers[topic]
	if !ok {
		if err := os.MkdirAll(c.base, 0o755); err != nil {
			return err
		}
		file, err := os.Create(filepath.Join(c.base, topic+".csv"))
		if err != nil {
			return err
		}
		w = csv.NewWriter(file)
		c.files[topic] = file
		c.writers[topic] = w

		headers := make([]string, 0, len(event))
		for key := range event {
			headers = append(headers, key)
		}
		sort.Strings(headers)
		c.headers[topic] = headers
		if err := w.Write(headers); err != nil {
			return err
		}
	}

	row := make([]string, len(c.headers[topic]))
	for i, header := range c.headers[topic] {
		if value, ok := event[header]; ok {
			row[i] = fmt.Sprintf("%v", value)
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (c *CSVSink) Close() error {
	for topic, w := range c.writers {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		if err := c.files[topic].Close(); err != nil {
			return err
		}
	}
	return nil
}

// JSONSink writes one JSON-lines file per topic.
type JSONSink struct {
	base  string
	files map[string]*os.File
}

func NewJSONSink(base string) *JSONSink {
	return &JSONSink{base: base, files: make(map[string]*os.File)}
}

func (j *JSONSink) Write(topic string, msg []byte) error {
	file, ok := j.files[topic]
	if !ok {
		if err := os.MkdirAll(j.base, 0o755); err != nil {
			return err
		}
		var err error
		file, err = os.Create(filepath.Join(j.base, topic+".json"))
		if err != nil {
			return err
		}
		j.files[topic] = file
	}
	if _, err := file.Write(msg); err != nil {
		return err
	}
	_, err := file.WriteString("\n")
	return err
}

func (j *JSONSink) Close() error {
	for _, file := range j.files {
		if err := file.Close(); err != nil {
			return err
		}
	}
	return nil
}

// ParquetSink writes one parquet file per topic using the topic's row schema.
type ParquetSink struct {
	base    string
	writers map[string]*writer.ParquetWriter
	files   map[string]source.ParquetFile
}

func NewParquetSink(base string) *ParquetSink {
	return &ParquetSink{
		base:    base,
		writers: make(map[string]*writer.ParquetWriter),
		files:   make(map[string]source.ParquetFile),
	}
}

func schemaFor(topic string) (interface{}, error) {
	switch topic {
	case TopicEnrichedClusters:
		return new(ClusterRow), nil
	case TopicRouteSummaries:
		return new(RouteRow), nil
	default:
		return nil, fmt.Errorf("no parquet schema for topic %s", topic)
	}
}

func (p *ParquetSink) Write(topic string, msg []byte) error {
	pw, ok := p.writers[topic]
	if !ok {
		if err := os.MkdirAll(p.base, 0o755); err != nil {
			return err
		}
		fw, err := local.NewLocalFileWriter(filepath.Join(p.base, topic+".parquet"))
		if err != nil {
			return err
		}
		sc, err := schemaFor(topic)
		if err != nil {
			return err
		}
		pw, err = writer.NewParquetWriter(fw, sc, 4)
		if err != nil {
			return fmt.Errorf("failed to create ParquetWriter: %w", err)
		}
		p.writers[topic] = pw
		p.files[topic] = fw
	}

	row, err := schemaFor(topic)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(msg, row); err != nil {
		return err
	}
	if err := pw.Write(row); err != nil {
		return fmt.Errorf("failed to write parquet row: %w", err)
	}
	return nil
}

func (p *ParquetSink) Close() error {
	var lastErr error
	for topic, pw := range p.writers {
		if err := pw.WriteStop(); err != nil {
			lastErr = err
		}
		if err := p.files[topic].Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
