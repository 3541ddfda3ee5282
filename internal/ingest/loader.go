package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	rag_http "rag-assistant/internal/adapter/rag_http"
)

const (
	DefaultBatchSize = 32
	maxLineSize      = 4 * 1024 * 1024
)

// DocumentSink receives one batch of documents. *APIClient satisfies it.
type DocumentSink interface {
	AddDocuments(ctx context.Context, docs []rag_http.DocumentInput) (*rag_http.AddDocumentsResponse, error)
}

// Config controls a bulk load run.
type Config struct {
	BatchSize int
	DryRun    bool
}

// Result summarises a run, including lines already processed by earlier runs.
type Result struct {
	Lines        int
	Inserted     int64
	Skipped      int64
	InvalidLines int
}

// Loader streams a JSONL file of documents to the server in batches and
// records progress in a cursor so an interrupted run resumes where it stopped.
type Loader struct {
	sink    DocumentSink
	cursors *CursorManager
	cfg     Config
	logger  *slog.Logger
}

func NewLoader(sink DocumentSink, cursors *CursorManager, cfg Config, logger *slog.Logger) *Loader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Loader{sink: sink, cursors: cursors, cfg: cfg, logger: logger}
}

// Run processes path from the saved cursor position. Each line is either a
// JSON object with title, content and sourceLocation, or plain text used as
// the content.
func (l *Loader) Run(ctx context.Context, path string) (*Result, error) {
	if err := l.cursors.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := l.cursors.Unlock(); err != nil {
			l.logger.Warn("cursor_unlock_failed", slog.String("error", err.Error()))
		}
	}()

	source, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}

	cursor, err := l.cursors.Load()
	if err != nil {
		return nil, err
	}
	if !cursor.IsEmpty() && cursor.Source != source {
		return nil, fmt.Errorf("cursor belongs to %s; reset it before loading %s", cursor.Source, source)
	}
	cursor.Source = source

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = f.Close() }()

	l.logger.Info("ingest_started",
		slog.String("source", source),
		slog.Int("resume_line", cursor.Line),
		slog.Int("batch_size", l.cfg.BatchSize),
		slog.Bool("dry_run", l.cfg.DryRun),
	)

	result := &Result{Lines: cursor.Line, Inserted: cursor.InsertedCount, Skipped: cursor.SkippedCount}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	batch := make([]rag_http.DocumentInput, 0, l.cfg.BatchSize)
	flush := func() error {
		if len(batch) > 0 && !l.cfg.DryRun {
			resp, err := l.sink.AddDocuments(ctx, batch)
			if err != nil {
				return fmt.Errorf("batch ending at line %d: %w", line, err)
			}
			result.Inserted += resp.Inserted
			result.Skipped += resp.Skipped
		}
		batch = batch[:0]
		result.Lines = line

		if l.cfg.DryRun {
			return nil
		}
		cursor.Line = line
		cursor.InsertedCount = result.Inserted
		cursor.SkippedCount = result.Skipped
		if err := l.cursors.Save(cursor); err != nil {
			return err
		}
		l.logger.Info("ingest_batch_committed",
			slog.Int("line", line),
			slog.Int64("inserted_total", result.Inserted),
			slog.Int64("skipped_total", result.Skipped),
		)
		return nil
	}

	for scanner.Scan() {
		line++
		if line <= cursor.Line {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		doc, ok := parseLine(scanner.Text())
		if !ok {
			result.InvalidLines++
			l.logger.Warn("ingest_line_skipped", slog.Int("line", line))
			continue
		}
		batch = append(batch, doc)
		if len(batch) >= l.cfg.BatchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read source: %w", err)
	}
	if err := flush(); err != nil {
		return result, err
	}

	l.logger.Info("ingest_completed",
		slog.Int("lines", result.Lines),
		slog.Int64("inserted", result.Inserted),
		slog.Int64("skipped", result.Skipped),
		slog.Int("invalid_lines", result.InvalidLines),
	)
	return result, nil
}

// parseLine reports false for blank lines and JSON objects without content.
func parseLine(raw string) (rag_http.DocumentInput, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return rag_http.DocumentInput{}, false
	}
	if !strings.HasPrefix(text, "{") {
		return rag_http.DocumentInput{Content: text}, true
	}

	var doc rag_http.DocumentInput
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&doc); err != nil {
		return rag_http.DocumentInput{}, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return rag_http.DocumentInput{}, false
	}
	if strings.TrimSpace(doc.Content) == "" {
		return rag_http.DocumentInput{}, false
	}
	return doc, true
}
