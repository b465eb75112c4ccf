// Package filedb stores the inventory document as a pretty-printed JSON file.
package filedb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/abgdnv/inventory/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPath is the document location used when none is configured.
const DefaultPath = "inventory.json"

var tracer = otel.Tracer("github.com/abgdnv/inventory/internal/store/filedb")

// FileDB implements store.Backend on top of a single JSON file.
type FileDB struct {
	path   string
	logger *slog.Logger
}

// New returns a file backend writing to path, creating parent directories as needed.
func New(path string, logger *slog.Logger) (*FileDB, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return &FileDB{path: path, logger: logger}, nil
}

// Load reads the document. A missing file yields a nil document.
func (db *FileDB) Load(ctx context.Context) (doc *store.Document, opErr error) {
	ctx, span := db.startSpan(ctx, "READ")
	defer endSpan(span, &opErr)

	data, err := os.ReadFile(db.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			db.logger.InfoContext(ctx, "FileDB: data file not found", slog.String("file_path", db.path))
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", db.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	doc, err = store.UnmarshalDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", db.path, err)
	}
	db.logger.DebugContext(ctx, "FileDB: data read", slog.String("file_path", db.path), slog.Int("products", len(doc.Products)))
	return doc, nil
}

// Save writes the document to a temp file in the same directory and renames it into place.
func (db *FileDB) Save(ctx context.Context, doc *store.Document) (opErr error) {
	ctx, span := db.startSpan(ctx, "WRITE")
	defer endSpan(span, &opErr)

	data, err := store.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(db.path), filepath.Base(db.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if opErr != nil {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, db.path); err != nil {
		return fmt.Errorf("replace %s: %w", db.path, err)
	}
	db.logger.DebugContext(ctx, "FileDB: data written", slog.String("file_path", db.path))
	return nil
}

// Close is a no-op; files are closed after every operation.
func (db *FileDB) Close() error { return nil }

// Path returns the document location.
func (db *FileDB) Path() string { return db.path }

func (db *FileDB) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "filedb."+op, trace.WithAttributes(
		attribute.String("db.system.name", "file"),
		attribute.String("db.operation.name", op),
		attribute.String("file.path", db.path),
	))
}

func endSpan(span trace.Span, errp *error) {
	if err := *errp; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
