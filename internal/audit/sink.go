package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cloakroom-backend/internal/models"
)

// Sink appends audit entries. Entries are never updated or removed.
type Sink interface {
	Append(ctx context.Context, entry models.AuditEntry) error
}

// FileSink writes one JSON object per line to an append-only file.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}
	return &FileSink{path: path}, nil
}

func (s *FileSink) Append(_ context.Context, entry models.AuditEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write audit log: %w", err)
	}
	return f.Close()
}

type entryWriter interface {
	Insert(ctx context.Context, entry models.AuditEntry) error
}

// DBSink stores entries in the audit_entries table.
type DBSink struct {
	repo entryWriter
}

func NewDBSink(repo entryWriter) *DBSink {
	return &DBSink{repo: repo}
}

func (s *DBSink) Append(ctx context.Context, entry models.AuditEntry) error {
	return s.repo.Insert(ctx, entry)
}

// MultiSink appends to every sink and reports all failures together.
type MultiSink []Sink

func (m MultiSink) Append(ctx context.Context, entry models.AuditEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
