package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloakroom-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(action string) models.AuditEntry {
	photo := "/uploads/a.jpg"
	return models.AuditEntry{
		Timestamp:   time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		Admin:       "admin",
		Action:      action,
		Filters:     models.RecordFilter{Statuses: []models.RecordStatus{models.StatusReturned}},
		DeletedRows: 1,
		PerRecord: []models.RecordUnlinkReport{{
			ID:              7,
			PersonPhotoPath: &photo,
			PersonUnlink:    models.UnlinkOutcome{Path: photo, Success: false, Reason: "ENOENT"},
		}},
		IP: "127.0.0.1",
	}
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestFileSink_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Append(context.Background(), sampleEntry("delete_by_filter")))
	require.NoError(t, sink.Append(context.Background(), sampleEntry("delete_permanent_returned")))

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	first := lines[0]
	assert.Equal(t, "admin", first["admin"])
	assert.Equal(t, "delete_by_filter", first["action"])
	assert.EqualValues(t, 1, first["deletedRows"])
	assert.Equal(t, "127.0.0.1", first["ip"])
	assert.Contains(t, first, "timestamp")
	assert.Contains(t, first, "filters")

	perRecord := first["perRecord"].([]any)
	rec := perRecord[0].(map[string]any)
	assert.EqualValues(t, 7, rec["id"])
	assert.Equal(t, "/uploads/a.jpg", rec["person_photo_path"])
	unlink := rec["person_photo_path_unlink"].(map[string]any)
	assert.Equal(t, false, unlink["success"])
	assert.Equal(t, "ENOENT", unlink["reason"])
}

func TestFileSink_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sink.Append(context.Background(), sampleEntry("delete_by_filter")))
		}()
	}
	wg.Wait()

	assert.Len(t, readLines(t, path), 20)
}

type stubSink struct {
	err     error
	entries []models.AuditEntry
}

func (s *stubSink) Append(_ context.Context, e models.AuditEntry) error {
	s.entries = append(s.entries, e)
	return s.err
}

func (s *stubSink) Insert(ctx context.Context, e models.AuditEntry) error {
	return s.Append(ctx, e)
}

func TestMultiSink_WritesAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("disk full")
	ok := &stubSink{}
	bad := &stubSink{err: boom}

	err := MultiSink{bad, ok}.Append(context.Background(), sampleEntry("x"))

	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.entries, 1)
	assert.Len(t, bad.entries, 1)
}

func TestDBSink_DelegatesToRepository(t *testing.T) {
	repo := &stubSink{}
	require.NoError(t, NewDBSink(repo).Append(context.Background(), sampleEntry("x")))
	assert.Len(t, repo.entries, 1)
}
