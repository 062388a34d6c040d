package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/repositories"
	"cloakroom-backend/internal/storage"
)

var testLocations = []string{"gents location", "ladies location"}

type memState struct {
	nextID  int64
	records map[int64]models.Record
	items   map[int64]models.Item
	events  map[int64]models.Event
	users   map[string]models.User
}

func (st *memState) id() int64 {
	st.nextID++
	return st.nextID
}

func (st *memState) clone() *memState {
	c := &memState{
		nextID:  st.nextID,
		records: make(map[int64]models.Record, len(st.records)),
		items:   make(map[int64]models.Item, len(st.items)),
		events:  make(map[int64]models.Event, len(st.events)),
		users:   make(map[string]models.User, len(st.users)),
	}
	for k, v := range st.records {
		c.records[k] = v
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	for k, v := range st.events {
		c.events[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	return c
}

// memStore is an in-memory Store. A transaction holds the store mutex for its
// whole duration and works on a copy that replaces the state only on success,
// which gives serializable semantics.
type memStore struct {
	mu    sync.Mutex
	state *memState
	reads int
	fail  map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			records: map[int64]models.Record{},
			items:   map[int64]models.Item{},
			events:  map[int64]models.Event{},
			users:   map[string]models.User{},
		},
		fail: map[string]error{},
	}
}

func (s *memStore) Records() RecordRepo { return memRecords{memRepos{s: s}} }
func (s *memStore) Events() EventRepo   { return memEvents{memRepos{s: s}} }
func (s *memStore) Users() UserRepo     { return memUsers{memRepos{s: s}} }

func (s *memStore) InTx(ctx context.Context, fn func(r Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(memRepos{s: s, tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx
	return nil
}

func (s *memStore) snapshot() *memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *memStore) failOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = err
}

func (s *memStore) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// seedRecord inserts a record and its items outside any service.
func (s *memStore) seedRecord(rec models.Record, items ...models.Item) models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.state.id()
	if rec.Status == models.StatusReturned && rec.ReturnedAt == nil {
		at := rec.DepositedAt.Add(time.Hour)
		rec.ReturnedAt = &at
	}
	s.state.records[rec.ID] = rec
	for _, it := range items {
		it.ID = s.state.id()
		it.RecordID = rec.ID
		if it.ItemCount == 0 {
			it.ItemCount = 1
		}
		s.state.items[it.ID] = it
	}
	return rec
}

func (s *memStore) seedEvent(name, location string, status models.EventStatus) models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := models.Event{ID: s.state.id(), Name: name, Location: location, Status: status, CreatedAt: time.Now()}
	s.state.events[e.ID] = e
	return e
}

type memRepos struct {
	s  *memStore
	tx *memState
}

func (r memRepos) Records() RecordRepo { return memRecords{r} }
func (r memRepos) Events() EventRepo   { return memEvents{r} }
func (r memRepos) Users() UserRepo     { return memUsers{r} }

func (r memRepos) with(method string, fn func(st *memState) error) error {
	if r.tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	r.s.reads++
	if err := r.s.fail[method]; err != nil {
		return err
	}
	if r.tx != nil {
		return fn(r.tx)
	}
	return fn(r.s.state)
}

type memRecords struct{ memRepos }

func matchesKey(rec models.Record, key models.TokenKey) bool {
	return rec.TokenNumber == key.TokenNumber && rec.Location == key.Location && rec.EventName == key.EventName
}

func (r memRecords) LockDeposited(_ context.Context, key models.TokenKey, from, to *time.Time) (*models.Record, error) {
	var out *models.Record
	err := r.with("LockDeposited", func(st *memState) error {
		for _, rec := range st.records {
			if !matchesKey(rec, key) || rec.Status != models.StatusDeposited {
				continue
			}
			if from != nil && rec.DepositedAt.Before(*from) {
				continue
			}
			if to != nil && rec.DepositedAt.After(*to) {
				continue
			}
			rec := rec
			out = &rec
			return nil
		}
		return repositories.ErrNotFound
	})
	return out, err
}

func (r memRecords) Insert(_ context.Context, rec *models.Record) (int64, error) {
	err := r.with("Insert", func(st *memState) error {
		key := models.TokenKey{TokenNumber: rec.TokenNumber, Location: rec.Location, EventName: rec.EventName}
		for _, other := range st.records {
			if matchesKey(other, key) && other.Status == models.StatusDeposited && rec.Status == models.StatusDeposited {
				return repositories.ErrConflict
			}
		}
		rec.ID = st.id()
		stored := *rec
		stored.Items = nil
		st.records[rec.ID] = stored
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func (r memRecords) InsertItems(_ context.Context, recordID int64, items []models.Item) error {
	return r.with("InsertItems", func(st *memState) error {
		for _, it := range items {
			it.ID = st.id()
			it.RecordID = recordID
			st.items[it.ID] = it
		}
		return nil
	})
}

func (r memRecords) MarkReturned(_ context.Context, id int64, at time.Time) error {
	return r.with("MarkReturned", func(st *memState) error {
		rec, ok := st.records[id]
		if !ok || rec.Status != models.StatusDeposited {
			return repositories.ErrNotFound
		}
		rec.Status = models.StatusReturned
		rec.ReturnedAt = &at
		st.records[id] = rec
		return nil
	})
}

func itemsOf(st *memState, ids ...int64) []models.Item {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Item
	for _, it := range st.items {
		if want[it.RecordID] {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordID != out[j].RecordID {
			return out[i].RecordID < out[j].RecordID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func newestFirst(records []models.Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].DepositedAt.Equal(records[j].DepositedAt) {
			return records[i].DepositedAt.After(records[j].DepositedAt)
		}
		return records[i].ID > records[j].ID
	})
}

func (r memRecords) FindLatest(_ context.Context, token, event, location string) (*models.Record, error) {
	var out *models.Record
	err := r.with("FindLatest", func(st *memState) error {
		var found []models.Record
		for _, rec := range st.records {
			if rec.TokenNumber == token && rec.EventName == event && (location == "" || rec.Location == location) {
				found = append(found, rec)
			}
		}
		if len(found) == 0 {
			return repositories.ErrNotFound
		}
		newestFirst(found)
		rec := found[0]
		rec.Items = itemsOf(st, rec.ID)
		out = &rec
		return nil
	})
	return out, err
}

func (r memRecords) filter(st *memState, f models.RecordFilter) []models.Record {
	var out []models.Record
	for _, rec := range st.records {
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (r memRecords) ListByFilter(_ context.Context, f models.RecordFilter, limit int) ([]models.Record, error) {
	var out []models.Record
	err := r.with("ListByFilter", func(st *memState) error {
		out = r.filter(st, f)
		newestFirst(out)
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r memRecords) CountByFilter(_ context.Context, f models.RecordFilter) (int64, error) {
	var n int64
	err := r.with("CountByFilter", func(st *memState) error {
		n = int64(len(r.filter(st, f)))
		return nil
	})
	return n, err
}

func (r memRecords) LockByFilter(_ context.Context, f models.RecordFilter) ([]models.Record, error) {
	if f.IsEmpty() {
		return nil, errors.New("lock records: empty filter")
	}
	var out []models.Record
	err := r.with("LockByFilter", func(st *memState) error {
		out = r.filter(st, f)
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r memRecords) ItemsByRecordIDs(_ context.Context, ids []int64) ([]models.Item, error) {
	var out []models.Item
	err := r.with("ItemsByRecordIDs", func(st *memState) error {
		out = itemsOf(st, ids...)
		return nil
	})
	return out, err
}

func (r memRecords) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	var n int64
	err := r.with("DeleteByIDs", func(st *memState) error {
		for _, id := range ids {
			if _, ok := st.records[id]; !ok {
				continue
			}
			delete(st.records, id)
			n++
			for itemID, it := range st.items {
				if it.RecordID == id {
					delete(st.items, itemID)
				}
			}
		}
		return nil
	})
	return n, err
}

type memEvents struct{ memRepos }

func activeAt(st *memState, location string, excludeID int64) []models.Event {
	var out []models.Event
	for _, e := range st.events {
		if e.Location == location && e.Status == models.EventActive && e.ID != excludeID {
			out = append(out, e)
		}
	}
	return out
}

func (r memEvents) Create(_ context.Context, e *models.Event) (int64, error) {
	err := r.with("CreateEvent", func(st *memState) error {
		for _, other := range st.events {
			if other.Name == e.Name {
				return repositories.ErrConflict
			}
		}
		if e.Status == models.EventActive && len(activeAt(st, e.Location, 0)) > 0 {
			return repositories.ErrActiveEventExists
		}
		e.ID = st.id()
		st.events[e.ID] = *e
		return nil
	})
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (r memEvents) ExistsByName(_ context.Context, name string) (bool, error) {
	var found bool
	err := r.with("ExistsByName", func(st *memState) error {
		for _, e := range st.events {
			if e.Name == name {
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (r memEvents) LockByID(_ context.Context, id int64) (*models.Event, error) {
	var out *models.Event
	err := r.with("LockByID", func(st *memState) error {
		e, ok := st.events[id]
		if !ok {
			return repositories.ErrNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (r memEvents) LockActiveAtLocation(_ context.Context, location string, excludeID int64) ([]models.Event, error) {
	var out []models.Event
	err := r.with("LockActiveAtLocation", func(st *memState) error {
		out = activeAt(st, location, excludeID)
		return nil
	})
	return out, err
}

func (r memEvents) UpdateStatus(_ context.Context, id int64, status models.EventStatus) error {
	return r.with("UpdateStatus", func(st *memState) error {
		e, ok := st.events[id]
		if !ok {
			return repositories.ErrNotFound
		}
		if status == models.EventActive && len(activeAt(st, e.Location, id)) > 0 {
			return repositories.ErrActiveEventExists
		}
		e.Status = status
		st.events[id] = e
		return nil
	})
}

func (r memEvents) List(_ context.Context, location string, activeOnly bool) ([]models.Event, error) {
	var out []models.Event
	err := r.with("ListEvents", func(st *memState) error {
		for _, e := range st.events {
			if location != "" && e.Location != location {
				continue
			}
			if activeOnly && e.Status != models.EventActive {
				continue
			}
			out = append(out, e)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		return nil
	})
	return out, err
}

func (r memEvents) DeleteByNames(_ context.Context, names []string) (int64, error) {
	var n int64
	err := r.with("DeleteByNames", func(st *memState) error {
		for id, e := range st.events {
			for _, name := range names {
				if e.Name == name {
					delete(st.events, id)
					n++
					break
				}
			}
		}
		return nil
	})
	return n, err
}

func (r memEvents) DeleteAll(_ context.Context) (int64, error) {
	var n int64
	err := r.with("DeleteAll", func(st *memState) error {
		n = int64(len(st.events))
		st.events = map[int64]models.Event{}
		return nil
	})
	return n, err
}

type memUsers struct{ memRepos }

func (r memUsers) Create(_ context.Context, u *models.User) (int64, error) {
	err := r.with("CreateUser", func(st *memState) error {
		if _, ok := st.users[u.Username]; ok {
			return repositories.ErrConflict
		}
		u.ID = st.id()
		st.users[u.Username] = *u
		return nil
	})
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	var out *models.User
	err := r.with("GetByUsername", func(st *memState) error {
		u, ok := st.users[username]
		if !ok {
			return repositories.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) DeleteByUsername(_ context.Context, username string) error {
	return r.with("DeleteByUsername", func(st *memState) error {
		if _, ok := st.users[username]; !ok {
			return repositories.ErrNotFound
		}
		delete(st.users, username)
		return nil
	})
}

// fakeBlobs tracks which photo paths exist. Paths listed in broken fail with
// the given reason.
type fakeBlobs struct {
	mu      sync.Mutex
	present map[string]bool
	broken  map[string]string
	deleted []string
}

func newFakeBlobs(paths ...string) *fakeBlobs {
	b := &fakeBlobs{present: map[string]bool{}, broken: map[string]string{}}
	for _, p := range paths {
		b.present[p] = true
	}
	return b
}

func (b *fakeBlobs) Delete(_ context.Context, p string) models.UnlinkOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p == "" {
		return models.UnlinkOutcome{Path: p, Reason: storage.ReasonNoPath}
	}
	if reason, ok := b.broken[p]; ok {
		return models.UnlinkOutcome{Path: p, Reason: reason}
	}
	if !b.present[p] {
		return models.UnlinkOutcome{Path: p, Reason: storage.ReasonMissing}
	}
	delete(b.present, p)
	b.deleted = append(b.deleted, p)
	return models.UnlinkOutcome{Path: p, Success: true}
}

type fakeAudit struct {
	mu      sync.Mutex
	err     error
	entries []models.AuditEntry
}

func (a *fakeAudit) Append(_ context.Context, entry models.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

func (a *fakeAudit) all() []models.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.AuditEntry(nil), a.entries...)
}

type fakeNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *fakeNotifier) Publish(kind string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
}

func (n *fakeNotifier) published() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.kinds...)
}

func strPtr(s string) *string { return &s }
