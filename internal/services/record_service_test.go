package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var gentsStaff = models.Identity{UserID: 1, Username: "ravi", Role: models.RoleUser, Location: "gents location"}

func newRecordFixture(t *testing.T, sameDay bool) (*RecordService, *memStore, *fakeNotifier) {
	t.Helper()
	store := newMemStore()
	store.seedEvent("wedding", "gents location", models.EventActive)
	n := &fakeNotifier{}
	svc := NewRecordService(store, testLocations, sameDay, n, zap.NewNop())
	return svc, store, n
}

func depositReq(token string) models.DepositRequest {
	return models.DepositRequest{
		TokenNumber: token,
		EventName:   "wedding",
		Items: []models.NewItem{
			{Name: "bag", Count: 2},
			{Name: "umbrella"},
		},
	}
}

func TestDeposit_StoresRecordAndItems(t *testing.T) {
	svc, store, n := newRecordFixture(t, true)
	ctx := context.Background()

	id, err := svc.Deposit(ctx, gentsStaff, depositReq("17"))
	require.NoError(t, err)
	assert.NotZero(t, id)

	rec, err := svc.Lookup(ctx, gentsStaff, "17", "wedding")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "gents location", rec.Location)
	assert.Equal(t, models.StatusDeposited, rec.Status)
	require.Len(t, rec.Items, 2)
	assert.Equal(t, 2, rec.Items[0].ItemCount)
	assert.Equal(t, 1, rec.Items[1].ItemCount, "count defaults to 1")

	assert.Len(t, store.snapshot().records, 1)
	assert.Equal(t, []string{"record.deposited"}, n.published())
}

func TestDeposit_DuplicateToken(t *testing.T) {
	svc, store, _ := newRecordFixture(t, true)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, gentsStaff, depositReq("17"))
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, gentsStaff, depositReq("17"))
	assert.ErrorIs(t, err, ErrDuplicateToken)
	assert.Len(t, store.snapshot().records, 1)
}

func TestDeposit_ConcurrentSameTokenOnlyOneWins(t *testing.T) {
	svc, store, _ := newRecordFixture(t, true)
	ctx := context.Background()

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Deposit(ctx, gentsStaff, depositReq("99"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrDuplicateToken):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, dupes)
	assert.Len(t, store.snapshot().records, 1)
}

func TestDeposit_Validation(t *testing.T) {
	svc, _, _ := newRecordFixture(t, true)
	ctx := context.Background()

	tests := []struct {
		name string
		id   models.Identity
		req  models.DepositRequest
		want error
	}{
		{"missing token", gentsStaff, models.DepositRequest{EventName: "wedding"}, ErrMissingField},
		{"missing event", gentsStaff, models.DepositRequest{TokenNumber: "1"}, ErrMissingField},
		{"unknown event", gentsStaff, models.DepositRequest{TokenNumber: "1", EventName: "gala"}, ErrInvalidEvent},
		{"unknown location", models.Identity{Username: "x", Role: models.RoleUser, Location: "roof"}, depositReq("1"), ErrInvalidLocation},
		{"admin without location", models.Identity{Username: "admin", Role: models.RoleAdmin}, depositReq("1"), ErrMissingField},
		{"blank item name", gentsStaff, models.DepositRequest{TokenNumber: "1", EventName: "wedding", Items: []models.NewItem{{Name: " "}}}, ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Deposit(ctx, tt.id, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDeposit_AdminNamesLocation(t *testing.T) {
	svc, _, _ := newRecordFixture(t, true)
	admin := models.Identity{Username: "admin", Role: models.RoleAdmin}

	req := depositReq("5")
	req.Location = "ladies location"
	_, err := svc.Deposit(context.Background(), admin, req)
	require.NoError(t, err)

	rec, err := svc.Lookup(context.Background(), admin, "5", "wedding")
	require.NoError(t, err)
	assert.Equal(t, "ladies location", rec.Location)
}

func TestDeposit_StorageFailure(t *testing.T) {
	svc, store, _ := newRecordFixture(t, true)
	store.failOn("InsertItems", errors.New("connection reset"))

	_, err := svc.Deposit(context.Background(), gentsStaff, depositReq("8"))
	assert.ErrorIs(t, err, ErrStorage)
	assert.Empty(t, store.snapshot().records, "record insert rolled back with items")
}

func TestReturn_SecondReturnNotFound(t *testing.T) {
	svc, _, n := newRecordFixture(t, true)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, gentsStaff, depositReq("17"))
	require.NoError(t, err)

	require.NoError(t, svc.Return(ctx, gentsStaff, "17", "wedding", ""))
	err = svc.Return(ctx, gentsStaff, "17", "wedding", "")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	rec, err := svc.Lookup(ctx, gentsStaff, "17", "wedding")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, rec.Status)
	assert.NotNil(t, rec.ReturnedAt)
	assert.Equal(t, []string{"record.deposited", "record.returned"}, n.published())
}

func TestReturn_FreesTokenForNewDeposit(t *testing.T) {
	svc, _, _ := newRecordFixture(t, true)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, gentsStaff, depositReq("3"))
	require.NoError(t, err)
	require.NoError(t, svc.Return(ctx, gentsStaff, "3", "wedding", ""))

	id, err := svc.Deposit(ctx, gentsStaff, depositReq("3"))
	require.NoError(t, err)

	rec, err := svc.Lookup(ctx, gentsStaff, "3", "wedding")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID, "lookup returns the newest record")
	assert.Equal(t, models.StatusDeposited, rec.Status)
}

func TestReturn_SameDayWindow(t *testing.T) {
	svc, store, _ := newRecordFixture(t, true)
	today := time.Date(2024, 3, 10, 12, 0, 0, 0, timeutil.IST)
	svc.now = func() time.Time { return today }

	store.seedRecord(models.Record{
		TokenNumber: "4", Location: "gents location", EventName: "wedding",
		Status: models.StatusDeposited, DepositedAt: today.AddDate(0, 0, -1),
	})

	err := svc.Return(context.Background(), gentsStaff, "4", "wedding", "")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	svc.sameDayReturn = false
	assert.NoError(t, svc.Return(context.Background(), gentsStaff, "4", "wedding", ""))
}

func TestReturn_LastSecondOfTheDay(t *testing.T) {
	svc, store, _ := newRecordFixture(t, true)
	ctx := context.Background()

	svc.now = func() time.Time { return time.Date(2024, 1, 31, 23, 59, 59, 300_000_000, timeutil.IST) }
	id, err := svc.Deposit(ctx, gentsStaff, depositReq("T1"))
	require.NoError(t, err)
	assert.Zero(t, store.snapshot().records[id].DepositedAt.Nanosecond(), "stored timestamps carry whole seconds")

	svc.now = func() time.Time { return time.Date(2024, 1, 31, 23, 59, 59, 500_000_000, timeutil.IST) }
	require.NoError(t, svc.Return(ctx, gentsStaff, "T1", "wedding", ""))

	rec, err := svc.Lookup(ctx, gentsStaff, "T1", "wedding")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, rec.Status)
}

func TestReturn_ConcurrentOnlyOneSucceeds(t *testing.T) {
	svc, _, _ := newRecordFixture(t, true)
	ctx := context.Background()
	_, err := svc.Deposit(ctx, gentsStaff, depositReq("21"))
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.Return(ctx, gentsStaff, "21", "wedding", "") == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

func TestLookup_StaffScopedToLocation(t *testing.T) {
	svc, store, _ := newRecordFixture(t, true)
	store.seedRecord(models.Record{
		TokenNumber: "9", Location: "ladies location", EventName: "wedding",
		Status: models.StatusDeposited, DepositedAt: time.Now(),
	})

	_, err := svc.Lookup(context.Background(), gentsStaff, "9", "wedding")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	admin := models.Identity{Username: "admin", Role: models.RoleAdmin}
	rec, err := svc.Lookup(context.Background(), admin, "9", "wedding")
	require.NoError(t, err)
	assert.Equal(t, "ladies location", rec.Location)
}
