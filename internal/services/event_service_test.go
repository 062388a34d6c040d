package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"cloakroom-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventCreate_DefaultsToActive(t *testing.T) {
	store := newMemStore()
	svc := NewEventService(store, testLocations, zap.NewNop())

	e, err := svc.Create(context.Background(), models.CreateEventRequest{
		Name: " Wedding ", Location: "gents location", EventDate: "2024-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "Wedding", e.Name)
	assert.Equal(t, models.EventActive, e.Status)
	require.NotNil(t, e.EventDate)
	assert.Equal(t, "2024-03-01", e.EventDate.Format("2006-01-02"))
}

func TestEventCreate_SecondActiveAtLocationConflicts(t *testing.T) {
	store := newMemStore()
	svc := NewEventService(store, testLocations, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateEventRequest{Name: "a", Location: "gents location"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, models.CreateEventRequest{Name: "b", Location: "gents location"})
	assert.ErrorIs(t, err, ErrActiveEventConflict)

	_, err = svc.Create(ctx, models.CreateEventRequest{Name: "c", Location: "gents location", Status: models.EventInactive})
	assert.NoError(t, err, "inactive events do not conflict")

	_, err = svc.Create(ctx, models.CreateEventRequest{Name: "d", Location: "ladies location"})
	assert.NoError(t, err, "locations are independent")
}

func TestEventCreate_Validation(t *testing.T) {
	svc := NewEventService(newMemStore(), testLocations, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateEventRequest{Location: "gents location"})
	assert.ErrorIs(t, err, ErrMissingField)
	_, err = svc.Create(ctx, models.CreateEventRequest{Name: "x", Location: "roof"})
	assert.ErrorIs(t, err, ErrInvalidLocation)
	_, err = svc.Create(ctx, models.CreateEventRequest{Name: "x", Location: "gents location", Status: "paused"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.Create(ctx, models.CreateEventRequest{Name: "x", Location: "gents location", EventDate: "March 1"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestEventCreate_DuplicateName(t *testing.T) {
	store := newMemStore()
	store.seedEvent("gala", "gents location", models.EventInactive)
	svc := NewEventService(store, testLocations, zap.NewNop())

	_, err := svc.Create(context.Background(), models.CreateEventRequest{Name: "gala", Location: "ladies location"})
	assert.ErrorIs(t, err, ErrEventExists)
}

func TestEventSetStatus(t *testing.T) {
	store := newMemStore()
	active := store.seedEvent("current", "gents location", models.EventActive)
	next := store.seedEvent("next", "gents location", models.EventInactive)
	svc := NewEventService(store, testLocations, zap.NewNop())
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, next.ID, models.EventActive)
	assert.ErrorIs(t, err, ErrActiveEventConflict)

	_, err = svc.SetStatus(ctx, active.ID, models.EventActive)
	assert.NoError(t, err, "re-activating the active event is a no-op")

	_, err = svc.SetStatus(ctx, active.ID, models.EventInactive)
	require.NoError(t, err)
	e, err := svc.SetStatus(ctx, next.ID, models.EventActive)
	require.NoError(t, err)
	assert.Equal(t, models.EventActive, e.Status)

	_, err = svc.SetStatus(ctx, 9999, models.EventActive)
	assert.ErrorIs(t, err, ErrEventNotFound)
	_, err = svc.SetStatus(ctx, next.ID, "paused")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestEventListAndDelete(t *testing.T) {
	store := newMemStore()
	store.seedEvent("a", "gents location", models.EventActive)
	store.seedEvent("b", "gents location", models.EventInactive)
	store.seedEvent("c", "ladies location", models.EventActive)
	svc := NewEventService(store, testLocations, zap.NewNop())
	ctx := context.Background()

	all, err := svc.List(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	gentsActive, err := svc.List(ctx, "gents location", true)
	require.NoError(t, err)
	require.Len(t, gentsActive, 1)
	assert.Equal(t, "a", gentsActive[0].Name)

	assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrEventNotFound)
	require.NoError(t, svc.Delete(ctx, "a"))

	n, err := svc.DeleteMany(ctx, []string{"b, missing", ""})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = svc.DeleteMany(ctx, []string{" ", ""})
	assert.ErrorIs(t, err, ErrMissingField)

	n, err = svc.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	empty, err := svc.List(ctx, "", false)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestEventSetStatus_ConcurrentActivationAdmitsOne(t *testing.T) {
	store := newMemStore()
	svc := NewEventService(store, testLocations, zap.NewNop())
	ctx := context.Background()

	const n = 8
	ids := make([]int64, n)
	for i := range ids {
		e, err := svc.Create(ctx, models.CreateEventRequest{
			Name: fmt.Sprintf("event-%d", i), Location: "gents location", Status: models.EventInactive,
		})
		require.NoError(t, err)
		ids[i] = e.ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.SetStatus(ctx, id, models.EventActive)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, ErrActiveEventConflict):
				conflicts++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)

	active, err := svc.List(ctx, "gents location", true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
