package repositories

import (
	"context"
	"errors"
	"fmt"

	"cloakroom-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type EventRepository struct {
	DB DBTX
}

func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{DB: db}
}

const eventColumns = `id, name, description, location, event_status, event_incharge, incharge_phone, event_date, created_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		e      models.Event
		status string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Location, &status,
		&e.InchargeName, &e.InchargePhone, &e.EventDate, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = models.EventStatus(status)
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]models.Event, error) {
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// mapEventWriteErr distinguishes the two unique constraints on events.
func mapEventWriteErr(err error) error {
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == activeEventIndex {
			return ErrActiveEventExists
		}
		return ErrConflict
	}
	return err
}

func (r *EventRepository) Create(ctx context.Context, e *models.Event) (int64, error) {
	query := `
		INSERT INTO events (name, description, location, event_status, event_incharge, incharge_phone, event_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRow(ctx, query,
		e.Name, e.Description, e.Location, string(e.Status), e.InchargeName, e.InchargePhone, e.EventDate, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		if mapped := mapEventWriteErr(err); mapped != err {
			return 0, mapped
		}
		return 0, fmt.Errorf("create event: %w", err)
	}
	return e.ID, nil
}

func (r *EventRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check event: %w", err)
	}
	return exists, nil
}

// LockByID row-locks one event. Returns ErrNotFound if it does not exist.
func (r *EventRepository) LockByID(ctx context.Context, id int64) (*models.Event, error) {
	e, err := scanEvent(r.DB.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock event: %w", err)
	}
	return e, nil
}

// LockActiveAtLocation row-locks the active events at location other than
// excludeID.
func (r *EventRepository) LockActiveAtLocation(ctx context.Context, location string, excludeID int64) ([]models.Event, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE location = $1 AND event_status = 'active' AND id <> $2
		FOR UPDATE
	`, location, excludeID)
	if err != nil {
		return nil, fmt.Errorf("lock active events: %w", err)
	}
	events, err := collectEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("lock active events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) UpdateStatus(ctx context.Context, id int64, status models.EventStatus) error {
	tag, err := r.DB.Exec(ctx, `UPDATE events SET event_status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		if mapped := mapEventWriteErr(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("update event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns events newest first. An empty location matches all locations.
func (r *EventRepository) List(ctx context.Context, location string, activeOnly bool) ([]models.Event, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE ($1::text = '' OR location = $1) AND (NOT $2::boolean OR event_status = 'active')
		ORDER BY created_at DESC, id DESC
	`, location, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events, err := collectEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) DeleteByNames(ctx context.Context, names []string) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM events WHERE name = ANY($1)`, names)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *EventRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM events`)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return tag.RowsAffected(), nil
}
