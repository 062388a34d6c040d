package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloakroom-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type RecordRepository struct {
	DB DBTX
}

func NewRecordRepository(db DBTX) *RecordRepository {
	return &RecordRepository{DB: db}
}

const recordColumns = `id, token_number, location, event_name, status, person_photo_path, deposited_at, returned_at`

func scanRecord(row pgx.Row) (*models.Record, error) {
	var (
		rec    models.Record
		status string
	)
	err := row.Scan(
		&rec.ID, &rec.TokenNumber, &rec.Location, &rec.EventName, &status,
		&rec.PersonPhotoPath, &rec.DepositedAt, &rec.ReturnedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = models.RecordStatus(status)
	return &rec, nil
}

func collectRecords(rows pgx.Rows) ([]models.Record, error) {
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// LockDeposited row-locks the live deposit for key. When from and to are set
// only deposits inside that window qualify. Returns ErrNotFound if none.
func (r *RecordRepository) LockDeposited(ctx context.Context, key models.TokenKey, from, to *time.Time) (*models.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM records
		WHERE token_number = $1 AND location = $2 AND event_name = $3 AND status = 'deposited'
		  AND ($4::timestamptz IS NULL OR deposited_at >= $4)
		  AND ($5::timestamptz IS NULL OR deposited_at <= $5)
		ORDER BY deposited_at DESC
		LIMIT 1
		FOR UPDATE
	`
	rec, err := scanRecord(r.DB.QueryRow(ctx, query, key.TokenNumber, key.Location, key.EventName, from, to))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock deposited record: %w", err)
	}
	return rec, nil
}

// Insert creates a record and returns its id. A second live deposit for the
// same token, location and event fails with ErrConflict.
func (r *RecordRepository) Insert(ctx context.Context, rec *models.Record) (int64, error) {
	query := `
		INSERT INTO records (token_number, location, event_name, status, person_photo_path, deposited_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := r.DB.QueryRow(ctx, query,
		rec.TokenNumber, rec.Location, rec.EventName, string(rec.Status), rec.PersonPhotoPath, rec.DepositedAt,
	).Scan(&id)
	if constraint, ok := uniqueViolation(err); ok && constraint == depositedTokenIndex {
		return 0, ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	rec.ID = id
	return id, nil
}

// InsertItems stores all items of a record in one round trip.
func (r *RecordRepository) InsertItems(ctx context.Context, recordID int64, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(
			`INSERT INTO items (record_id, item_name, item_count, item_photo_path) VALUES ($1, $2, $3, $4)`,
			recordID, it.ItemName, it.ItemCount, it.ItemPhotoPath,
		)
	}

	br := r.DB.SendBatch(ctx, batch)
	for range items {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert items: %w", err)
		}
	}
	return br.Close()
}

// MarkReturned moves a deposited record to returned. Returns ErrNotFound if
// the record is not currently deposited.
func (r *RecordRepository) MarkReturned(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE records SET status = 'returned', returned_at = $2 WHERE id = $1 AND status = 'deposited'`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("mark returned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindLatest returns the most recently deposited record for token and event,
// with its items. An empty location matches every location.
func (r *RecordRepository) FindLatest(ctx context.Context, token, event, location string) (*models.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM records
		WHERE token_number = $1 AND event_name = $2 AND ($3::text = '' OR location = $3)
		ORDER BY deposited_at DESC, id DESC
		LIMIT 1
	`
	rec, err := scanRecord(r.DB.QueryRow(ctx, query, token, event, location))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}

	items, err := r.ItemsByRecordIDs(ctx, []int64{rec.ID})
	if err != nil {
		return nil, err
	}
	rec.Items = items
	return rec, nil
}

// ListByFilter returns matching records newest first. limit <= 0 means no limit.
func (r *RecordRepository) ListByFilter(ctx context.Context, f models.RecordFilter, limit int) ([]models.Record, error) {
	where, args := whereClause(f)
	query := `SELECT ` + recordColumns + ` FROM records` + where + ` ORDER BY deposited_at DESC, id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// CountByFilter counts every record matching f.
func (r *RecordRepository) CountByFilter(ctx context.Context, f models.RecordFilter) (int64, error) {
	where, args := whereClause(f)
	var n int64
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM records`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// LockByFilter row-locks every record matching f, in id order.
func (r *RecordRepository) LockByFilter(ctx context.Context, f models.RecordFilter) ([]models.Record, error) {
	if f.IsEmpty() {
		return nil, errors.New("lock records: empty filter")
	}
	where, args := whereClause(f)
	query := `SELECT ` + recordColumns + ` FROM records` + where + ` ORDER BY id FOR UPDATE`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lock records: %w", err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("lock records: %w", err)
	}
	return records, nil
}

func (r *RecordRepository) ItemsByRecordIDs(ctx context.Context, ids []int64) ([]models.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, record_id, item_name, item_count, item_photo_path
		FROM items
		WHERE record_id = ANY($1)
		ORDER BY record_id, id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.RecordID, &it.ItemName, &it.ItemCount, &it.ItemPhotoPath); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// DeleteByIDs removes records; their items go with them via ON DELETE CASCADE.
func (r *RecordRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.DB.Exec(ctx, `DELETE FROM records WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return tag.RowsAffected(), nil
}
