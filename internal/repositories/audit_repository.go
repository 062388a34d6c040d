package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"cloakroom-backend/internal/models"
)

// AuditRepository persists audit entries as JSONB next to the file log.
type AuditRepository struct {
	DB DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{DB: db}
}

func (r *AuditRepository) Insert(ctx context.Context, entry models.AuditEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO audit_entries (admin, action, deleted_rows, ip, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.Admin, entry.Action, entry.DeletedRows, entry.IP, payload, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns the newest audit entries first.
func (r *AuditRepository) List(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, payload
		FROM audit_entries
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			id      int64
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		var entry models.AuditEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("decode audit entry %d: %w", id, err)
		}
		entry.ID = id
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
