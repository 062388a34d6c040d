package repositories

import (
	"context"
	"errors"
	"fmt"

	"cloakroom-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	DB DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) (int64, error) {
	query := `
		INSERT INTO users (username, password_hash, role, location)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.DB.QueryRow(ctx, query, u.Username, u.PasswordHash, u.Role, u.Location).Scan(&u.ID, &u.CreatedAt)
	if _, ok := uniqueViolation(err); ok {
		return 0, ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return u.ID, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.DB.QueryRow(ctx, `
		SELECT id, username, password_hash, role, location, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Location, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) DeleteByUsername(ctx context.Context, username string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
