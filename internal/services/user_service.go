package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloakroom-backend/internal/auth"
	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/repositories"
	"cloakroom-backend/internal/timeutil"

	"go.uber.org/zap"
)

// UserService manages staff accounts. Each account is bound to one location.
type UserService struct {
	Store     Store
	Deletion  *DeletionService
	locations []string
	log       *zap.Logger
	now       func() time.Time
}

func NewUserService(store Store, deletion *DeletionService, locations []string, log *zap.Logger) *UserService {
	return &UserService{
		Store:     store,
		Deletion:  deletion,
		locations: locations,
		log:       log.Named("users"),
		now:       timeutil.Now,
	}
}

func (s *UserService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	location := strings.TrimSpace(req.Location)
	if username == "" {
		return nil, fmt.Errorf("%w: username", ErrMissingField)
	}
	if req.Password == "" {
		return nil, fmt.Errorf("%w: password", ErrMissingField)
	}
	if !validLocation(location, s.locations) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Location:     location,
		CreatedAt:    s.now(),
	}
	if _, err := s.Store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("%w: create user: %w", ErrStorage, err)
	}

	s.log.Info("user created", zap.String("username", u.Username), zap.String("location", u.Location))
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, username string) (*models.User, error) {
	u, err := s.Store.Users().GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %w", ErrStorage, err)
	}
	return u, nil
}

// DeleteUser removes an account. With purgeRecords the records held at the
// user's location go in the same transaction through the deletion pipeline,
// so either both are gone or neither is.
func (s *UserService) DeleteUser(ctx context.Context, actor models.Actor, username string, purgeRecords bool) (*DeleteResult, error) {
	u, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if !purgeRecords || u.Location == "" {
		if err := deleteAccount(ctx, s.Store.Users(), u.Username); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: delete user: %w", ErrStorage, err)
		}
		s.log.Info("user deleted", zap.String("username", u.Username), zap.String("by", actor.Username))
		return nil, nil
	}

	res, err := s.Deletion.DeleteLocationRecordsWith(ctx, actor, u.Location, func(r Repos) error {
		return deleteAccount(ctx, r.Users(), u.Username)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user deleted",
		zap.String("username", u.Username),
		zap.String("by", actor.Username),
		zap.Int64("records_deleted", res.DeletedRows),
	)
	return res, nil
}

func deleteAccount(ctx context.Context, users UserRepo, username string) error {
	err := users.DeleteByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
