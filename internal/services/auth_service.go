package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"cloakroom-backend/internal/auth"
	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/repositories"

	"go.uber.org/zap"
)

// AdminCredentials describe the built-in administrator configured through the
// environment. TOTPSecret is optional.
type AdminCredentials struct {
	Username   string
	Password   string
	TOTPSecret string
}

type tokenIssuer interface {
	GenerateToken(id models.Identity) (string, error)
}

type AuthService struct {
	users  UserRepo
	admin  AdminCredentials
	tokens tokenIssuer
	log    *zap.Logger
}

func NewAuthService(users UserRepo, admin AdminCredentials, tokens tokenIssuer, log *zap.Logger) *AuthService {
	return &AuthService{users: users, admin: admin, tokens: tokens, log: log.Named("auth")}
}

// Login checks the built-in admin first and then the users table.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	var id models.Identity
	if s.admin.Username != "" && username == s.admin.Username {
		if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.admin.Password)) != 1 {
			s.log.Warn("admin login failed", zap.String("username", username))
			return nil, ErrInvalidCredentials
		}
		if s.admin.TOTPSecret != "" && !auth.ValidateTOTP(strings.TrimSpace(req.OTP), s.admin.TOTPSecret) {
			s.log.Warn("admin otp rejected", zap.String("username", username))
			return nil, ErrInvalidCredentials
		}
		id = models.Identity{Username: username, Role: models.RoleAdmin}
	} else {
		u, err := s.users.GetByUsername(ctx, username)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, fmt.Errorf("%w: login: %w", ErrStorage, err)
		}
		if !auth.VerifyPassword(u.PasswordHash, req.Password) {
			s.log.Warn("login failed", zap.String("username", username))
			return nil, ErrInvalidCredentials
		}
		id = models.Identity{UserID: u.ID, Username: u.Username, Role: u.Role, Location: u.Location}
	}

	token, err := s.tokens.GenerateToken(id)
	if err != nil {
		return nil, err
	}
	s.log.Info("login", zap.String("username", id.Username), zap.String("role", id.Role))
	return &models.AuthResponse{
		Token:    token,
		Role:     id.Role,
		Username: id.Username,
		Location: id.Location,
	}, nil
}
