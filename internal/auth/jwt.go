package auth

import (
	"errors"
	"time"

	"cloakroom-backend/internal/config"
	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Location string `json:"location,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() models.Identity {
	return models.Identity{
		UserID:   c.UserID,
		Username: c.Username,
		Role:     c.Role,
		Location: c.Location,
	}
}

type JWTManager struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		secret:     []byte(cfg.JWT.Secret),
		expiration: time.Duration(cfg.JWT.ExpirationHours) * time.Hour,
		issuer:     cfg.JWT.Issuer,
	}
}

// GenerateToken creates a signed token carrying the caller's identity.
func (j *JWTManager) GenerateToken(id models.Identity) (string, error) {
	now := timeutil.Now()

	claims := &Claims{
		UserID:   id.UserID,
		Username: id.Username,
		Role:     id.Role,
		Location: id.Location,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken verifies a JWT token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
