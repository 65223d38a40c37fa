package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/hrms/internal/config"
	"github.com/jonathan/hrms/internal/server/middleware"
	"github.com/jonathan/hrms/internal/types"
)

const sessionIssuer = "hrms"

// Claims is the payload of a session token.
type Claims struct {
	Email string     `json:"email"`
	Role  types.Role `json:"role"`
	jwt.RegisteredClaims
}

// GetActor implements middleware.ActorGetter.
func (c *Claims) GetActor() types.Actor {
	return types.Actor{Email: c.Email, Role: c.Role}
}

// validatorFunc adapts a function to middleware.TokenValidator.
type validatorFunc func(string) (middleware.ActorGetter, error)

func (f validatorFunc) ValidateToken(token string) (middleware.ActorGetter, error) { return f(token) }

// AsTokenValidator exposes the service to the auth middleware.
func (s *JWTService) AsTokenValidator() middleware.TokenValidator {
	return validatorFunc(func(token string) (middleware.ActorGetter, error) {
		claims, err := s.ValidateToken(token)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// JWTService mints and validates HS256 session tokens. There is no sign-in
// flow: whoever holds the session secret can mint a token for any actor.
type JWTService struct {
	config *config.JWTConfig
	now    func() time.Time
}

// NewJWTService creates a service signing with cfg.SessionSecret.
func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{config: cfg, now: time.Now}
}

func (s *JWTService) lifetime() time.Duration {
	return time.Duration(s.config.ExpirationHours) * time.Hour
}

// GenerateToken signs a session for actor. The email is lowercased and the
// role must be one of types.Roles.
func (s *JWTService) GenerateToken(actor types.Actor) (string, error) {
	email := strings.ToLower(strings.TrimSpace(actor.Email))
	if email == "" {
		return "", fmt.Errorf("actor email is required")
	}
	role, ok := types.ParseRole(string(actor.Role))
	if !ok {
		return "", fmt.Errorf("unknown role %q", actor.Role)
	}

	issued := s.now()
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.lifetime())),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.SessionSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a session token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return []byte(s.config.SessionSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, fmt.Errorf("invalid token signature: %w", err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("token expired: %w", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("malformed token: %w", err)
	}
	return nil, fmt.Errorf("failed to parse token: %w", err)
}
