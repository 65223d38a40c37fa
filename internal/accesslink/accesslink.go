// Package accesslink issues and verifies time-boxed interview access tokens.
package accesslink

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultValidity is how long an interview link stays usable.
const DefaultValidity = 24 * time.Hour

const audience = "interview"

// ErrExpired is returned by Verify for a token past its window.
var ErrExpired = errors.New("interview link expired")

// Claims identifies the candidate a link was issued for.
type Claims struct {
	CandidateID   string `json:"candidate_id"`
	RequirementID string `json:"requirement_id,omitempty"`
	jwt.RegisteredClaims
}

// Link is an issued interview link.
type Link struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Issuer signs interview tokens with HS256.
type Issuer struct {
	secret   []byte
	validity time.Duration
	baseURL  string
	now      func() time.Time
}

// NewIssuer creates an issuer. validity <= 0 uses DefaultValidity.
func NewIssuer(secret, baseURL string, validity time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("link secret is empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid interview base URL: %w", err)
	}
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &Issuer{secret: []byte(secret), validity: validity, baseURL: baseURL, now: time.Now}, nil
}

// WithClock returns a copy of the issuer using now as its time source.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

// Issue signs a token for the candidate and builds its link.
func (i *Issuer) Issue(candidateID, requirementID string) (*Link, error) {
	if candidateID == "" {
		return nil, fmt.Errorf("candidate id is empty")
	}

	now := i.now().Truncate(time.Second)
	expiresAt := now.Add(i.validity)

	claims := &Claims{
		CandidateID:   candidateID,
		RequirementID: requirementID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   candidateID,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	link, err := buildURL(i.baseURL, tokenString)
	if err != nil {
		return nil, err
	}
	return &Link{URL: link, Token: tokenString, IssuedAt: now, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, audience and validity window.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithAudience(audience), jwt.WithIssuedAt())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("invalid token signature: %w", err)
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

func buildURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid interview base URL: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
