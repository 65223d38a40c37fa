// Package middleware resolves the acting user of a request.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jonathan/hrms/internal/types"
)

// ContextKey is a typed key for context values.
type ContextKey string

const actorKey ContextKey = "actor"

// ErrNoActor is returned by GetActor outside AuthMiddleware.
var ErrNoActor = errors.New("actor not found in request context")

// TokenValidator turns a session token into claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (ActorGetter, error)
}

// ActorGetter is implemented by session claims.
type ActorGetter interface {
	GetActor() types.Actor
}

// AuthMiddleware rejects requests without a valid bearer session and puts
// the session's actor in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := authenticate(validator, r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func authenticate(validator TokenValidator, r *http.Request) (types.Actor, bool) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return types.Actor{}, false
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return types.Actor{}, false
	}
	actor := claims.GetActor()
	return actor, actor.Email != ""
}

// bearerToken accepts "Bearer <token>" with any casing of the scheme.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor returns the actor set by AuthMiddleware.
func GetActor(r *http.Request) (types.Actor, error) {
	actor, ok := r.Context().Value(actorKey).(types.Actor)
	if !ok {
		return types.Actor{}, ErrNoActor
	}
	return actor, nil
}
