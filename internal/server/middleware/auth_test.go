package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonathan/hrms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type claims struct{ actor types.Actor }

func (c claims) GetActor() types.Actor { return c.actor }

type stubValidator map[string]types.Actor

func (v stubValidator) ValidateToken(token string) (ActorGetter, error) {
	a, ok := v[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return claims{actor: a}, nil
}

func TestAuthMiddleware(t *testing.T) {
	validator := stubValidator{
		"good":    {Email: "hr@example.com", Role: types.RoleHR},
		"noemail": {Role: types.RoleHR},
	}

	var seen types.Actor
	handler := AuthMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, err := GetActor(r)
		require.NoError(t, err)
		seen = a
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"extra parts", "Bearer good extra", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"claims without email", "Bearer noemail", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = types.Actor{}
			req := httptest.NewRequest(http.MethodGet, "/candidates", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "hr@example.com", seen.Email)
			}
		})
	}
}

func TestGetActor_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetActor(req)
	assert.ErrorIs(t, err, ErrNoActor)

	req = req.WithContext(WithActor(req.Context(), types.Actor{Email: "ea@example.com", Role: types.RoleEA}))
	a, err := GetActor(req)
	require.NoError(t, err)
	assert.Equal(t, types.RoleEA, a.Role)
}
