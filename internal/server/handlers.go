package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/jonathan/hrms/internal/server/middleware"
	"github.com/jonathan/hrms/internal/types"
)

// maxBodyBytes caps request bodies. Upload batches carry filenames only.
const maxBodyBytes = 1 << 20

// parseQueryInt parses an integer query parameter with default and max values
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}

// queryMap flattens the query string, keeping the first value per key.
func queryMap(r *http.Request) map[string]string {
	out := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrBadRequest{Message: "request body is empty"}
		}
		return &ErrBadRequest{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// actor returns the authenticated actor, writing 401 when there is none.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (types.Actor, bool) {
	a, err := middleware.GetActor(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return types.Actor{}, false
	}
	return a, true
}

// failWith writes err with the status HTTPStatus picks for it.
func (s *Server) failWith(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[server] request failed: %v", err)
	}

	var verr *types.ValidationError
	if errors.As(err, &verr) && len(verr.Details) > 0 {
		s.jsonResponse(w, status, map[string]any{
			"error":   err.Error(),
			"field":   verr.Field,
			"details": verr.Details,
		})
		return
	}
	s.errorResponse(w, status, err.Error())
}
