package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/jonathan/hrms/internal/types"
)

// HTTPSink posts requests to the spreadsheet-backed sync endpoint as
// {action, userEmail, ...payload}.
type HTTPSink struct {
	client *resty.Client
	url    string
}

// NewHTTPSink creates a sink for url. timeout <= 0 leaves resty's default.
func NewHTTPSink(url string, timeout time.Duration) *HTTPSink {
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPSink{client: client, url: url}
}

// Send posts one request. A transport error, a non-2xx status or a JSON
// reply carrying "success": false is a failure. Any other 2xx reply,
// including an opaque or empty body, counts as delivered.
func (s *HTTPSink) Send(ctx context.Context, req Request) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(requestBody(req)).
		Post(s.url)
	if err != nil {
		return &types.TransportError{Action: req.Action, Message: "request failed", Cause: err}
	}
	if resp.IsError() {
		return &types.TransportError{
			Action:  req.Action,
			Message: fmt.Sprintf("sync endpoint returned status %d", resp.StatusCode()),
		}
	}

	raw := resp.Body()
	if !gjson.ValidBytes(raw) {
		return nil
	}
	result := gjson.ParseBytes(raw)
	if ok := result.Get("success"); ok.Exists() && !ok.Bool() {
		msg := result.Get("error").String()
		if msg == "" {
			msg = result.Get("message").String()
		}
		if msg == "" {
			msg = "rejected without a message"
		}
		return &types.TransportError{Action: req.Action, Message: msg}
	}
	return nil
}

func requestBody(req Request) map[string]any {
	body := map[string]any{}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &body); err != nil {
			body = map[string]any{"data": req.Payload}
		}
	}
	body["action"] = req.Action
	body["userEmail"] = req.Actor
	body["requestId"] = req.ID
	return body
}
