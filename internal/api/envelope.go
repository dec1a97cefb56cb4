package api

import (
	"encoding/json"
	"fmt"
)

// envelope matches both response shapes the backend uses:
// {"status":"success","data":...} and {"success":true,"data":...}.
type envelope struct {
	Status  string          `json:"status"`
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// ErrEnvelope is returned when the backend reports a failure inside a 200
// response. Reason carries the backend's own message.
type ErrEnvelope struct {
	Reason string
}

func (e *ErrEnvelope) Error() string {
	return "backend reported failure: " + e.Reason
}

// DecodeEnvelope normalizes a backend response body into its data payload.
// Both envelope shapes are accepted; a failure envelope becomes *ErrEnvelope.
func DecodeEnvelope(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	ok := env.Status == "success" || (env.Success != nil && *env.Success)
	if !ok {
		reason := env.Message
		if reason == "" {
			reason = env.Error
		}
		if reason == "" {
			reason = "no reason given"
		}
		return nil, &ErrEnvelope{Reason: reason}
	}

	return env.Data, nil
}

// ActionResponse is the backend's reply to start/stop/execute POSTs.
type ActionResponse struct {
	Status  string `json:"status"`
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// OK reports whether the backend accepted the action, under either envelope shape.
func (a *ActionResponse) OK() bool {
	return a.Status == "success" || (a.Success != nil && *a.Success)
}
