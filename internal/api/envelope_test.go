package api

import (
	"errors"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantData string
		wantErr  bool
	}{
		{
			name:     "status shape success",
			body:     `{"status":"success","data":{"x":1}}`,
			wantData: `{"x":1}`,
		},
		{
			name:     "success shape true",
			body:     `{"success":true,"data":[1,2,3]}`,
			wantData: `[1,2,3]`,
		},
		{
			name:    "status shape error",
			body:    `{"status":"error","message":"scan failed"}`,
			wantErr: true,
		},
		{
			name:    "success shape false",
			body:    `{"success":false,"error":"engine offline"}`,
			wantErr: true,
		},
		{
			name:    "neither field set",
			body:    `{"data":{"x":1}}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			body:    `{not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := DecodeEnvelope([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeEnvelope: %v", err)
			}
			if string(data) != tt.wantData {
				t.Errorf("data = %s, want %s", data, tt.wantData)
			}
		})
	}
}

func TestDecodeEnvelopeFailureReason(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"status":"error","message":"scan failed"}`))

	var envErr *ErrEnvelope
	if !errors.As(err, &envErr) {
		t.Fatalf("error type = %T, want *ErrEnvelope", err)
	}
	if envErr.Reason != "scan failed" {
		t.Errorf("Reason = %q, want %q", envErr.Reason, "scan failed")
	}
}

func TestActionResponseOK(t *testing.T) {
	yes := true
	no := false

	tests := []struct {
		name string
		resp ActionResponse
		want bool
	}{
		{"status success", ActionResponse{Status: "success"}, true},
		{"success true", ActionResponse{Success: &yes}, true},
		{"status error", ActionResponse{Status: "error"}, false},
		{"success false", ActionResponse{Success: &no}, false},
		{"empty", ActionResponse{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.OK(); got != tt.want {
				t.Errorf("OK() = %v, want %v", got, tt.want)
			}
		})
	}
}
