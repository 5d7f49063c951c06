package treeow

import (
	"encoding/json"
	"errors"
	"testing"
)

func decodeBody(t *testing.T, raw string) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("test body does not decode: %v", err)
	}
	return body
}

func TestCheckEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantServer bool // expect a *ServerError (vendor rejection)
	}{
		{
			name: "meta shape success",
			body: `{"meta": {"code": 200, "message": "ok"}, "data": {}}`,
		},
		{
			name: "result shape success",
			body: `{"result": {"code": 200, "msg": "ok"}}`,
		},
		{
			name: "bare shape success",
			body: `{"code": 200, "msg": "", "data": []}`,
		},
		{
			name: "string code success",
			body: `{"code": "200", "msg": "ok"}`,
		},
		{
			name:       "meta shape failure code",
			body:       `{"meta": {"code": 401, "message": "token expired"}}`,
			wantErr:    true,
			wantServer: true,
		},
		{
			name:       "result shape failure code",
			body:       `{"result": {"code": 500, "msg": "boom"}}`,
			wantErr:    true,
			wantServer: true,
		},
		{
			name:       "error marker despite code 200",
			body:       `{"code": 200, "msg": "internal error occurred"}`,
			wantErr:    true,
			wantServer: true,
		},
		{
			name:    "unknown shape fails closed",
			body:    `{"data": {"some": "payload"}}`,
			wantErr: true,
		},
		{
			name:    "non-numeric code fails closed",
			body:    `{"code": "abc", "msg": "ok"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkEnvelope(decodeBody(t, tt.body))

			if (err != nil) != tt.wantErr {
				t.Fatalf("checkEnvelope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}

			var se *ServerError
			if got := errors.As(err, &se); got != tt.wantServer {
				t.Errorf("ServerError = %v, want %v (err: %v)", got, tt.wantServer, err)
			}
			if !tt.wantServer && !errors.Is(err, ErrProtocol) {
				t.Errorf("non-rejection failure should be ErrProtocol, got %v", err)
			}
		})
	}
}

func TestEnvelopeMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"meta": {"code": 400, "message": "bad token"}}`, "bad token"},
		{`{"result": {"code": 400, "msg": "nope"}}`, "nope"},
		{`{"code": 400, "msg": "rejected"}`, "rejected"},
		{`{"weird": true}`, "unknown error"},
	}

	for _, tt := range tests {
		if got := envelopeMessage(decodeBody(t, tt.body)); got != tt.want {
			t.Errorf("envelopeMessage(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
