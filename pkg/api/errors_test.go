package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with param",
			NewInvalidRequestError("skill_ids", "at least one skill ID is required"),
			"invalid_request: at least one skill ID is required (param: skill_ids)",
		},
		{
			"without param",
			NewServerError("internal failure"),
			"server_error: internal failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewUpstreamError(t *testing.T) {
	err := NewUpstreamError(529, "overloaded")
	if err.Type != ErrorTypeUpstreamError {
		t.Errorf("Type = %q, want %q", err.Type, ErrorTypeUpstreamError)
	}
	if !strings.HasPrefix(err.Message, UpstreamErrorPrefix) {
		t.Errorf("Message = %q, want prefix %q", err.Message, UpstreamErrorPrefix)
	}
	if err.Code != "upstream_529" {
		t.Errorf("Code = %q, want %q", err.Code, "upstream_529")
	}

	if noStatus := NewUpstreamError(0, "x"); noStatus.Code != "" {
		t.Errorf("Code = %q, want empty when status is unknown", noStatus.Code)
	}
}

func TestErrorResponseOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(ErrorResponse{Error: NewUnauthorizedError("missing bearer token")})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["error"]["type"] != "unauthorized" {
		t.Errorf("error.type = %v, want unauthorized", m["error"]["type"])
	}
	if _, ok := m["error"]["code"]; ok {
		t.Error("empty code should be omitted from JSON")
	}
	if _, ok := m["error"]["param"]; ok {
		t.Error("empty param should be omitted from JSON")
	}
}
