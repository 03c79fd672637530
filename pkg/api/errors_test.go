package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAPIErrorMessage(t *testing.T) {
	err := NewInvalidRequestError("files", "file is not valid UTF-8")
	msg := err.Error()
	if !strings.Contains(msg, "invalid_request") {
		t.Errorf("Error() = %q, missing type", msg)
	}
	if !strings.Contains(msg, "files") {
		t.Errorf("Error() = %q, missing param", msg)
	}
}

func TestAPIErrorMessageWithoutParam(t *testing.T) {
	err := NewServerError("error during document ingestion")
	if strings.Contains(err.Error(), "param") {
		t.Errorf("Error() = %q, unexpected param fragment", err.Error())
	}
}

func TestErrorResponseJSON(t *testing.T) {
	resp := ErrorResponse{Error: NewServerError("boom")}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Error.Type != string(ErrorTypeServerError) {
		t.Errorf("type = %q, want %q", decoded.Error.Type, ErrorTypeServerError)
	}
	if decoded.Error.Message != "boom" {
		t.Errorf("message = %q, want %q", decoded.Error.Message, "boom")
	}
}
