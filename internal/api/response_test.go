package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/repo"
)

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ok      bool
		wantMsg string
	}{
		{"valid", `{"task_type": "delay"}`, true, ""},
		{"empty", ``, false, "request body is empty"},
		{"malformed", `{"task_type":`, false, "invalid request body"},
		{"too large", `{"input": "` + strings.Repeat("x", maxBodyBytes) + `"}`, false, "request body is too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst RunTaskRequest
			if got := decodeBody(rec, r, &dst); got != tt.ok {
				t.Fatalf("decodeBody = %v, want %v", got, tt.ok)
			}
			if tt.ok {
				return
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if rec.Code != http.StatusBadRequest || resp.Error.Message != tt.wantMsg {
				t.Errorf("got %d %q, want 400 %q", rec.Code, resp.Error.Message, tt.wantMsg)
			}
		})
	}
}

func TestHandleRepoError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))

	tests := []struct {
		name        string
		err         error
		notFoundMsg string
		wantStatus  int
		wantCode    ErrorCode
		wantMsg     string
	}{
		{"not found with message", repo.ErrNotFound, "job not found", http.StatusNotFound, ErrCodeNotFound, "job not found"},
		{"conflict", repo.ErrAlreadyExists, "", http.StatusConflict, ErrCodeConflict, repo.ErrAlreadyExists.Error()},
		{"dangling reference", fmt.Errorf("insert work: %w", repo.ErrReferenceNotFound), "", http.StatusBadRequest, ErrCodeBadRequest, "insert work: referenced artist not found"},
		{"invalid entity", fmt.Errorf("%w: name is required", domain.ErrInvalidEntity), "", http.StatusBadRequest, ErrCodeBadRequest, "invalid entity: name is required"},
		{"unexpected", fmt.Errorf("connection reset"), "", http.StatusInternalServerError, ErrCodeInternalError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if !HandleRepoError(rec, logger, tt.err, tt.notFoundMsg) {
				t.Fatal("expected error to be handled")
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if rec.Code != tt.wantStatus || resp.Error.Code != tt.wantCode || resp.Error.Message != tt.wantMsg {
				t.Errorf("got %d %s %q", rec.Code, resp.Error.Code, resp.Error.Message)
			}
		})
	}

	if HandleRepoError(httptest.NewRecorder(), logger, nil, "") {
		t.Error("nil error must not be handled")
	}
}
