package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"virtualexpo/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  domain.PaginationParams
	}{
		{"", domain.PaginationParams{Page: 1, PageSize: 20}},
		{"page=3&page_size=5", domain.PaginationParams{Page: 3, PageSize: 5}},
		{"page=0&page_size=-1", domain.PaginationParams{Page: 1, PageSize: 20}},
		{"page=abc&page_size=1e3", domain.PaginationParams{Page: 1, PageSize: 20}},
		{"page_size=500", domain.PaginationParams{Page: 1, PageSize: MaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/events/ev-1/sessions?"+tt.query, nil)
			assert.Equal(t, tt.want, ParsePagination(r))
		})
	}
}

func TestNewPaginationMeta(t *testing.T) {
	assert.Equal(t, PaginationMeta{Page: 1, PageSize: 20, Total: 41, TotalPages: 3, HasNext: true}, NewPaginationMeta(1, 20, 41))
	assert.Equal(t, PaginationMeta{Page: 3, PageSize: 20, Total: 41, TotalPages: 3}, NewPaginationMeta(3, 20, 41))
	assert.Equal(t, PaginationMeta{Page: 1, PageSize: 0, Total: 7}, NewPaginationMeta(1, 0, 7))
}

type sampleRequest struct {
	Title string `json:"title"`
}

func (s sampleRequest) Validate() []string {
	if s.Title == "" {
		return []string{"title is required"}
	}
	return nil
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
		wantMsg    string
	}{
		{name: "valid", body: `{"title":"Keynote"}`, wantOK: true},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest, wantMsg: "request body is required"},
		{name: "unknown field", body: `{"title":"x","room":"A"}`, wantStatus: http.StatusBadRequest, wantMsg: "room"},
		{name: "two objects", body: `{"title":"x"} {"title":"y"}`, wantStatus: http.StatusBadRequest, wantMsg: "single JSON object"},
		{name: "rule violation", body: `{"title":""}`, wantStatus: http.StatusBadRequest, wantMsg: "title is required"},
		{name: "too large", body: `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`, wantStatus: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/admin/events/ev-1/sessions", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			var dest sampleRequest

			ok := DecodeAndValidate(rr, r, &dest)

			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, "Keynote", dest.Title)
				return
			}
			assert.Equal(t, tt.wantStatus, rr.Code)
			var env APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
			require.NotNil(t, env.Error)
			assert.Nil(t, env.Data)
			assert.Contains(t, env.Error.Message, tt.wantMsg)
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("event ev-1: %w", domain.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{domain.InvalidArgumentf("title is required"), http.StatusBadRequest, ErrCodeBadRequest},
		{&domain.TransitionError{Kind: domain.ErrInvalidState, Action: "force-start", Current: "draft", Required: "payment_done"}, http.StatusBadRequest, ErrCodeInvalidState},
		{&domain.TransitionError{Kind: domain.ErrConflict, Action: "start session", Current: "live", Required: "scheduled"}, http.StatusConflict, ErrCodeConflict},
		{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{errors.New("dial tcp: connection refused"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteServiceError(rr, httptest.NewRequest(http.MethodPost, "/admin/events/ev-1/force-start", nil), logger, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var env APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, env.Error.Message, "connection refused")
			}
		})
	}
}
