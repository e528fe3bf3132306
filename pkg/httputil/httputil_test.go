package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/errors"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/logger"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestWriteJSON_BarePayload(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]any{"id": "o1", "total": 12.5})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"o1","total":12.5}`, rec.Body.String())
}

func TestWriteJSON_EmptySliceIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, []string{})
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"app not found", apperrors.NotFound("product", "p9"), http.StatusNotFound, "NOT_FOUND"},
		{"app invalid", apperrors.InvalidInput("items must not be empty"), http.StatusBadRequest, "INVALID_INPUT"},
		{"app conflict", apperrors.Conflict("duplicate request"), http.StatusConflict, "CONFLICT"},
		{"missing reference", apperrors.MissingReference("product", []string{"p9"}), http.StatusUnprocessableEntity, "MISSING_REFERENCE"},
		{"unavailable", apperrors.ServiceUnavailable("database down"), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"sentinel conflict", apperrors.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			WriteError(rec, req, tt.err, testLogger())

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestWriteError_InternalDoesNotLeakMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	WriteError(rec, req, errors.New("pq: password authentication failed"), testLogger())

	body := decodeError(t, rec)
	assert.Equal(t, "an internal error occurred", body.Message)
}

func TestWriteError_LogsWithRequestLogger(t *testing.T) {
	var buf strings.Builder
	reqLogger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := logger.NewContext(context.Background(), reqLogger)
	ctx = logger.WithCorrelationID(ctx, "req-42")
	req := httptest.NewRequest(http.MethodPost, "/api/users/u1/orders", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	WriteError(rec, req, errors.New("connection reset"), testLogger())

	assert.Contains(t, buf.String(), "connection reset")
	assert.Equal(t, "req-42", decodeError(t, rec).RequestID)
}

func TestWriteError_ValidationFields(t *testing.T) {
	type body struct {
		CustomerID string `json:"customerId" validate:"required"`
	}
	err := validator.Validate(body{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	WriteError(rec, req, err, testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Equal(t, "is required", resp.Fields["customerId"])
}

func TestDecodeError_MalformedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	DecodeError(rec, req, errors.New("decode request body: unexpected EOF"), testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Code)
	assert.Contains(t, resp.Message, "unexpected EOF")
}

func TestPathParam(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := PathParam(w, r, "id")
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"id": id})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/p1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"p1"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/%20", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id is required", decodeError(t, rec).Message)
}
