package serverutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/jdholdren/bazaar/internal/market"
)

type body struct {
	Name string `json:"name"`
}

func (b body) Validate() error {
	if b.Name == "" {
		return bazerrs.Invalid("invalid body", []bazerrs.Detail{{Field: "name", Error: "required"}})
	}
	return nil
}

func TestHandlerFuncEWritesStructuredErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "structured", err: bazerrs.E("too long", http.StatusUnprocessableEntity), wantStatus: http.StatusUnprocessableEntity, wantMsg: "too long"},
		{name: "wrapped not found", err: fmt.Errorf("error fetching: %w", market.ErrNotFound), wantStatus: http.StatusNotFound, wantMsg: market.ErrNotFound.Error()},
		{name: "unauthorized", err: market.ErrUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "plain error stays private", err: errors.New("db exploded"), wantStatus: http.StatusInternalServerError, wantMsg: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				rec = httptest.NewRecorder()
				req = httptest.NewRequest(http.MethodGet, "/", nil)
			)
			HandlerFuncE(func(w http.ResponseWriter, r *http.Request) error { return tt.err }).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got bazerrs.Error
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, got.Err.Error())
			}
		})
	}
}

func TestDecodeValid(t *testing.T) {
	_, err := DecodeValid[body](strings.NewReader(`{`))
	assert.Equal(t, http.StatusBadRequest, bazerrs.Status(err))

	_, err = DecodeValid[body](strings.NewReader(`{}`))
	var e *bazerrs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Equal(t, "name", e.Details[0].Field)

	b, err := DecodeValid[body](strings.NewReader(`{"name":"lamp"}`))
	require.NoError(t, err)
	assert.Equal(t, "lamp", b.Name)
}

func TestAccessLogMiddlewarePassesThrough(t *testing.T) {
	r := ErrRouter{Router: mux.NewRouter()}
	r.Use(AccessLogMiddleware)
	r.HandleFuncE("/teapot", func(w http.ResponseWriter, r *http.Request) error {
		return WriteJSON(w, http.StatusTeapot, map[string]string{"ok": "yes"})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}
