package errors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEConstructor(t *testing.T) {
	got := bazerrs.E(
		"something went wrong",
		bazerrs.Detail{Field: "name", Error: "was bad"},
		http.StatusBadRequest,
	)
	want := &bazerrs.Error{
		Err: errors.New("something went wrong"),
		Details: []bazerrs.Detail{
			{Field: "name", Error: "was bad"},
		},
		Status: http.StatusBadRequest,
	}

	assert.Equal(t, want, got)
}

func TestEDefaultsMessageToStatusText(t *testing.T) {
	got := bazerrs.E(http.StatusNotFound)
	assert.EqualError(t, got.Err, "Not Found")
}

func TestEUnwraps(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := fmt.Errorf("outer: %w", bazerrs.E(sentinel, http.StatusConflict))

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, http.StatusConflict, bazerrs.Status(err))
	assert.Equal(t, http.StatusInternalServerError, bazerrs.Status(errors.New("plain")))
}

func TestJSONRoundTripKeepsStatus(t *testing.T) {
	byts, err := json.Marshal(bazerrs.E("bad price", http.StatusUnprocessableEntity, bazerrs.Detail{Field: "lira", Error: "required"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"bad price","status":422,"details":[{"field":"lira","error":"required"}]}`, string(byts))

	// Backend bodies usually carry only a message, so the status set beforehand must survive.
	got := &bazerrs.Error{Status: http.StatusBadGateway}
	require.NoError(t, json.Unmarshal([]byte(`{"message":"upstream down"}`), got))
	assert.Equal(t, http.StatusBadGateway, got.Status)
	assert.EqualError(t, got.Err, "upstream down")
}

func TestInvalid(t *testing.T) {
	assert.NoError(t, bazerrs.Invalid("invalid listing", nil))

	err := bazerrs.Invalid("invalid listing", []bazerrs.Detail{{Field: "title", Error: "too short"}})
	var e *bazerrs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Len(t, e.Details, 1)
}
