package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClientRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "v", body["k"])
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	c := newAPIClient("steel", srv.URL, nil, testLogger())
	c.retryInterval = 0

	req, err := c.NewRequest(context.Background(), "POST", "/x", map[string]string{"k": "v"})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.Do(req, &out))
	assert.Equal(t, "yes", out["ok"])
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestAPIClientGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "still broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newAPIClient("steel", srv.URL, nil, testLogger())
	c.retryInterval = 0

	req, err := c.NewRequest(context.Background(), "GET", "/x", nil)
	require.NoError(t, err)

	err = c.Do(req, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.EqualValues(t, maxRetries, atomic.LoadInt32(&calls))
}

func TestAPIClientDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"message":"bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newAPIClient("kernel", srv.URL, nil, testLogger())
	c.retryInterval = 0

	req, err := c.NewRequest(context.Background(), "GET", "/x", nil)
	require.NoError(t, err)

	err = c.Do(req, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "bad request")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestAPIClientSetsAuthHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newAPIClient("kernel", srv.URL, map[string]string{"Authorization": "Bearer tok"}, testLogger())

	req, err := c.NewRequest(context.Background(), "GET", "/x", nil)
	require.NoError(t, err)
	require.NoError(t, c.Do(req, nil))
}
