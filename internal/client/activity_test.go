package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atc-endorsement-api/pkg/config"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
)

func TestActivityClientFetchesMinutes(t *testing.T) {
	var gotPath, gotPosition, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPosition = r.URL.Query().Get("position")
		gotAuth = r.Header.Get("Authorization")
		assert.NotEmpty(t, r.URL.Query().Get("from"))
		assert.NotEmpty(t, r.URL.Query().Get("to"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"minutes": 240}`)) //nolint:errcheck
	}))
	defer server.Close()

	c := NewActivityClient(config.ActivityAPIConfig{BaseURL: server.URL, Token: "tok"}, nil)
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	minutes, err := c.FetchActivityMinutes(context.Background(), "c1", "EDDF_TWR", end.AddDate(0, 0, -180), end)
	require.NoError(t, err)
	assert.Equal(t, 240, minutes)
	assert.Equal(t, "/controllers/c1/activity", gotPath)
	assert.Equal(t, "EDDF_TWR", gotPosition)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestActivityClientNon2xxIsFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewActivityClient(config.ActivityAPIConfig{BaseURL: server.URL}, nil)
	_, err := c.FetchActivityMinutes(context.Background(), "c1", "EDDF_TWR", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrExternalFetch))
}

func TestActivityClientRejectsNegativeMinutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"minutes": -5}`)) //nolint:errcheck
	}))
	defer server.Close()

	c := NewActivityClient(config.ActivityAPIConfig{BaseURL: server.URL}, nil)
	_, err := c.FetchActivityMinutes(context.Background(), "c1", "EDDF_TWR", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrExternalFetch))
}

func TestActivityClientUnreachableHost(t *testing.T) {
	c := NewActivityClient(config.ActivityAPIConfig{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, nil)
	_, err := c.FetchActivityMinutes(context.Background(), "c1", "EDDF_TWR", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrExternalFetch))
}
