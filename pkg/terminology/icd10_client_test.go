package terminology

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sympdx-server/internal/domain"
)

const searchResponse = `[2, ["J10.1", "J11.1"], null, [["J10.1", "Influenza due to other identified influenza virus"], ["J11.1", "Influenza due to unidentified influenza virus"]]]`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(domain.TerminologyConfig{
		BaseURL:   server.URL,
		RateLimit: 1000,
	})
	return client, server
}

func TestClient_Search(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "influenza", r.URL.Query().Get("terms"))
		fmt.Fprint(w, searchResponse)
	})

	codes, err := client.Search(context.Background(), "influenza", 10)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Equal(t, "J10.1", codes[0].Code)
	assert.Equal(t, "Influenza due to other identified influenza virus", codes[0].Description)
}

func TestClient_Search_EmptyTerm(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse)
	})

	_, err := client.Search(context.Background(), "  ", 10)
	require.Error(t, err)
}

func TestClient_Search_CachesResults(t *testing.T) {
	var hits int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, searchResponse)
	})

	for i := 0; i < 3; i++ {
		_, err := client.Search(context.Background(), "influenza", 10)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestClient_Lookup(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse)
	})

	code, err := client.Lookup(context.Background(), "j11.1")
	require.NoError(t, err)
	assert.Equal(t, "J11.1", code.Code)
}

func TestClient_Lookup_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[0, [], null, []]`)
	})

	_, err := client.Lookup(context.Background(), "Z99.9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClient_Search_UpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := client.Search(context.Background(), "influenza", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
