package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formsearch/internal/domain"
)

func TestSearch_PostsRequestAndDecodesResponse(t *testing.T) {
	var got domain.SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"key":"ZIP","question":"Zip code","rank":1,"confidence_percent":91.5}],"query":"zip","strategy":"memory","elapsed_ms":1.25,"total_results":1}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/"})
	resp, err := c.Search(context.Background(), domain.SearchRequest{Query: "zip", Strategy: domain.StrategyMemory, TopN: 5})
	require.NoError(t, err)

	assert.Equal(t, domain.SearchRequest{Query: "zip", Strategy: domain.StrategyMemory, TopN: 5}, got)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "ZIP", resp.Results[0].Key)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Nil(t, resp.Results[0].HighlightedQuestion)
	assert.InDelta(t, 1.25, resp.ElapsedMS, 1e-9)
}

func TestSearch_ServiceUnavailableIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Backend service is not running."}`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Search(context.Background(), domain.SearchRequest{Query: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Unavailable())
	assert.Equal(t, "Backend service is not running.", apiErr.Message)
}

func TestSearch_GenericFailureCarriesDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Search failed","details":"backend search failed: 502"}`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Search(context.Background(), domain.SearchRequest{Query: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.False(t, apiErr.Unavailable())
	assert.Equal(t, "gateway 500: Search failed: backend search failed: 502", apiErr.Error())
}

func TestSearch_MalformedBodyIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Search(context.Background(), domain.SearchRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode /api/search response")
}

func TestSearch_HonoursContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{BaseURL: srv.URL}).Search(ctx, domain.SearchRequest{Query: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStrategies_DecodesCatalogue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/strategies", r.URL.Path)
		_, _ = w.Write([]byte(`{"strategies":[{"id":"memory","name":"In-Memory Index","description":"Fast TF-IDF based search"}]}`))
	}))
	defer srv.Close()

	got, err := New(Config{BaseURL: srv.URL}).Strategies(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.StrategyMemory, got[0].ID)
	assert.Equal(t, "In-Memory Index", got[0].Name)
}
