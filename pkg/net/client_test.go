package net

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPClient(t *testing.T) {
	client, err := GetHTTPClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, client.Jar)
}

func TestPrintHTTPResponse_Nil(t *testing.T) {
	// should not panic
	PrintHTTPResponse(nil)
}

func TestPrintHTTPResponse_WithResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       http.NoBody,
	}
	// should not panic
	PrintHTTPResponse(resp)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/model.json":
			assert.Equal(t, clientAgent, r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(`{"format":"dropwatch.classifier"}`))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	b, err := Fetch(ctx, srv.URL+"/model.json")
	require.NoError(t, err)
	assert.Equal(t, `{"format":"dropwatch.classifier"}`, string(b))

	_, err = Fetch(ctx, srv.URL+"/missing")
	assert.True(t, errors.Is(err, ErrorURLNotFound))

	_, err = Fetch(ctx, srv.URL+"/broken")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status: 500")
}

func TestFetch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fetch(ctx, "http://127.0.0.1:1/model.json")
	assert.True(t, errors.Is(err, context.Canceled))
}
