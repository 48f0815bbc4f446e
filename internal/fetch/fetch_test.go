package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<rss><channel><item><title>Test</title></item></channel></rss>"))
	}))
	defer server.Close()

	result, err := NewFetcher(nil).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.Body, "<title>Test</title>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "application/rss+xml", result.ContentType)
}

func TestGet_InvalidURL(t *testing.T) {
	_, err := NewFetcher(nil).Get(context.Background(), "not-a-valid-url")
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestGet_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result, err := NewFetcher(nil).Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.NotNil(t, result) // Result is returned even on error
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "500")
}

func TestFetcher_SendsHeaders(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := NewFetcher(&Options{Headers: map[string]string{"Accept": "application/rss+xml"}})
	_, err := f.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "application/rss+xml", gotAccept)
}

func TestFetcher_DecodesCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=iso-8859-1")
		_, _ = w.Write([]byte("caf\xe9"))
	}))
	defer server.Close()

	result, err := NewFetcher(nil).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "café", result.Body)
}

func TestFetcher_MaxBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	result, err := NewFetcher(&Options{MaxBytes: 4}).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123", result.Body)
}

func TestFetcher_LimiterHonorsContext(t *testing.T) {
	f := NewFetcher(&Options{RequestsPerSecond: 0.001, Burst: 1})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := f.Get(context.Background(), server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Get(ctx, server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestFetcher_DecodesXMLDeclaredCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><t>caf` + "\xe9" + `</t>`))
	}))
	defer server.Close()

	result, err := NewFetcher(nil).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, result.Body, "<t>café</t>")
}

func TestFetcher_DefaultsToUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte("<title>Año nuevo</title>"))
	}))
	defer server.Close()

	result, err := NewFetcher(nil).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<title>Año nuevo</title>", result.Body)
}
