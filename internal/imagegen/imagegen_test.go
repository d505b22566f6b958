package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var got generationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"url":"https://img.example.com/a.png"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "key", "dall-e-3", time.Second)
	u, err := c.Generate(context.Background(), "  a cat  ", "")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/a.png", u)
	assert.Equal(t, "a cat", got.Prompt)
	assert.Equal(t, DefaultSize, got.Size)
	assert.Equal(t, 1, got.N)
}

func TestGenerateInline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"b64_json":"aGk="}]}`))
	}))
	defer srv.Close()

	u, err := NewClient(srv.URL, "key", "", time.Second).Generate(context.Background(), "x", "512x512")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGk=", u)
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "key", "", time.Second).Generate(context.Background(), "x", "")
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	assert.Equal(t, "rate limited", ue.Message)
}

func TestGenerateResponseLimit(t *testing.T) {
	body := `{"data":[{"b64_json":"` + strings.Repeat("A", 256) + `"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "", time.Second)
	c.maxBody = 64
	_, err := c.Generate(context.Background(), "x", "")
	assert.Equal(t, ErrTooLarge, err)

	c.maxBody = int64(len(body))
	u, err := c.Generate(context.Background(), "x", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "data:image/png;base64,AAAA"))
}

func TestGenerateGuards(t *testing.T) {
	_, err := NewClient("http://unused", "", "", time.Second).Generate(context.Background(), "x", "")
	assert.Equal(t, ErrNotConfigured, err)

	_, err = NewClient("http://unused", "key", "", time.Second).Generate(context.Background(), " ", "")
	assert.Equal(t, ErrEmptyPrompt, err)
}
