package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/liquidation-ocr/internal/ocr"
)

func TestClient_Recognize(t *testing.T) {
	var got annotateRequest
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Goog-Api-Key")
		assert.Empty(t, r.URL.RawQuery)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"responses":[{"fullTextAnnotation":{"text":"Coniuge Maria Rossi 50%","pages":[{"confidence":0.97},{"confidence":0.95}]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "secret", Endpoint: srv.URL}, srv.Client(), nil)
	res, err := c.Recognize(context.Background(), ocr.Input{Image: []byte("png"), Languages: []string{"it", "en"}})
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	require.Len(t, got.Requests, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png")), got.Requests[0].Image.Content)
	assert.Equal(t, "DOCUMENT_TEXT_DETECTION", got.Requests[0].Features[0].Type)
	assert.Equal(t, []string{"it", "en"}, got.Requests[0].ImageContext.LanguageHints)
	assert.Equal(t, "Coniuge Maria Rossi 50%", res.Text)
	assert.InDelta(t, 96.0, res.Confidence, 1e-9)
}

func TestClient_TextAnnotationFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"responses":[{"textAnnotations":[{"description":"Figlio 1/2","confidence":0.9}]}]}`)
	}))
	defer srv.Close()

	res, err := NewClient(Config{APIKey: "k", Endpoint: srv.URL}, nil, nil).Recognize(context.Background(), ocr.Input{})
	require.NoError(t, err)
	assert.Equal(t, "Figlio 1/2", res.Text)
	assert.InDelta(t, 90.0, res.Confidence, 1e-9)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusForbidden, `{"error":{"message":"denied"}}`},
		{"api error", http.StatusOK, `{"responses":[{"error":{"code":3,"message":"bad image"}}]}`},
		{"empty", http.StatusOK, `{"responses":[]}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(Config{APIKey: "k", Endpoint: srv.URL}, nil, nil).Recognize(context.Background(), ocr.Input{})
			assert.Error(t, err)
		})
	}
}

func TestClient_MissingKey(t *testing.T) {
	_, err := NewClient(Config{}, nil, nil).Recognize(context.Background(), ocr.Input{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestClient_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	const key = "SECRET-KEY-123"
	_, err := NewClient(Config{APIKey: key, Endpoint: endpoint}, nil, logger).Recognize(context.Background(), ocr.Input{Image: []byte("png")})
	require.Error(t, err)

	assert.NotContains(t, err.Error(), key)
	assert.True(t, strings.Contains(logs.String(), "vision.http.send_error"))
	assert.NotContains(t, logs.String(), key)
}
