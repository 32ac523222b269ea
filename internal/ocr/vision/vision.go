// Package vision recognizes pages with Google Cloud Vision DOCUMENT_TEXT_DETECTION.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/liquidation-ocr/internal/ocr"
)

const DefaultEndpoint = "https://vision.googleapis.com/v1/images:annotate"

const apiKeyHeader = "X-Goog-Api-Key"

var ErrMissingAPIKey = errors.New("vision: api key not configured")

type Config struct {
	APIKey            string
	Endpoint          string
	RequestsPerSecond float64
	Burst             int
	HTTPTimeout       time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{cfg: cfg, http: httpClient, limiter: rate.NewLimiter(limit, burst), logger: logger}
}

func (c *Client) Name() string { return "vision" }

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image        imagePayload  `json:"image"`
	Features     []feature     `json:"features"`
	ImageContext *imageContext `json:"imageContext,omitempty"`
}

type imagePayload struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type imageContext struct {
	LanguageHints []string `json:"languageHints,omitempty"`
}

type annotateResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text  string `json:"text"`
			Pages []struct {
				Confidence float64 `json:"confidence"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		TextAnnotations []struct {
			Description string  `json:"description"`
			Confidence  float64 `json:"confidence"`
		} `json:"textAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func (c *Client) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if c.cfg.APIKey == "" {
		return ocr.Result{}, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return ocr.Result{}, fmt.Errorf("vision rate limit: %w", err)
	}

	req := annotateRequest{Requests: []imageRequest{{
		Image:    imagePayload{Content: base64.StdEncoding.EncodeToString(in.Image)},
		Features: []feature{{Type: "DOCUMENT_TEXT_DETECTION"}},
	}}}
	if len(in.Languages) > 0 {
		req.Requests[0].ImageContext = &imageContext{LanguageHints: in.Languages}
	}

	headers := http.Header{}
	headers.Set(apiKeyHeader, c.cfg.APIKey)
	raw, status, err := sendJSON(ctx, c.http, c.cfg.Endpoint, headers, req, c.logger)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("vision annotate (status %d): %w", status, err)
	}

	var resp annotateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ocr.Result{}, fmt.Errorf("decode vision response: %w", err)
	}
	if len(resp.Responses) == 0 {
		return ocr.Result{}, errors.New("vision: empty response")
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return ocr.Result{}, fmt.Errorf("vision: %d %s", r.Error.Code, r.Error.Message)
	}

	var text string
	var conf float64
	if r.FullTextAnnotation != nil {
		text = r.FullTextAnnotation.Text
		if n := len(r.FullTextAnnotation.Pages); n > 0 {
			for _, p := range r.FullTextAnnotation.Pages {
				conf += p.Confidence
			}
			conf /= float64(n)
		}
	}
	if len(r.TextAnnotations) > 0 {
		if text == "" {
			text = r.TextAnnotations[0].Description
		}
		if conf == 0 {
			conf = r.TextAnnotations[0].Confidence
		}
	}
	// vision reports 0..1
	return ocr.Result{Text: text, Confidence: conf * 100}, nil
}
