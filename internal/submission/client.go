package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Proton-105/lessonnotes-bot/internal/errors"
	"github.com/Proton-105/lessonnotes-bot/pkg/config"
)

const maxErrorBody = 512

// DefaultTimeout bounds a generation call when the config leaves the timeout at zero.
const DefaultTimeout = 30 * time.Second

// ErrRejected indicates that the endpoint answered with a non-2xx status.
var ErrRejected = errors.New("generation request rejected")

// Generator sends a payload to the generation pipeline and reports the HTTP status.
type Generator interface {
	Generate(ctx context.Context, p Payload) (int, error)
}

// HTTPGenerator posts payloads as JSON to the configured endpoint.
type HTTPGenerator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPGenerator creates a generator for cfg.
func NewHTTPGenerator(cfg config.GenerationConfig) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: RequestTimeout(cfg)},
	}
}

// RequestTimeout is the effective limit of one generation call.
func RequestTimeout(cfg config.GenerationConfig) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return DefaultTimeout
}

// Generate makes exactly one POST attempt. Any 2xx status counts as accepted.
func (g *HTTPGenerator) Generate(ctx context.Context, p Payload) (int, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}

	status, err := g.post(ctx, body)
	if err != nil {
		return status, apperrors.NewExternalAPIError("generation", err)
	}

	return status, nil
}

func (g *HTTPGenerator) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return resp.StatusCode, nil
}
