// Package gigachat implements the resilient client for the GigaChat gateway:
// credential management with proactive refresh, a retrying HTTP transport,
// two completion modes (free-form and structured function-call), and the
// response extractor that normalizes both response shapes into one contract.
package gigachat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/config"
)

const (
	completionsPath = "/api/v1/chat/completions"
	embeddingsPath  = "/api/v1/embeddings"

	// bodyExcerptLimit bounds how much of an error body is carried in a
	// GatewayError.
	bodyExcerptLimit = 512
)

// Client composes the credential manager and the retrying transport into the
// gateway request surface. One Client owns one CredentialManager; neither is
// shared across processes.
type Client struct {
	apiBase   string
	creds     *CredentialManager
	transport *Transport
}

// NewClient wires a transport and credential manager from config. The
// transport invalidates the client's own credential on auth failures.
func NewClient(cfg config.GatewayConfig) *Client {
	transport := NewTransport(cfg.MaxRetries, cfg.RetryDelay, cfg.Timeout)
	creds := NewCredentialManager(cfg.AuthURL, cfg.AuthKey, cfg.Scope, transport)
	transport.SetInvalidator(creds)
	return &Client{
		apiBase:   cfg.APIBase,
		creds:     creds,
		transport: transport,
	}
}

// Credentials exposes the manager for callers that need to pre-warm or
// invalidate the token explicitly.
func (c *Client) Credentials() *CredentialManager { return c.creds }

// Complete sends a free-form chat completion request.
func (c *Client) Complete(ctx context.Context, env *RequestEnvelope) (*RawResponse, error) {
	return c.completion(ctx, env)
}

// CompleteStructured sends a completion request carrying a function schema
// set. The model is expected, but not forced, to answer with a function call;
// callers must be prepared for a free-text response as well.
func (c *Client) CompleteStructured(ctx context.Context, env *RequestEnvelope, fns []FunctionSchema, mode CallMode) (*RawResponse, error) {
	structured := *env
	structured.Functions = fns
	structured.FunctionCall = &mode
	return c.completion(ctx, &structured)
}

func (c *Client) completion(ctx context.Context, env *RequestEnvelope) (*RawResponse, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, attempts, err := c.post(ctx, c.apiBase+completionsPath, body)
	if err != nil {
		return nil, err
	}

	var raw RawResponse
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	raw.Attempts = attempts
	return &raw, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embeddings generates vector embeddings for a batch of texts.
func (c *Client) Embeddings(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingsRequest{Model: "Embeddings", Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, _, err := c.post(ctx, c.apiBase+embeddingsPath, body)
	if err != nil {
		return nil, err
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	vectors := make([][]float64, len(texts))
	for _, d := range parsed.Data {
		if d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	return vectors, nil
}

// HealthCheck verifies credentials and connectivity by embedding one probe
// string.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Embeddings(ctx, []string{"health check"})
	return err
}

// post executes an authorized JSON POST through the retrying transport and
// returns the response body plus the number of attempts the call took.
// Non-2xx responses become *GatewayError.
func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}

	resp, attempts, err := c.transport.Do(ctx, build)
	if err != nil {
		return nil, attempts, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, bodyExcerptLimit))
		return nil, attempts, &GatewayError{Status: resp.StatusCode, Body: string(excerpt)}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, attempts, fmt.Errorf("read response: %w", err)
	}
	return respBody, attempts, nil
}
