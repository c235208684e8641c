package gigachat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/config"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/gigachat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatewayFixture is a fake GigaChat gateway serving both the OAuth exchange
// and the completion/embedding endpoints.
type gatewayFixture struct {
	srv *httptest.Server

	completions func(w http.ResponseWriter, body map[string]any)
	exchanges   int
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	f := &gatewayFixture{}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth", func(w http.ResponseWriter, r *http.Request) {
		f.exchanges++
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_at":   time.Now().Add(30 * time.Minute).UnixMilli(),
		})
	})
	mux.HandleFunc("/api/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.completions(w, body)
	})
	mux.HandleFunc("/api/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float64{0.1, 0.2}, "index": 0},
			},
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *gatewayFixture) client() *gigachat.Client {
	return gigachat.NewClient(config.GatewayConfig{
		APIBase:    f.srv.URL,
		AuthURL:    f.srv.URL + "/oauth",
		AuthKey:    "basic-key",
		Scope:      "GIGACHAT_API_PERS",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	})
}

func TestComplete_ParsesResponse(t *testing.T) {
	f := newGatewayFixture(t)
	f.completions = func(w http.ResponseWriter, body map[string]any) {
		assert.Equal(t, "GigaChat-Max", body["model"])
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "hello"},
			}},
			"usage": map[string]any{"total_tokens": 7},
		})
	}

	env := &gigachat.RequestEnvelope{
		Model:       "GigaChat-Max",
		Messages:    []gigachat.Message{{Role: gigachat.RoleUser, Content: "hi"}},
		Temperature: 0.7,
	}
	raw, err := f.client().Complete(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, raw.Choices, 1)
	assert.Equal(t, "hello", raw.Choices[0].Message.Content)
	require.NotNil(t, raw.Usage)
	assert.Equal(t, 7, raw.Usage.TotalTokens)
	assert.Equal(t, 1, f.exchanges, "one token exchange for the call")
	assert.Equal(t, 1, raw.Attempts, "clean call took a single attempt")
}

func TestComplete_ReportsAttemptsAfterRetry(t *testing.T) {
	f := newGatewayFixture(t)
	calls := 0
	f.completions = func(w http.ResponseWriter, body map[string]any) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "eventually"},
			}},
		})
	}

	env := &gigachat.RequestEnvelope{
		Model:    "GigaChat-Max",
		Messages: []gigachat.Message{{Role: gigachat.RoleUser, Content: "hi"}},
	}
	raw, err := f.client().Complete(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, raw.Attempts, "a success after a retry reports the true attempt count")
}

func TestCompleteStructured_SendsSchemasWithoutMutatingEnvelope(t *testing.T) {
	f := newGatewayFixture(t)
	f.completions = func(w http.ResponseWriter, body map[string]any) {
		fns, ok := body["functions"].([]any)
		require.True(t, ok, "wire request must carry functions")
		require.Len(t, fns, 1)
		assert.Equal(t, "auto", body["function_call"])
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"finish_reason": "function_call",
				"message": map[string]any{
					"function_call": map[string]any{
						"name":      "code_analysis",
						"arguments": `{"summary":"ok"}`,
					},
				},
			}},
		})
	}

	env := &gigachat.RequestEnvelope{
		Model:    "GigaChat-Max",
		Messages: []gigachat.Message{{Role: gigachat.RoleUser, Content: "analyze"}},
	}
	fns := []gigachat.FunctionSchema{{
		Name:       "code_analysis",
		Parameters: map[string]any{"type": "object"},
	}}

	raw, err := f.client().CompleteStructured(context.Background(), env, fns, gigachat.CallAuto)
	require.NoError(t, err)

	res := gigachat.Extract(raw, "code_analysis")
	require.True(t, res.IsStructured())
	assert.Equal(t, "ok", res.Structured["summary"])

	// The caller's envelope stays untouched.
	assert.Nil(t, env.Functions)
	assert.Nil(t, env.FunctionCall)
}

func TestComplete_PersistentErrorStatusBecomesGatewayError(t *testing.T) {
	f := newGatewayFixture(t)
	f.completions = func(w http.ResponseWriter, body map[string]any) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream capacity exceeded"))
	}

	env := &gigachat.RequestEnvelope{Model: "GigaChat-Max"}
	_, err := f.client().Complete(context.Background(), env)
	require.Error(t, err)

	var ge *gigachat.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, http.StatusServiceUnavailable, ge.Status)
	assert.Contains(t, ge.Body, "capacity exceeded")
}

func TestEmbeddingsAndHealthCheck(t *testing.T) {
	f := newGatewayFixture(t)

	vectors, err := f.client().Embeddings(context.Background(), []string{"probe"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, []float64{0.1, 0.2}, vectors[0])

	assert.NoError(t, f.client().HealthCheck(context.Background()))
}
