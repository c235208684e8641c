package gigachat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// tokenSafetyMargin is subtracted from the server-issued expiry so a token is
// never presented in the window where server-side expiry could race us.
const tokenSafetyMargin = 5 * time.Minute

// CredentialManager owns the short-lived access token for the gateway. It is
// the sole mutator of the credential; callers only ever read via Token.
//
// Safe for concurrent use across orchestration runs: reads of a valid cached
// token take a shared lock, and concurrent refreshes collapse onto a single
// exchange call.
type CredentialManager struct {
	authURL   string
	authKey   string
	scope     string
	transport *Transport

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	now func() time.Time
}

// NewCredentialManager creates a manager that exchanges authKey for access
// tokens at authURL. The exchange itself goes through the retrying transport.
func NewCredentialManager(authURL, authKey, scope string, transport *Transport) *CredentialManager {
	return &CredentialManager{
		authURL:   authURL,
		authKey:   authKey,
		scope:     scope,
		transport: transport,
		now:       time.Now,
	}
}

// Token returns a valid bearer token, refreshing transparently when the
// cached one is absent or inside the safety margin.
func (m *CredentialManager) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	if m.token != "" && m.now().Before(m.expiresAt) {
		token := m.token
		m.mu.RUnlock()
		return token, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if m.token != "" && m.now().Before(m.expiresAt) {
		return m.token, nil
	}

	token, expiresAt, err := m.exchange(ctx)
	if err != nil {
		// Prior state stays untouched: a still-valid token is never cleared
		// speculatively on a failed refresh.
		return "", err
	}

	m.token = token
	m.expiresAt = expiresAt
	log.Info().Time("expires_at", expiresAt).Msg("obtained new gateway access token")
	return m.token, nil
}

// Invalidate drops the cached token so the next Token call performs a fresh
// exchange. Called by the transport on 401/403 responses.
func (m *CredentialManager) Invalidate() {
	m.mu.Lock()
	m.token = ""
	m.expiresAt = time.Time{}
	m.mu.Unlock()
}

type oauthResponse struct {
	AccessToken string `json:"access_token"`
	// ExpiresAt is epoch milliseconds.
	ExpiresAt int64 `json:"expires_at"`
}

// exchange performs the OAuth-style token exchange: a form POST authorized
// with the long-lived Basic key, identified by a fresh RqUID.
func (m *CredentialManager) exchange(ctx context.Context) (string, time.Time, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL,
			strings.NewReader("scope="+m.scope))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("RqUID", uuid.New().String())
		req.Header.Set("Authorization", "Basic "+m.authKey)
		return req, nil
	}

	resp, _, err := m.transport.Do(ctx, build)
	if err != nil {
		return "", time.Time{}, &AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		drainAuth(resp.Body)
		return "", time.Time{}, &AuthError{Status: resp.StatusCode}
	}

	var parsed oauthResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", time.Time{}, &AuthError{Err: err}
	}
	if parsed.AccessToken == "" {
		return "", time.Time{}, &AuthError{Err: errEmptyToken}
	}

	expiresAt := time.UnixMilli(parsed.ExpiresAt).Add(-tokenSafetyMargin)
	return parsed.AccessToken, expiresAt, nil
}

var errEmptyToken = errors.New("token exchange response carried no access_token")

func drainAuth(body io.Reader) {
	io.Copy(io.Discard, io.LimitReader(body, 4096))
}
