package gigachat

import "fmt"

// AuthError means the OAuth credential exchange failed. The previously cached
// token, if any, is left untouched.
type AuthError struct {
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("credential exchange failed: status %d", e.Status)
	}
	return fmt.Sprintf("credential exchange failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError means retries were exhausted on transient network faults.
// Attempts is the number of attempts actually made.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// GatewayError means the remote service returned a persistent non-success
// status. Body holds an excerpt of the response for diagnostics.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway returned status %d: %s", e.Status, e.Body)
}
