// Package mint calls the external achievement-token collaborator. Minting is
// fire-and-forget: failures are logged by the caller and never block or roll
// back a role assignment.
package mint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Minter requests an achievement token for a user.
type Minter interface {
	Mint(ctx context.Context, userID, achievement string) error
}

const (
	requestTimeout = 10 * time.Second
	maxAttempts    = 3
	retryBackoff   = 200 * time.Millisecond
)

// HTTPMinter posts mint requests to the ledger endpoint.
type HTTPMinter struct {
	endpoint string
	client   *http.Client
}

// NewHTTPMinter builds a minter for the given endpoint.
func NewHTTPMinter(endpoint string) *HTTPMinter {
	return &HTTPMinter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

type mintRequest struct {
	UserID      string `json:"userId"`
	Achievement string `json:"achievement"`
}

// Mint posts the request, retrying transient failures with backoff.
func (m *HTTPMinter) Mint(ctx context.Context, userID, achievement string) error {
	body, err := json.Marshal(mintRequest{UserID: userID, Achievement: achievement})
	if err != nil {
		return fmt.Errorf("marshal mint request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build mint request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("mint endpoint returned %s", resp.Status)
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return fmt.Errorf("mint failed after %d attempts: %w", maxAttempts, lastErr)
}

// Nop is a minter that does nothing, used when no endpoint is configured.
type Nop struct{}

// Mint implements Minter.
func (Nop) Mint(context.Context, string, string) error { return nil }
