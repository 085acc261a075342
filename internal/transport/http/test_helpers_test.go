package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cohortlabs/cohort-hub/internal/auth"
	"github.com/cohortlabs/cohort-hub/internal/config"
	"github.com/cohortlabs/cohort-hub/internal/core"
	"github.com/cohortlabs/cohort-hub/internal/mint"
	"github.com/cohortlabs/cohort-hub/internal/store"
	"github.com/cohortlabs/cohort-hub/internal/store/sqlite"
)

type testServer struct {
	ts    *httptest.Server
	hub   *core.Hub
	auth  *auth.Service
	store store.Store
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	logger := zerolog.Nop()
	hub := core.NewHub(core.DefaultOptions(), st, &logger)

	server := NewServer(hub, authService, st, mint.Nop{}, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, hub: hub, auth: authService, store: st}
}

// registerUser creates a user with the given role and returns a token
// carrying it.
func (s *testServer) registerUser(t *testing.T, username, role string) (token, userID string) {
	t.Helper()
	ctx := context.Background()

	token, err := s.auth.Register(ctx, username, username, "secret123")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		t.Fatalf("lookup %s: %v", username, err)
	}
	if role != "" && role != "member" {
		if err := s.auth.AssignRole(ctx, user.ID, role); err != nil {
			t.Fatalf("assign role: %v", err)
		}
		if token, err = s.auth.Login(ctx, username, "secret123"); err != nil {
			t.Fatalf("login after promotion: %v", err)
		}
	}
	return token, user.ID
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}
