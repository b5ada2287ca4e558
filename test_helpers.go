package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"go-facetec-relay/models"

	"github.com/stretchr/testify/require"
)

var testConfig = ServerConfig{
	Host:           "localhost",
	Port:           8082,
	UseTls:         false,
	TlsCertPath:    "",
	TlsPrivKeyPath: "",
}

const testBaseURL = "http://localhost:8082"

func startTestServer(t *testing.T, provider ProviderClient, store AuditStore) *Server {
	t.Helper()

	testState := &ServerState{
		providerClient: provider,
		auditStore:     store,
		attestor:       nil,
	}
	return startTestServerWithState(t, testState)
}

func startTestServerWithState(t *testing.T, state *ServerState) *Server {
	t.Helper()

	srv, err := NewServer(state, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, testBaseURL+"/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})
	return srv
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

func postJSON[T any](t *testing.T, url string, payload any) (*http.Response, []byte, *T) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	}
	resp, err := http.Post(url, "application/json", body)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded *T
	var v T
	_ = json.Unmarshal(respBody, &v)
	decoded = &v

	return resp, respBody, decoded
}

func jsonDecode(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

// Request builders
type reqOpt func(*models.SessionRequest)

func withBlob(blob string) reqOpt {
	return func(r *models.SessionRequest) { r.SessionRequestBlob = blob }
}

func withUser(userId string) reqOpt {
	return func(r *models.SessionRequest) { r.UserId = userId }
}

func withFlow(flow string) reqOpt {
	return func(r *models.SessionRequest) { r.Flow = flow }
}

func newSessionReq(opts ...reqOpt) models.SessionRequest {
	r := models.SessionRequest{
		SessionRequestBlob: "blob-aaaa",
		UserId:             "user-1",
		Flow:               "enrollment",
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func boolPtr(b bool) *bool { return &b }

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// test doubles

type fakeProviderClient struct {
	mu          sync.Mutex
	calls       int
	completions int
	cancelled   int
	response    models.ProviderResponse
	err         error
	healthErr   error
	block       chan struct{} // when set, ProcessSession waits here before answering
}

func (f *fakeProviderClient) ProcessSession(ctx context.Context, _, _, _ string) (models.ProviderResponse, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			f.mu.Lock()
			f.cancelled++
			f.mu.Unlock()
			return models.ProviderResponse{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions++
	if f.err != nil {
		return models.ProviderResponse{}, f.err
	}
	return f.response, nil
}

func (f *fakeProviderClient) HealthCheck(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthErr
}

func (f *fakeProviderClient) RetryBudget() time.Duration {
	return 30 * time.Second
}

func (f *fakeProviderClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProviderClient) completionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completions
}

func (f *fakeProviderClient) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

type fakeAttestor struct{ jwt string }

func (f fakeAttestor) CreateOutcomeJwt(_, _ string, _ models.SessionResponse) (string, error) {
	return f.jwt, nil
}
