package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go-facetec-relay/models"

	"github.com/hashicorp/go-retryablehttp"
)

// ProviderClient defines the outbound call to the verification provider
type ProviderClient interface {
	// ProcessSession forwards the opaque session blob for the given user and
	// flow and returns the provider's raw response fields
	ProcessSession(ctx context.Context, blob, userId, flow string) (models.ProviderResponse, error)

	// HealthCheck verifies the provider's server-side API is reachable
	HealthCheck(ctx context.Context) error

	// RetryBudget is the upper bound on how long a single ProcessSession
	// call may take across all retry attempts
	RetryBudget() time.Duration
}

type ProviderConfig struct {
	BaseUrl        string `json:"base_url"`
	DeviceKey      string `json:"device_key,omitempty"`
	ApiKey         string `json:"api_key,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	MaxRetries     int    `json:"max_retries,omitempty"`
}

const defaultProviderTimeout = 30 * time.Second
const defaultProviderRetries = 2

// FaceTecClient implements the ProviderClient interface against the
// FaceTec server-side API
type FaceTecClient struct {
	baseURL    string
	deviceKey  string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	httpClient *retryablehttp.Client
}

// NewFaceTecClient creates a new instance of FaceTecClient. Transient
// transport failures and provider 5xx responses are retried with backoff up
// to MaxRetries; provider rejections (4xx) are never retried.
func NewFaceTecClient(config ProviderConfig) *FaceTecClient {
	timeout := defaultProviderTimeout
	if config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}
	retries := defaultProviderRetries
	if config.MaxRetries > 0 {
		retries = config.MaxRetries
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	// Hand back the last response instead of a wrapped "giving up" error so
	// exhausted 5xx retries can be told apart from transport failures.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &FaceTecClient{
		baseURL:    config.BaseUrl,
		deviceKey:  config.DeviceKey,
		apiKey:     config.ApiKey,
		timeout:    timeout,
		maxRetries: retries,
		httpClient: client,
	}
}

// ProcessSession forwards the session blob to the FaceTec API
func (c *FaceTecClient) ProcessSession(ctx context.Context, blob, userId, flow string) (models.ProviderResponse, error) {
	url := fmt.Sprintf("%s/facetec/process", c.baseURL)

	body := models.ProviderRequest{
		SessionRequestBlob:    blob,
		ExternalDatabaseRefId: userId,
		Flow:                  flow,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return models.ProviderResponse{}, fmt.Errorf("failed to marshal provider request: %w", err)
	}

	// Bound total elapsed time across all attempts, not just per attempt.
	ctx, cancel := context.WithTimeout(ctx, c.RetryBudget())
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return models.ProviderResponse{}, fmt.Errorf("failed to create provider request: %w", err)
	}
	c.setHeaders(req.Header)

	slog.Debug("Forwarding session blob to provider", "user_id", userId, "flow", flow)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return models.ProviderResponse{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		// Retries exhausted on 5xx, the provider counts as unreachable.
		return models.ProviderResponse{}, &NetworkError{Err: fmt.Errorf("provider returned status %d after %d attempts", resp.StatusCode, c.maxRetries+1)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return models.ProviderResponse{}, c.rejectionError(resp)
	}

	var raw models.ProviderResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.ProviderResponse{}, &ProviderError{
			StatusCode: resp.StatusCode,
			Reason:     models.ReasonProviderRejected,
		}
	}

	slog.Info("Provider session exchange completed", "user_id", userId, "flow", flow, "has_response_blob", raw.SessionResponseBlob != "")
	return raw, nil
}

// RetryBudget returns the total time one session exchange may take:
// the per-attempt timeout times the initial attempt plus every retry.
func (c *FaceTecClient) RetryBudget() time.Duration {
	return c.timeout * time.Duration(c.maxRetries+1)
}

// HealthCheck verifies the FaceTec API status route is reachable. The
// check is a single attempt on purpose: a liveness answer that waits out
// the whole retry backoff is worse than an honest failure.
func (c *FaceTecClient) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/facetec/status", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	c.setHeaders(req.Header)

	resp, err := c.httpClient.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute health check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(body))
	}

	slog.Info("Provider health check passed")
	return nil
}

func (c *FaceTecClient) setHeaders(header http.Header) {
	header.Set("Content-Type", "application/json")
	if c.deviceKey != "" {
		header.Set("X-Device-Key", c.deviceKey)
	}
	if c.apiKey != "" {
		header.Set("X-Api-Key", c.apiKey)
	}
}

// rejectionError builds a ProviderError from a 4xx response, carrying over
// the provider's reason and response blob when the body holds them.
func (c *FaceTecClient) rejectionError(resp *http.Response) error {
	provErr := &ProviderError{
		StatusCode: resp.StatusCode,
		Reason:     models.ReasonProviderRejected,
	}

	var raw models.ProviderResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err == nil {
		if raw.Reason != "" {
			provErr.Reason = raw.Reason
		}
		provErr.Blob = raw.SessionResponseBlob
	}

	slog.Warn("Provider rejected session request", "status_code", provErr.StatusCode, "reason", provErr.Reason)
	return provErr
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Err: err}
	}
	return &NetworkError{Err: err}
}
