package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-facetec-relay/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const ERR_MARSHAL = "failed to marshal response message"
const ERR_DECODE_REQUEST = "failed to decode session request"
const ERR_PROVIDER_CALL = "provider session exchange failed"

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	providerClient ProviderClient
	auditStore     AuditStore
	attestor       OutcomeAttestor // nil when attestation is disabled
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		handleHealth(state, w, r)
	}).Methods(http.MethodGet)

	router.HandleFunc("/facetec/session", func(w http.ResponseWriter, r *http.Request) {
		handleRelaySession(state, w, r)
	})

	slog.Debug("Registered all API routes")

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	// The write timeout must cover the provider's full retry budget,
	// otherwise slow provider calls get cut off before the failure body
	// is written.
	writeTimeout := state.providerClient.RetryBudget() + 15*time.Second
	srv := &http.Server{
		Handler:      router,
		Addr:         addr,
		WriteTimeout: writeTimeout,
		ReadTimeout:  15 * time.Second,
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

func handleHealth(state *ServerState, w http.ResponseWriter, r *http.Request) {
	slog.Debug("Health check request received")

	body := map[string]bool{"ok": true}
	if r.URL.Query().Get("provider") == "true" {
		err := state.providerClient.HealthCheck(r.Context())
		body["provider_ok"] = err == nil
		if err != nil {
			slog.Warn("Provider health check failed", "error", err)
		}
	}

	if err := writeJSON(w, http.StatusOK, body); err != nil {
		slog.Error(ERR_MARSHAL, "error", err)
	}
}

func handleRelaySession(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	reqID := requestID(r)
	slog.Info("Received session relay request", "request_id", reqID)

	request, err := decodeSessionRequest(r)
	if err != nil {
		respondValidationFailure(w, reqID, err)
		return
	}

	if err := validateSessionRequest(request); err != nil {
		slog.Warn("Session request failed validation", "request_id", reqID, "error", err)
		respondValidationFailure(w, reqID, err)
		return
	}

	slog.Debug("Forwarding session request", "request_id", reqID, "user_id", request.UserId, "flow", request.Flow)

	// The provider call runs on a fresh context on purpose: a client that
	// disconnects mid-exchange must not cancel the in-flight provider call,
	// the provider side would be left in an unknown state otherwise. The
	// client enforces its own deadline.
	started := time.Now()
	raw, err := state.providerClient.ProcessSession(context.Background(), request.SessionRequestBlob, request.UserId, request.Flow)
	elapsed := time.Since(started)

	var response models.SessionResponse
	status := http.StatusOK

	if err != nil {
		response, status = failureOutcome(err)
		slog.Warn(ERR_PROVIDER_CALL, "request_id", reqID, "user_id", request.UserId, "reason", response.Reason, "elapsed", elapsed)
	} else {
		response = NormalizeOutcome(raw)
		attachAttestation(state, request, &response, reqID)
		slog.Info("Session relay completed", "request_id", reqID, "user_id", request.UserId, "success", response.Success, "liveness_passed", response.LivenessPassed, "elapsed", elapsed)
	}

	recordExchange(state, reqID, request, response, elapsed)

	if err := writeJSON(w, status, response); err != nil {
		slog.Error(ERR_MARSHAL, "request_id", reqID, "error", err)
	}
}

// failureOutcome maps a provider client error onto the response contract.
// No response blob is fabricated: only a blob the provider actually
// returned with its rejection is passed along.
func failureOutcome(err error) (models.SessionResponse, int) {
	response := models.SessionResponse{
		Success:        false,
		LivenessPassed: false,
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		response.Reason = provErr.Reason
		response.SessionResponseBlob = provErr.Blob
		return response, http.StatusBadGateway
	}

	// NetworkError and TimeoutError both mean the provider never answered.
	response.Reason = models.ReasonProviderUnavailable
	return response, http.StatusBadGateway
}

func attachAttestation(state *ServerState, request models.SessionRequest, response *models.SessionResponse, reqID string) {
	if state.attestor == nil {
		return
	}
	outcomeJwt, err := state.attestor.CreateOutcomeJwt(request.UserId, request.Flow, *response)
	if err != nil {
		// The exchange itself succeeded, so a missing attestation is
		// reported but does not fail the request.
		slog.Error("Failed to create outcome attestation", "request_id", reqID, "error", err)
		return
	}
	response.OutcomeJwt = outcomeJwt
}

// recordExchange writes the audit record for one relay exchange. Audit
// failures never fail the exchange.
func recordExchange(state *ServerState, reqID string, request models.SessionRequest, response models.SessionResponse, elapsed time.Duration) {
	record := models.AuditRecord{
		RecordId:       uuid.NewString(),
		RequestId:      reqID,
		UserId:         request.UserId,
		Flow:           request.Flow,
		Success:        response.Success,
		LivenessPassed: response.LivenessPassed,
		Reason:         response.Reason,
		ElapsedMs:      elapsed.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}

	if err := state.auditStore.StoreRecord(record); err != nil {
		slog.Error("Failed to store audit record", "request_id", reqID, "error", err)
	} else {
		slog.Debug("Audit record stored", "request_id", reqID, "record_id", record.RecordId)
	}
}

// -----------------------------------------------------------------------------------

// decodeSessionRequest decodes the request body
func decodeSessionRequest(r *http.Request) (models.SessionRequest, error) {
	slog.Debug("Decoding session request body")
	var request models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Warn(ERR_DECODE_REQUEST, "error", err)
		return request, &ValidationError{Field: "body"}
	}
	return request, nil
}

// validateSessionRequest checks required fields for presence only. The blob
// is opaque and must not be inspected beyond non-emptiness.
func validateSessionRequest(request models.SessionRequest) error {
	if request.SessionRequestBlob == "" {
		return &ValidationError{Field: "sessionRequestBlob"}
	}
	if request.UserId == "" {
		return &ValidationError{Field: "userId"}
	}
	return nil
}

func respondValidationFailure(w http.ResponseWriter, reqID string, cause error) {
	response := models.SessionResponse{
		Success:        false,
		LivenessPassed: false,
		Reason:         models.ReasonValidationError,
	}
	slog.Debug("Rejecting invalid session request", "request_id", reqID, "error", cause)
	if err := writeJSON(w, http.StatusBadRequest, response); err != nil {
		slog.Error(ERR_MARSHAL, "request_id", reqID, "error", err)
	}
}

// request-ID middleware ------------

type contextKey string

const requestIDKey contextKey = "request_id"

// requestIDMiddleware tags every inbound request with a UUID, echoed in the
// X-Request-Id header and attached to log lines and audit records.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// helpers ------------

func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	slog.Error(logMsg, "error", e, "status_code", code, "response_body", responseBody)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(responseBody)); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}

}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		respondWithErr(w, http.StatusMethodNotAllowed, "method not allowed", "invalid method", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
	return nil
}
