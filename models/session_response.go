package models

// Reason codes returned to the client. These are stable regardless of
// which provider version sits behind the relay.
const (
	ReasonOK                  = "OK"
	ReasonUnknown             = "UNKNOWN"
	ReasonValidationError     = "VALIDATION_ERROR"
	ReasonProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ReasonProviderRejected    = "PROVIDER_REJECTED"
)

// SessionResponse is the normalized outcome returned to the mobile client.
// SessionResponseBlob is passed through from the provider unmodified.
type SessionResponse struct {
	SessionResponseBlob string `json:"sessionResponseBlob"`
	Success             bool   `json:"success"`
	LivenessPassed      bool   `json:"livenessPassed"`
	Reason              string `json:"reason"`
	OutcomeJwt          string `json:"outcomeJwt,omitempty"` // set when attestation is configured
}
