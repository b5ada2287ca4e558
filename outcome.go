package main

import (
	"log/slog"

	"go-facetec-relay/models"
)

// NormalizeOutcome maps the provider's raw response fields onto the stable
// response contract. An absent success field counts as failure, an absent
// liveness field as not passed, and a failure without a provider reason
// becomes "UNKNOWN".
func NormalizeOutcome(raw models.ProviderResponse) models.SessionResponse {
	success := raw.Success != nil && *raw.Success
	liveness := raw.WasLivenessPassed != nil && *raw.WasLivenessPassed

	reason := models.ReasonOK
	if !success {
		reason = raw.Reason
		if reason == "" {
			reason = models.ReasonUnknown
		}
	}

	slog.Debug("Normalized provider outcome", "success", success, "liveness_passed", liveness, "reason", reason)

	return models.SessionResponse{
		SessionResponseBlob: raw.SessionResponseBlob,
		Success:             success,
		LivenessPassed:      liveness,
		Reason:              reason,
	}
}
