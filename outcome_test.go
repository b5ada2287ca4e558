package main

import (
	"testing"

	"go-facetec-relay/models"

	"github.com/stretchr/testify/require"
)

func TestNormalizeOutcome_Success(t *testing.T) {
	raw := models.ProviderResponse{
		SessionResponseBlob: "xyz789",
		Success:             boolPtr(true),
		WasLivenessPassed:   boolPtr(true),
	}

	out := NormalizeOutcome(raw)
	require.Equal(t, "xyz789", out.SessionResponseBlob)
	require.True(t, out.Success)
	require.True(t, out.LivenessPassed)
	require.Equal(t, models.ReasonOK, out.Reason)
}

func TestNormalizeOutcome_SuccessWithoutLiveness(t *testing.T) {
	raw := models.ProviderResponse{
		SessionResponseBlob: "xyz789",
		Success:             boolPtr(true),
	}

	out := NormalizeOutcome(raw)
	require.True(t, out.Success)
	require.False(t, out.LivenessPassed) // absent liveness defaults to false
	require.Equal(t, models.ReasonOK, out.Reason)
}

func TestNormalizeOutcome_AbsentSuccessIsFailure(t *testing.T) {
	out := NormalizeOutcome(models.ProviderResponse{})
	require.False(t, out.Success)
	require.False(t, out.LivenessPassed)
	require.Equal(t, models.ReasonUnknown, out.Reason)
}

func TestNormalizeOutcome_ExplicitFailureWithoutReason(t *testing.T) {
	raw := models.ProviderResponse{Success: boolPtr(false)}

	out := NormalizeOutcome(raw)
	require.False(t, out.Success)
	require.Equal(t, models.ReasonUnknown, out.Reason)
}

func TestNormalizeOutcome_FailureKeepsProviderReason(t *testing.T) {
	raw := models.ProviderResponse{
		Success: boolPtr(false),
		Reason:  "FACE_SCAN_REJECTED",
	}

	out := NormalizeOutcome(raw)
	require.False(t, out.Success)
	require.Equal(t, "FACE_SCAN_REJECTED", out.Reason)
}

func TestNormalizeOutcome_SuccessIgnoresProviderReason(t *testing.T) {
	raw := models.ProviderResponse{
		Success: boolPtr(true),
		Reason:  "SOMETHING_ELSE",
	}

	out := NormalizeOutcome(raw)
	require.True(t, out.Success)
	require.Equal(t, models.ReasonOK, out.Reason)
}

func TestNormalizeOutcome_BlobPassThrough(t *testing.T) {
	blob := "ZW5jcnlwdGVkLW9wYXF1ZS1wYXlsb2Fk=="
	raw := models.ProviderResponse{
		SessionResponseBlob: blob,
		Success:             boolPtr(true),
	}

	out := NormalizeOutcome(raw)
	require.Equal(t, blob, out.SessionResponseBlob) // byte-for-byte identity
}
