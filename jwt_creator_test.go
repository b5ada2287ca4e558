package main

import (
	"testing"
	"time"

	"go-facetec-relay/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func TestCreatingOutcomeJwt(t *testing.T) {
	key := testRSAKey(t)
	attestor := NewRsaOutcomeAttestorFromKey(key, "facetec-relay", 5*time.Minute)

	outcome := models.SessionResponse{
		SessionResponseBlob: "xyz789",
		Success:             true,
		LivenessPassed:      true,
		Reason:              models.ReasonOK,
	}

	createdJwt, err := attestor.CreateOutcomeJwt("u1", "cardRequest", outcome)
	require.NoError(t, err)
	require.NotEmpty(t, createdJwt)
}

func TestDecodeValidateOutcomeJwt(t *testing.T) {
	// 1) create the jwt
	key := testRSAKey(t)
	attestor := NewRsaOutcomeAttestorFromKey(key, "facetec-relay", 5*time.Minute)

	outcome := models.SessionResponse{
		Success:        true,
		LivenessPassed: false,
		Reason:         models.ReasonOK,
	}
	createdJwt, err := attestor.CreateOutcomeJwt("u1", "enrollment", outcome)
	require.NoError(t, err)

	// 2) parse it back with the public key and check the claims
	var claims OutcomeClaims
	token, err := jwt.ParseWithClaims(createdJwt, &claims, func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	require.Equal(t, "u1", claims.UserId)
	require.Equal(t, "enrollment", claims.Flow)
	require.True(t, claims.Success)
	require.False(t, claims.LivenessPassed)
	require.Equal(t, models.ReasonOK, claims.Reason)
	require.Equal(t, "facetec-relay", claims.Issuer)
	require.NotEmpty(t, claims.ID)
	require.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestOutcomeJwtNeverCarriesBlobs(t *testing.T) {
	key := testRSAKey(t)
	attestor := NewRsaOutcomeAttestorFromKey(key, "facetec-relay", time.Minute)

	outcome := models.SessionResponse{
		SessionResponseBlob: "super-secret-blob",
		Success:             true,
		Reason:              models.ReasonOK,
	}
	createdJwt, err := attestor.CreateOutcomeJwt("u1", "enrollment", outcome)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(createdJwt, claims, func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	for _, value := range claims {
		require.NotEqual(t, "super-secret-blob", value)
	}
}

func TestNewRsaOutcomeAttestor_MissingKeyFile(t *testing.T) {
	_, err := NewRsaOutcomeAttestor("./does-not-exist.pem", "facetec-relay", time.Minute)
	require.Error(t, err)
}
