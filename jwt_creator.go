package main

import (
	"crypto/rsa"
	"os"
	"time"

	"go-facetec-relay/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// OutcomeAttestor signs a verification outcome so that services behind the
// relay can trust it without calling the provider themselves.
type OutcomeAttestor interface {
	CreateOutcomeJwt(userId, flow string, outcome models.SessionResponse) (jwt string, err error)
}

// OutcomeClaims is the claim set of an attestation JWT. It carries outcome
// metadata only, never session blobs.
type OutcomeClaims struct {
	UserId         string `json:"userId"`
	Flow           string `json:"flow"`
	Success        bool   `json:"success"`
	LivenessPassed bool   `json:"livenessPassed"`
	Reason         string `json:"reason"`
	jwt.RegisteredClaims
}

func NewRsaOutcomeAttestor(privateKeyPath string,
	issuerId string,
	validity time.Duration,
) (*RsaOutcomeAttestor, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)

	if err != nil {
		return nil, err
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyBytes)

	if err != nil {
		return nil, err
	}

	return NewRsaOutcomeAttestorFromKey(privateKey, issuerId, validity), nil
}

func NewRsaOutcomeAttestorFromKey(privateKey *rsa.PrivateKey,
	issuerId string,
	validity time.Duration,
) *RsaOutcomeAttestor {
	return &RsaOutcomeAttestor{
		issuerId:   issuerId,
		privateKey: privateKey,
		validity:   validity,
	}
}

type RsaOutcomeAttestor struct {
	privateKey *rsa.PrivateKey
	issuerId   string
	validity   time.Duration
}

func (a *RsaOutcomeAttestor) CreateOutcomeJwt(userId, flow string, outcome models.SessionResponse) (string, error) {
	now := time.Now()
	claims := OutcomeClaims{
		UserId:         userId,
		Flow:           flow,
		Success:        outcome.Success,
		LivenessPassed: outcome.LivenessPassed,
		Reason:         outcome.Reason,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuerId,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.validity)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(a.privateKey)
}
