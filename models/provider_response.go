package models

// ProviderResponse mirrors the fields the verification provider returns.
// Booleans are pointers so that an absent field can be told apart from an
// explicit false; the normalizer treats absence as failure.
type ProviderResponse struct {
	SessionResponseBlob string `json:"sessionResponseBlob"`
	Success             *bool  `json:"success"`
	WasLivenessPassed   *bool  `json:"wasLivenessPassed"`
	Reason              string `json:"reason"`
}

// ProviderRequest is the body the relay forwards to the provider's
// server-side API. The blob round-trips untouched.
type ProviderRequest struct {
	SessionRequestBlob    string `json:"sessionRequestBlob"`
	ExternalDatabaseRefId string `json:"externalDatabaseRefId"`
	Flow                  string `json:"flow"`
}
