package models

// SessionRequest is the body the mobile client posts to /facetec/session.
// SessionRequestBlob is an encrypted payload produced by the device SDK;
// the relay never decodes it.
type SessionRequest struct {
	SessionRequestBlob string `json:"sessionRequestBlob"`
	UserId             string `json:"userId"`
	Flow               string `json:"flow"` // e.g. "enrollment", "cardRequest"
}
