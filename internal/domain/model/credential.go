package model

// CredentialKey is the single well-known key a browser context stores its
// bearer token under.
const CredentialKey = "token"

// Credential is the persisted form of a browser context's bearer token.
// Scope identifies the browser context; Value is the raw, opaque token.
// At most one Credential exists per Scope.
type Credential struct {
	Scope string
	Value string
}
