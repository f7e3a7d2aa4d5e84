package driven

import (
	"context"
	"errors"
)

// ErrCredentialRejected is returned by TokenVerifier implementations when the
// remote service explicitly refused the credential.
var ErrCredentialRejected = errors.New("credential rejected")

// TokenVerifier asks the remote verification endpoint whether a bearer
// credential is currently valid. A nil error means the credential was accepted.
// Any error other than one wrapping ErrCredentialRejected means the answer is
// unknown (transport failure, timeout, unexpected status).
type TokenVerifier interface {
	Verify(ctx context.Context, credential string) error
}
