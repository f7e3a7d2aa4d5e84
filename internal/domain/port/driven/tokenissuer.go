package driven

import (
	"context"
	"errors"
)

// ErrInvalidLogin is returned by TokenIssuer when the username/password pair
// was refused.
var ErrInvalidLogin = errors.New("incorrect username or password")

// TokenIssuer exchanges login credentials for a bearer token.
type TokenIssuer interface {
	IssueToken(ctx context.Context, username, password string) (string, error)
}
