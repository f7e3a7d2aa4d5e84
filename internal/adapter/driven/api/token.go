package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

// tokenResponse is the body returned by the token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// IssueToken exchanges a username and password for a bearer token using the
// OAuth2 password form the remote API expects.
func (c *Client) IssueToken(ctx context.Context, username, password string) (string, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(tokenPath), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.direct.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusBadRequest:
		return "", fmt.Errorf("request token: %w", driven.ErrInvalidLogin)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("request token: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", errors.New("decode token response: empty access_token")
	}
	if body.TokenType != "" && !strings.EqualFold(body.TokenType, "bearer") {
		return "", fmt.Errorf("decode token response: unsupported token type %q", body.TokenType)
	}

	return body.AccessToken, nil
}
