package api

import (
	"context"
	"net/http"

	"github.com/atinyakov/GophShelf/internal/models"
)

const (
	pathSignup = "/auth/signup"
	pathLogin  = "/auth/login"
	pathMe     = "/auth/me"
)

// AuthResult is the answer of a successful login or signup.
type AuthResult struct {
	Token string             `json:"token"`
	User  models.UserProfile `json:"user"`
}

// AuthClient talks to the authentication endpoints.
type AuthClient struct {
	t *transport
}

// NewAuthClient returns a client for the auth endpoints under baseURL.
func NewAuthClient(baseURL string, opts ...Option) *AuthClient {
	return &AuthClient{t: newTransport(baseURL, opts)}
}

// Login exchanges email and password for a token.
func (c *AuthClient) Login(ctx context.Context, email, password string) (AuthResult, error) {
	return c.authenticate(ctx, pathLogin, map[string]string{
		"email":    email,
		"password": password,
	})
}

// Signup registers a new account. The returned token is valid immediately.
func (c *AuthClient) Signup(ctx context.Context, name, email, password string) (AuthResult, error) {
	return c.authenticate(ctx, pathSignup, map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
}

// Me looks up the profile that owns token.
func (c *AuthClient) Me(ctx context.Context, token string) (models.UserProfile, error) {
	if token == "" {
		return models.UserProfile{}, &Error{Kind: KindNoToken}
	}

	var out struct {
		User *models.UserProfile `json:"user"`
	}
	err := c.t.do(ctx, request{
		method:   http.MethodGet,
		path:     pathMe,
		token:    token,
		classify: bearerStatus,
	}, &out)
	if err != nil {
		return models.UserProfile{}, err
	}
	if out.User == nil {
		return models.UserProfile{}, &Error{Kind: KindMalformedResponse, Status: http.StatusOK, Message: "response has no user"}
	}
	return *out.User, nil
}

func (c *AuthClient) authenticate(ctx context.Context, path string, payload map[string]string) (AuthResult, error) {
	body, err := jsonBody(payload)
	if err != nil {
		return AuthResult{}, &Error{Kind: KindUnknown, Cause: err}
	}

	var out AuthResult
	err = c.t.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: "application/json",
		classify:    authStatus,
	}, &out)
	if err != nil {
		return AuthResult{}, err
	}
	if out.Token == "" {
		return AuthResult{}, &Error{Kind: KindMalformedResponse, Status: http.StatusOK, Message: "response has no token"}
	}
	return out, nil
}
