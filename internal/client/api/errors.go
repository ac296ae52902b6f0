package api

import (
	"net/http"
	"strings"
)

// Kind classifies a failed request.
type Kind int

const (
	// KindUnknown: the request could not be built, or the failure fits no other kind.
	KindUnknown Kind = iota
	// KindAuthFailure: bad credentials or signup conflict.
	KindAuthFailure
	// KindAuthorizationExpired: a bearer request was rejected as unauthorized.
	KindAuthorizationExpired
	// KindValidation: the server rejected field values.
	KindValidation
	// KindNetwork: no response was received.
	KindNetwork
	// KindNotFound: the target id does not exist (any more).
	KindNotFound
	// KindMalformedResponse: a success response could not be decoded.
	KindMalformedResponse
	// KindServer: any other non-success status.
	KindServer
	// KindNoToken: the call needs a token and none was available; nothing was sent.
	KindNoToken
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown error",
	KindAuthFailure:          "authentication failed",
	KindAuthorizationExpired: "authorization expired",
	KindValidation:           "validation failed",
	KindNetwork:              "network failure",
	KindNotFound:             "not found",
	KindMalformedResponse:    "malformed response",
	KindServer:               "request failed",
	KindNoToken:              "no session token",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Error is returned by every failed API call.
type Error struct {
	Kind    Kind
	Status  int               // HTTP status, 0 when no response was received
	Message string            // server-provided message when present
	Fields  map[string]string // per-field messages for KindValidation
	Cause   error
	// Token is the bearer token a KindAuthorizationExpired answer rejected.
	// It is never part of Error().
	Token string
}

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrAuthFailure          = &Error{Kind: KindAuthFailure}
	ErrAuthorizationExpired = &Error{Kind: KindAuthorizationExpired}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrNetwork              = &Error{Kind: KindNetwork}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrMalformedResponse    = &Error{Kind: KindMalformedResponse}
	ErrServer               = &Error{Kind: KindServer}
	ErrNoToken              = &Error{Kind: KindNoToken}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// classifier maps a non-success status to a Kind.
type classifier func(status int) Kind

// authStatus classifies failures of the unauthenticated login/signup calls.
func authStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusConflict, http.StatusUnprocessableEntity:
		return KindAuthFailure
	default:
		return KindServer
	}
}

// bearerStatus classifies failures of bearer-authenticated calls.
func bearerStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuthorizationExpired
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge,
		http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindServer
	}
}

// errorBody is the JSON error shape of the remote service. Plain-text bodies
// are used verbatim as the message.
type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func trimMessage(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
