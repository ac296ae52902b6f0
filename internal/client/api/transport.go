// Package api is the typed client of the remote category service: the auth
// endpoints and the category CRUD endpoints.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxErrorBody = 64 << 10

// HTTPClient abstracts request execution. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a client.
type Option func(*transport)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c HTTPClient) Option {
	return func(t *transport) { t.http = c }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(t *transport) {
		if l != nil {
			t.log = l
		}
	}
}

// NewHTTPClient returns an http.Client that trusts only the CA in caFile when
// it is set, and the system roots otherwise. A zero timeout means no client
// timeout beyond the transport defaults.
func NewHTTPClient(caFile string, timeout time.Duration) (*http.Client, error) {
	client := &http.Client{Timeout: timeout}
	if caFile == "" {
		return client, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return client, nil
}

// transport carries what every request needs: base address, HTTP client and
// logger.
type transport struct {
	baseURL string
	http    HTTPClient
	log     *zap.Logger
}

func newTransport(baseURL string, opts []Option) *transport {
	t := &transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// request describes a single API call.
type request struct {
	method      string
	path        string
	token       string
	body        io.Reader
	contentType string
	classify    classifier
}

// jsonBody encodes v as a request body.
func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(b), nil
}

// do sends the request once and decodes a success body into out (when out is
// not nil). Every failure is an *Error.
func (t *transport) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, t.baseURL+r.path, r.body)
	if err != nil {
		return &Error{Kind: KindUnknown, Message: "create request", Cause: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	log := t.log.With(
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.String("request_id", requestID),
	)
	log.Debug("dispatching request")

	resp, err := t.http.Do(req)
	if err != nil {
		log.Debug("request failed", zap.Error(err))
		return &Error{Kind: KindNetwork, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeError(resp, r.classify)
		if apiErr.Kind == KindAuthorizationExpired {
			apiErr.Token = r.token
		}
		log.Debug("request rejected", zap.Int("status", resp.StatusCode), zap.Stringer("kind", apiErr.Kind))
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindMalformedResponse, Status: resp.StatusCode, Cause: err}
	}
	return nil
}

func decodeError(resp *http.Response, classify classifier) *Error {
	apiErr := &Error{Kind: classify(resp.StatusCode), Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = trimMessage(body.Message)
		apiErr.Fields = body.Errors
	} else {
		apiErr.Message = trimMessage(string(data))
	}
	return apiErr
}
