package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/outcome"
	"github.com/jrsteele09/auction-storefront/routes"
	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// Service talks to the backend's token endpoints. It holds no session state.
type Service struct {
	routes     routes.Routes
	httpClient *http.Client
	logger     zerolog.Logger
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

func WithHTTPClient(c *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = c
	}
}

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

func NewService(r routes.Routes, options ...ServiceOption) *Service {
	s := &Service{
		routes:     r,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// ExchangeCredentials trades a username and password for a token pair. Any
// non-success status is an AuthFailure; credentials are never retried.
func (s *Service) ExchangeCredentials(ctx context.Context, username, password string) (*Pair, error) {
	resp, err := s.post(ctx, s.routes.Login(), credentialsRequest{Username: username, Password: password})
	if err != nil {
		return nil, errors.Wrapf(err, "[ExchangeCredentials]")
	}

	pair, err := s.decodePair(resp, errors.ErrInvalidCredentials)
	if err != nil {
		s.logger.Debug().Err(err).Str("username", username).Msg("Token exchange rejected")
		return nil, errors.Wrapf(err, "[ExchangeCredentials]")
	}
	if pair.Refresh == "" {
		return nil, errors.Wrapf(authFailure(errors.ErrInvalidCredentials, "token response missing refresh token"), "[ExchangeCredentials]")
	}
	return pair, nil
}

// Refresh trades a refresh token for a new access token. The returned pair
// carries refreshToken unless the backend rotated it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	if refreshToken == "" {
		return nil, errors.Wrapf(authFailure(errors.ErrInvalidRefreshToken, errors.ErrNoRefreshToken.Error()), "[Refresh]")
	}

	resp, err := s.post(ctx, s.routes.RefreshToken(), refreshRequest{Refresh: refreshToken})
	if err != nil {
		return nil, errors.Wrapf(err, "[Refresh]")
	}

	pair, err := s.decodePair(resp, errors.ErrInvalidRefreshToken)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Token refresh rejected")
		return nil, errors.Wrapf(err, "[Refresh]")
	}
	if pair.Refresh == "" {
		pair.Refresh = refreshToken
	}
	return pair, nil
}

func (s *Service) post(ctx context.Context, url string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, outcome.ClassifyTransportError(ctx, err).Err()
	}
	return resp, nil
}

// decodePair reads a token endpoint response. Failures unwrap to both rejected
// and the AuthFailure outcome.
func (s *Service) decodePair(resp *http.Response, rejected error) (*Pair, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, outcome.TransportFailure(fmt.Sprintf("read token response: %s", err)).Err()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, message, _ := outcome.ParseErrorBody(body)
		if message == "" {
			message = outcome.StatusMessage(resp.StatusCode)
		}
		return nil, authFailure(rejected, message)
	}

	var pair Pair
	if err := json.Unmarshal(body, &pair); err != nil {
		return nil, authFailure(rejected, "malformed token response")
	}
	if pair.Access == "" {
		return nil, authFailure(rejected, "token response missing access token")
	}
	return &pair, nil
}

func authFailure(sentinel error, message string) error {
	return fmt.Errorf("%w: %w", sentinel, outcome.AuthFailure(message).Err())
}
