package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/apperrors"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/models"
)

const defaultAuthTimeout = 3 * time.Second

const (
	CodeUnauthorized = "unauthorized"
	CodeUnavailable  = "unavailable"
)

// VerifyError tells rejected credentials apart from identity service failures
type VerifyError struct {
	Code       string
	StatusCode int
	Err        error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("code: %s, status: %d, error: %v", e.Code, e.StatusCode, e.Err)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// Principal confirmed by the identity service
type Principal struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// AuthClient verifies access tokens remotely by calling identity service /me
type AuthClient struct {
	baseURL string
	timeout time.Duration

	client *http.Client
	logger logger.Logger
}

func NewAuthClient(baseURL string, timeout time.Duration, l logger.Logger) *AuthClient {
	if timeout == 0 {
		timeout = defaultAuthTimeout
	}

	return &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
		logger:  l,
	}
}

func (c *AuthClient) Verify(ctx context.Context, token string) (Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return Principal{}, &VerifyError{Code: CodeUnavailable, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Identity service unreachable", "error", err)
		return Principal{}, &VerifyError{Code: CodeUnavailable, Err: fmt.Errorf("%w: %w", apperrors.ErrUpstreamUnavailable, err)}
	}
	defer resp.Body.Close() // nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		return c.processSuccess(resp)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Principal{}, &VerifyError{Code: CodeUnauthorized, StatusCode: resp.StatusCode, Err: errors.New("token rejected by identity service")}
	default:
		c.logger.Warn("Identity service failed to verify token", "status_code", resp.StatusCode)
		return Principal{}, &VerifyError{
			Code:       CodeUnavailable,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: unexpected status %d", apperrors.ErrUpstreamUnavailable, resp.StatusCode),
		}
	}
}

func (c *AuthClient) processSuccess(resp *http.Response) (Principal, error) {
	var body struct {
		User Principal `json:"user"`
	}

	err := json.NewDecoder(resp.Body).Decode(&body)
	if err != nil {
		c.logger.Warn("Failed to decode identity service response", "error", err)
		return Principal{}, &VerifyError{Code: CodeUnavailable, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: bad response: %w", apperrors.ErrUpstreamUnavailable, err)}
	}
	if body.User.Email == "" {
		return Principal{}, &VerifyError{Code: CodeUnavailable, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: response without principal", apperrors.ErrUpstreamUnavailable)}
	}

	c.logger.Debug("Token verified by identity service", "email", body.User.Email, "role", string(body.User.Role))
	return body.User, nil
}
