package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingAdminURL = errors.New("admin url configuration required")

	// ErrIdentityGone reports that the provider no longer knows the subject.
	ErrIdentityGone = errors.New("auth: identity not found at provider")
)

// IdentityAdmin deletes provider accounts. It exists solely so the
// reconciliation flow can roll back an external identity when the matching
// local account could not be created.
type IdentityAdmin interface {
	DeleteIdentity(ctx context.Context, subject string) error
}

// IdentityAdminClientConfig configures the provider admin client.
type IdentityAdminClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.Logger
}

// IdentityAdminClient calls the provider's account-administration endpoint.
type IdentityAdminClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewIdentityAdminClient constructs an admin client with validated configuration.
func NewIdentityAdminClient(cfg IdentityAdminClientConfig) (*IdentityAdminClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingAdminURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IdentityAdminClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// DeleteIdentity removes the provider account for the subject. A provider-side
// 404 maps to ErrIdentityGone so callers can treat an already-deleted identity
// as a completed rollback.
func (c *IdentityAdminClient) DeleteIdentity(ctx context.Context, subject string) error {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return errMissingSubject
	}

	endpoint := c.baseURL + "/accounts/" + url.PathEscape(trimmed)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	switch {
	case response.StatusCode == http.StatusNotFound:
		return ErrIdentityGone
	case response.StatusCode >= 200 && response.StatusCode < 300:
		return nil
	default:
		c.logger.Warn("identity deletion returned unexpected status",
			zap.String("subject", trimmed),
			zap.Int("status", response.StatusCode))
		return fmt.Errorf("identity deletion returned status %d", response.StatusCode)
	}
}
