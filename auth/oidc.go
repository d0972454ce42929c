package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/metric"
	"github.com/stella-systems/stellanow-sdk-go/transport"
)

// DefaultOIDCClientID is the realm client the ingestion endpoint trusts.
const DefaultOIDCClientID = "event-ingestor"

// Failure kinds recorded in stellanow_auth_failures_total.
const (
	failureDiscovery = "discovery"
	failureRefresh   = "refresh"
	failureGrant     = "grant"
	failureToken     = "token"
)

// Config configures an OIDCStrategy.
type Config struct {
	// Authority is the identity provider base URL, e.g. https://auth.stellanow.io
	Authority      string
	OrganizationID string
	// ClientID is the OIDC client; DefaultOIDCClientID when empty.
	ClientID string
	Username string
	Password string
	// MQTTClientID is presented to the broker; generated when empty.
	MQTTClientID string
	// HTTPClient is used for discovery and token requests; a client with a
	// 30s timeout when nil.
	HTTPClient *http.Client
}

// Option configures an OIDCStrategy
type Option func(*OIDCStrategy)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *OIDCStrategy) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records authentication failures in the registry
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *OIDCStrategy) {
		s.metrics = registry.CoreMetrics()
	}
}

// OIDCStrategy authenticates against an OpenID Connect provider (Keycloak
// realm per organization) with the resource-owner password grant, renews with
// the refresh-token grant, and hands the access token to the transport as its
// username.
//
// The discovery document is cached until a fetch fails. The token is replaced
// on every Authenticate.
type OIDCStrategy struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metric.Metrics

	mu       sync.Mutex
	provider *oidc.Provider
	token    *oauth2.Token
}

var _ Strategy = (*OIDCStrategy)(nil)

// NewOIDCStrategy validates cfg and creates the strategy. No network I/O happens
// until the first Authenticate.
func NewOIDCStrategy(cfg Config, opts ...Option) (*OIDCStrategy, error) {
	var missing []string
	if cfg.Authority == "" {
		missing = append(missing, "authority")
	}
	if cfg.OrganizationID == "" {
		missing = append(missing, "organization id")
	}
	if cfg.Username == "" {
		missing = append(missing, "username")
	}
	if cfg.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %s", errors.ErrMissingConfig, strings.Join(missing, ", ")),
			"OIDCStrategy", "NewOIDCStrategy", "validate config")
	}

	if cfg.ClientID == "" {
		cfg.ClientID = DefaultOIDCClientID
	}
	if cfg.MQTTClientID == "" {
		cfg.MQTTClientID = NewClientID()
	}

	s := &OIDCStrategy{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		logger:     slog.Default().With("component", "auth"),
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issuer returns the realm issuer URL: {authority}/realms/{organizationId}.
func (s *OIDCStrategy) Issuer() string {
	return strings.TrimRight(s.cfg.Authority, "/") + "/realms/" + s.cfg.OrganizationID
}

// ClientID returns the MQTT client id presented to the broker.
func (s *OIDCStrategy) ClientID() string {
	return s.cfg.MQTTClientID
}

// Auth implements Strategy.
func (s *OIDCStrategy) Auth(ctx context.Context, client transport.Authenticatable) error {
	if client.IsConnected() {
		return nil
	}

	tok, err := s.Authenticate(ctx)
	if err != nil {
		return err
	}

	client.SetCredentials(transport.Credentials{
		Username: tok.AccessToken,
		ClientID: s.cfg.MQTTClientID,
	})
	return nil
}

// Authenticate obtains a fresh token. With a refresh token on hand the
// refresh grant is tried first; without one, or when it fails, the password
// grant is used.
func (s *OIDCStrategy) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	provider, err := s.discover(ctx)
	if err != nil {
		return nil, err
	}

	oc := &oauth2.Config{
		ClientID: s.cfg.ClientID,
		Endpoint: provider.Endpoint(),
		Scopes:   []string{oidc.ScopeOpenID},
	}
	oc.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	var tok *oauth2.Token
	if s.token != nil && s.token.RefreshToken != "" {
		tok, err = oc.TokenSource(ctx, &oauth2.Token{RefreshToken: s.token.RefreshToken}).Token()
		if err == nil {
			err = validateToken(tok)
		}
		if err != nil {
			s.metrics.RecordAuthFailure(failureRefresh)
			s.logger.Warn("refresh grant failed, falling back to password grant", "error", err)
			tok = nil
		}
	}

	if tok == nil {
		tok, err = oc.PasswordCredentialsToken(ctx, s.cfg.Username, s.cfg.Password)
		if err != nil {
			s.token = nil
			s.metrics.RecordAuthFailure(failureGrant)
			return nil, errors.WrapTransient(errors.Join(errors.ErrGrantFailed, err),
				"OIDCStrategy", "Authenticate", "password grant")
		}
		if err := validateToken(tok); err != nil {
			s.token = nil
			s.metrics.RecordAuthFailure(failureToken)
			return nil, errors.WrapTransient(err, "OIDCStrategy", "Authenticate", "validate token")
		}
	}

	s.token = tok
	s.logger.Debug("authenticated", "expiry", tok.Expiry)
	return copyToken(tok), nil
}

// discover returns the cached provider or fetches the discovery document.
// Caller holds mu.
func (s *OIDCStrategy) discover(ctx context.Context) (*oidc.Provider, error) {
	if s.provider != nil {
		return s.provider, nil
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, s.httpClient), s.Issuer())
	if err != nil {
		s.metrics.RecordAuthFailure(failureDiscovery)
		return nil, errors.WrapTransient(errors.Join(errors.ErrDiscoveryFailed, err),
			"OIDCStrategy", "Authenticate", "fetch discovery document")
	}

	s.provider = provider
	return provider, nil
}

// Token returns a copy of the current token, or nil.
func (s *OIDCStrategy) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyToken(s.token)
}

// Reset forgets the token and the discovery document.
func (s *OIDCStrategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	s.provider = nil
}

func validateToken(tok *oauth2.Token) error {
	switch {
	case tok == nil:
		return fmt.Errorf("%w: empty response", errors.ErrInvalidToken)
	case tok.AccessToken == "":
		return fmt.Errorf("%w: missing access token", errors.ErrInvalidToken)
	case !tok.Valid():
		return fmt.Errorf("%w: token already expired", errors.ErrInvalidToken)
	case !strings.EqualFold(tok.Type(), "bearer"):
		return fmt.Errorf("%w: unexpected token type %q", errors.ErrInvalidToken, tok.TokenType)
	}
	return nil
}

func copyToken(tok *oauth2.Token) *oauth2.Token {
	if tok == nil {
		return nil
	}
	cp := *tok
	return &cp
}
