package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/LucasSabena/codemobile-sub001/pkg/config"
	"github.com/LucasSabena/codemobile-sub001/pkg/credentials"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/anthropic"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/base"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/openai"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/wire"
	"github.com/LucasSabena/codemobile-sub001/pkg/oauth"
)

// ConfigError reports a provider that cannot be built from the stored
// configuration and credentials.
type ConfigError struct {
	ProviderID string
	Reason     string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q: %s", e.ProviderID, e.Reason)
}

// Config selects a provider and model.
type Config struct {
	ProviderID string
	Model      string
	// BaseURL overrides the registry endpoint.
	BaseURL string
}

// Factory builds Providers from the registry and the credential store.
type Factory struct {
	store       *credentials.Store
	refreshers  map[string]oauth.Refresher
	httpClient  *http.Client
	validateTTL time.Duration
	validated   *cache.Cache
	now         func() time.Time

	refreshes singleflight.Group

	mu      sync.Mutex
	last    Provider
	lastKey string
}

type FactoryOpt func(*Factory)

// WithRefresher registers the token refresher used for providerID.
func WithRefresher(providerID string, r oauth.Refresher) FactoryOpt {
	return func(f *Factory) {
		f.refreshers[providerID] = r
	}
}

func WithHTTPClient(c *http.Client) FactoryOpt {
	return func(f *Factory) {
		f.httpClient = c
	}
}

// WithValidationTTL sets how long a credential validation result is
// reused. Zero disables reuse.
func WithValidationTTL(ttl time.Duration) FactoryOpt {
	return func(f *Factory) {
		f.validateTTL = ttl
	}
}

func NewFactory(store *credentials.Store, opts ...FactoryOpt) *Factory {
	f := &Factory{
		store:       store,
		refreshers:  map[string]oauth.Refresher{},
		validateTTL: config.DefaultLimits().ValidationTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.validateTTL > 0 {
		f.validated = cache.New(f.validateTTL, 2*f.validateTTL)
	}
	return f
}

// Create builds the provider described by cfg. It fails with a
// *ConfigError when the provider is unknown or has no stored credential.
func (f *Factory) Create(ctx context.Context, cfg Config) (Provider, error) {
	desc, ok := Lookup(cfg.ProviderID)
	if !ok {
		return nil, &ConfigError{ProviderID: cfg.ProviderID, Reason: "unknown provider"}
	}

	credential, err := f.credential(ctx, desc)
	if err != nil {
		return nil, err
	}

	headers := maps.Clone(desc.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	if desc.AccountHeader != "" {
		accountID, err := f.store.AccountID(ctx, desc.ID)
		if err != nil {
			return nil, fmt.Errorf("reading account id for %s: %w", desc.ID, err)
		}
		if accountID != "" {
			headers[desc.AccountHeader] = accountID
		}
	}

	baseURL := desc.BaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	key := clientKey(desc.ID, cfg.Model, baseURL, credential, headers[desc.AccountHeader])
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last != nil && f.lastKey == key {
		return f.last, nil
	}

	bc := base.Config{
		ProviderID:     desc.ID,
		BaseURL:        baseURL,
		Dialect:        desc.Dialect,
		ChatPath:       desc.ChatPath,
		Credential:     credential,
		Headers:        headers,
		SkipValidation: desc.SkipValidation,
		StreamOptions:  desc.StreamOptions,
		Models:         desc.Models,
		HTTPClient:     f.httpClient,
	}

	slog.Debug("Creating model provider", "provider", desc.ID, "model", cfg.Model, "dialect", desc.Dialect.String())

	var p Provider
	switch desc.Dialect {
	case wire.DialectAnthropic:
		p, err = anthropic.NewClient(bc)
	default:
		p, err = openai.NewClient(bc)
	}
	if err != nil {
		return nil, &ConfigError{ProviderID: desc.ID, Reason: err.Error()}
	}

	if f.validated != nil {
		p = &validationCached{Provider: p, cache: f.validated, key: fingerprint(desc.ID, credential)}
	}
	f.last, f.lastKey = p, key
	return p, nil
}

// CreateOrNil is Create without the error.
func (f *Factory) CreateOrNil(ctx context.Context, cfg Config) Provider {
	p, err := f.Create(ctx, cfg)
	if err != nil {
		slog.Debug("Provider unavailable", "provider", cfg.ProviderID, "error", err)
		return nil
	}
	return p
}

// CreateOrNilWithRefresh refreshes an OAuth access token first when it is
// expired, or has no known expiry, and a refresh token is stored. A failed
// refresh keeps the prior credential.
func (f *Factory) CreateOrNilWithRefresh(ctx context.Context, cfg Config) Provider {
	if desc, ok := Lookup(cfg.ProviderID); ok && desc.Auth == AuthOAuth {
		if err := f.refreshIfNeeded(ctx, desc.ID); err != nil {
			slog.Warn("Token refresh failed; keeping stored credential", "provider", desc.ID, "error", err)
		}
	}
	return f.CreateOrNil(ctx, cfg)
}

func (f *Factory) credential(ctx context.Context, desc Descriptor) (string, error) {
	var (
		credential string
		err        error
	)
	switch desc.Auth {
	case AuthNone:
		return "", nil
	case AuthOAuth:
		credential, err = f.store.AccessToken(ctx, desc.ID)
	default:
		credential, err = f.store.APIKey(ctx, desc.ID)
	}
	if err != nil {
		return "", fmt.Errorf("reading credential for %s: %w", desc.ID, err)
	}
	if credential != "" {
		return credential, nil
	}

	reason := fmt.Sprintf("not logged in; run `codemobile login %s`", desc.ID)
	if desc.Auth == AuthAPIKey {
		reason = "no API key stored"
		if desc.KeyEnv != "" {
			reason += "; set " + desc.KeyEnv
		}
	}
	return "", &ConfigError{ProviderID: desc.ID, Reason: reason}
}

func (f *Factory) refreshIfNeeded(ctx context.Context, providerID string) error {
	refreshToken, err := f.store.RefreshToken(ctx, providerID)
	if err != nil || refreshToken == "" {
		return err
	}
	expiry, err := f.store.TokenExpiry(ctx, providerID)
	if err != nil {
		return err
	}
	if !expiry.IsZero() && f.now().Before(expiry) {
		return nil
	}

	_, err, shared := f.refreshes.Do(providerID, func() (any, error) {
		return nil, f.refresh(ctx, providerID, refreshToken)
	})
	if shared {
		slog.Debug("Joined in-flight token refresh", "provider", providerID)
	}
	return err
}

func (f *Factory) refresh(ctx context.Context, providerID, refreshToken string) error {
	r, ok := f.refreshers[providerID]
	if !ok {
		return errors.New("provider does not support token refresh")
	}

	slog.Debug("Refreshing access token", "provider", providerID)
	tok, err := r.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return oauth.SaveToken(ctx, f.store, providerID, tok)
}

func fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

func clientKey(providerID, model, baseURL, credential, accountID string) string {
	return fingerprint(providerID, model, baseURL, credential, accountID)
}

// validationCached reuses recent ValidateCredentials results per provider
// and credential.
type validationCached struct {
	Provider
	cache *cache.Cache
	key   string
}

func (v *validationCached) ValidateCredentials(ctx context.Context) bool {
	if ok, found := v.cache.Get(v.key); found {
		return ok.(bool)
	}
	ok := v.Provider.ValidateCredentials(ctx)
	v.cache.SetDefault(v.key, ok)
	return ok
}
