package credentials

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	fieldAPIKey       = "api_key"
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldTokenExpiry  = "token_expiry"
	fieldAccountID    = "account_id"
)

var allFields = []string{fieldAPIKey, fieldAccessToken, fieldRefreshToken, fieldTokenExpiry, fieldAccountID}

// Key returns the KeyValue key of one credential field of a provider.
func Key(providerID, field string) string {
	return providerID + "/" + field
}

// APIKeyKey is the key under which the API key of providerID is stored.
func APIKeyKey(providerID string) string {
	return Key(providerID, fieldAPIKey)
}

// Store reads and writes provider credentials. Missing values read as
// empty, never as errors.
type Store struct {
	kv KeyValue
}

func NewStore(kv KeyValue) *Store {
	return &Store{kv: kv}
}

func (s *Store) get(ctx context.Context, id, field string) (string, error) {
	v, err := s.kv.Get(ctx, Key(id, field))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (s *Store) set(ctx context.Context, id, field, value string) error {
	if value == "" {
		return s.kv.Delete(ctx, Key(id, field))
	}
	return s.kv.Set(ctx, Key(id, field), value)
}

func (s *Store) APIKey(ctx context.Context, id string) (string, error) {
	return s.get(ctx, id, fieldAPIKey)
}

func (s *Store) AccessToken(ctx context.Context, id string) (string, error) {
	return s.get(ctx, id, fieldAccessToken)
}

func (s *Store) RefreshToken(ctx context.Context, id string) (string, error) {
	return s.get(ctx, id, fieldRefreshToken)
}

func (s *Store) AccountID(ctx context.Context, id string) (string, error) {
	return s.get(ctx, id, fieldAccountID)
}

// TokenExpiry returns the zero time when the expiry is unknown.
func (s *Store) TokenExpiry(ctx context.Context, id string) (time.Time, error) {
	v, err := s.get(ctx, id, fieldTokenExpiry)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid token expiry for %s: %w", id, err)
	}
	return time.UnixMilli(ms), nil
}

func (s *Store) SaveAPIKey(ctx context.Context, id, key string) error {
	return s.set(ctx, id, fieldAPIKey, key)
}

func (s *Store) SaveAccessToken(ctx context.Context, id, token string) error {
	return s.set(ctx, id, fieldAccessToken, token)
}

func (s *Store) SaveRefreshToken(ctx context.Context, id, token string) error {
	return s.set(ctx, id, fieldRefreshToken, token)
}

func (s *Store) SaveAccountID(ctx context.Context, id, accountID string) error {
	return s.set(ctx, id, fieldAccountID, accountID)
}

func (s *Store) SaveTokenExpiry(ctx context.Context, id string, expiry time.Time) error {
	if expiry.IsZero() {
		return s.set(ctx, id, fieldTokenExpiry, "")
	}
	return s.set(ctx, id, fieldTokenExpiry, strconv.FormatInt(expiry.UnixMilli(), 10))
}

// Forget removes every credential of a provider.
func (s *Store) Forget(ctx context.Context, id string) error {
	var errs []error
	for _, f := range allFields {
		errs = append(errs, s.kv.Delete(ctx, Key(id, f)))
	}
	return errors.Join(errs...)
}
