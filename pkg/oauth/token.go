package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/LucasSabena/codemobile-sub001/pkg/credentials"
)

// Token is the credential obtained by a device flow or a refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	// Expiry is zero when the provider did not report one.
	Expiry    time.Time
	AccountID string
}

// SaveToken persists every non-empty part of tok under providerID.
func SaveToken(ctx context.Context, store *credentials.Store, providerID string, tok *Token) error {
	if tok == nil || tok.AccessToken == "" {
		return errors.New("no access token to save")
	}
	if err := store.SaveAccessToken(ctx, providerID, tok.AccessToken); err != nil {
		return err
	}
	if tok.RefreshToken != "" {
		if err := store.SaveRefreshToken(ctx, providerID, tok.RefreshToken); err != nil {
			return err
		}
	}
	if err := store.SaveTokenExpiry(ctx, providerID, tok.Expiry); err != nil {
		return err
	}
	if tok.AccountID != "" {
		return store.SaveAccountID(ctx, providerID, tok.AccountID)
	}
	return nil
}
