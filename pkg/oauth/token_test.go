package oauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasSabena/codemobile-sub001/pkg/credentials"
)

func TestSaveToken(t *testing.T) {
	t.Parallel()

	store := credentials.NewStore(credentials.NewMemory())
	expiry := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())

	err := SaveToken(t.Context(), store, "openai-codex", &Token{
		AccessToken:  "a",
		RefreshToken: "r",
		Expiry:       expiry,
		AccountID:    "acct",
	})
	require.NoError(t, err)

	access, _ := store.AccessToken(t.Context(), "openai-codex")
	refresh, _ := store.RefreshToken(t.Context(), "openai-codex")
	account, _ := store.AccountID(t.Context(), "openai-codex")
	got, _ := store.TokenExpiry(t.Context(), "openai-codex")

	assert.Equal(t, "a", access)
	assert.Equal(t, "r", refresh)
	assert.Equal(t, "acct", account)
	assert.True(t, expiry.Equal(got))

	require.Error(t, SaveToken(t.Context(), store, "x", &Token{}))
}
