package oauth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestAccountID(t *testing.T) {
	t.Parallel()

	top := signedJWT(t, jwt.MapClaims{"chatgpt_account_id": "top"})
	nested := signedJWT(t, jwt.MapClaims{
		"https://api.openai.com/auth": map[string]any{"chatgpt_account_id": "nested"},
	})
	org := signedJWT(t, jwt.MapClaims{
		"organizations": []any{map[string]any{"id": "org-1"}, map[string]any{"id": "org-2"}},
	})
	both := signedJWT(t, jwt.MapClaims{
		"chatgpt_account_id":          "top",
		"https://api.openai.com/auth": map[string]any{"chatgpt_account_id": "nested"},
	})
	none := signedJWT(t, jwt.MapClaims{"sub": "user"})

	assert.Equal(t, "top", AccountID(top))
	assert.Equal(t, "nested", AccountID(nested))
	assert.Equal(t, "org-1", AccountID(org))
	assert.Equal(t, "top", AccountID(both))
	assert.Empty(t, AccountID(none))
	assert.Empty(t, AccountID("not-a-jwt"))
	assert.Empty(t, AccountID(""))

	// The first token carrying an id wins.
	assert.Equal(t, "nested", AccountID(none, nested, top))
}
