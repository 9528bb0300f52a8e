package oauth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

const openAIAuthClaim = "https://api.openai.com/auth"

// Claims decodes the payload of a three-part signed token without
// verifying its signature.
func Claims(token string) (map[string]any, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	// An unknown alg still leaves the claims decoded.
	if err != nil && (parsed == nil || !errors.Is(err, jwt.ErrTokenUnverifiable)) {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return claims, nil
}

// AccountID returns the ChatGPT account id found in the first token that
// carries one. Lookup order: chatgpt_account_id, the same key under the
// https://api.openai.com/auth claim, then organizations[0].id. Tokens that
// are not JWTs or carry none of these yield "".
func AccountID(tokens ...string) string {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		claims, err := Claims(token)
		if err != nil {
			continue
		}
		if id := accountIDFromClaims(claims); id != "" {
			return id
		}
	}
	return ""
}

func accountIDFromClaims(claims map[string]any) string {
	if id, ok := claims["chatgpt_account_id"].(string); ok && id != "" {
		return id
	}
	if nested, ok := claims[openAIAuthClaim].(map[string]any); ok {
		if id, ok := nested["chatgpt_account_id"].(string); ok && id != "" {
			return id
		}
	}
	if orgs, ok := claims["organizations"].([]any); ok && len(orgs) > 0 {
		if org, ok := orgs[0].(map[string]any); ok {
			if id, ok := org["id"].(string); ok {
				return id
			}
		}
	}
	return ""
}
