package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	CodexIssuer   = "https://auth.openai.com"
	CodexClientID = "app_EMoamEEZ73f0CkXaXp7hrann"

	codexDeviceCodeTTL = 15 * time.Minute
)

// CodexFlow is the headless device authorization used by the ChatGPT
// subscription ("Codex") endpoint. A granted poll yields an authorization
// code and PKCE verifier that are exchanged at the OAuth token endpoint.
type CodexFlow struct {
	Issuer     string
	ClientID   string
	HTTPClient *http.Client
}

func NewCodexFlow(httpClient *http.Client) *CodexFlow {
	return &CodexFlow{
		Issuer:     CodexIssuer,
		ClientID:   CodexClientID,
		HTTPClient: httpClient,
	}
}

func (f *CodexFlow) client() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return http.DefaultClient
}

func (f *CodexFlow) oauthConfig() *oauth2.Config {
	issuer := strings.TrimSuffix(f.Issuer, "/")
	return &oauth2.Config{
		ClientID: f.ClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  issuer + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: issuer + "/deviceauth/callback",
	}
}

func (f *CodexFlow) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, f.client())
}

// flexInterval accepts the poll interval as a number or a numeric string.
type flexInterval int64

func (i *flexInterval) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", s, err)
	}
	*i = flexInterval(n)
	return nil
}

type codexUserCodeResponse struct {
	DeviceAuthID string       `json:"device_auth_id"`
	UserCode     string       `json:"user_code"`
	UserCodeAlt  string       `json:"usercode"`
	Interval     flexInterval `json:"interval"`
}

type codexTokenPollResponse struct {
	AuthorizationCode string `json:"authorization_code"`
	CodeVerifier      string `json:"code_verifier"`
}

func (f *CodexFlow) postJSON(ctx context.Context, path string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(f.Issuer, "/")+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func (f *CodexFlow) Start(ctx context.Context) (*DeviceSession, error) {
	status, data, err := f.postJSON(ctx, "/api/accounts/deviceauth/usercode", map[string]string{
		"client_id": f.ClientID,
	})
	if err != nil {
		return nil, fmt.Errorf("requesting device code: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("requesting device code: HTTP %d", status)
	}

	var uc codexUserCodeResponse
	if err := json.Unmarshal(data, &uc); err != nil {
		return nil, fmt.Errorf("decoding device code response: %w", err)
	}
	userCode := uc.UserCode
	if userCode == "" {
		userCode = uc.UserCodeAlt
	}
	if uc.DeviceAuthID == "" || userCode == "" {
		return nil, errors.New("device code response is missing device_auth_id or user_code")
	}

	return &DeviceSession{
		DeviceCode:      uc.DeviceAuthID,
		UserCode:        userCode,
		VerificationURI: strings.TrimSuffix(f.Issuer, "/") + "/codex/device",
		Interval:        time.Duration(uc.Interval) * time.Second,
		ExpiresAt:       time.Now().Add(codexDeviceCodeTTL),
	}, nil
}

func (f *CodexFlow) Poll(ctx context.Context, sess *DeviceSession) (PollResult, error) {
	status, data, err := f.postJSON(ctx, "/api/accounts/deviceauth/token", map[string]string{
		"device_auth_id": sess.DeviceCode,
		"user_code":      sess.UserCode,
	})
	if err != nil {
		return PollResult{}, fmt.Errorf("polling for authorization: %w", err)
	}

	switch status {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusNotFound:
		return PollResult{Status: PollPending}, nil
	default:
		return PollResult{Status: PollFailed, Message: fmt.Sprintf("device authorization failed (HTTP %d)", status)}, nil
	}

	var tr codexTokenPollResponse
	if err := json.Unmarshal(data, &tr); err != nil || tr.AuthorizationCode == "" {
		return PollResult{Status: PollFailed, Message: "device authorization response did not contain an authorization code"}, nil
	}
	return PollResult{Status: PollGranted, Code: tr.AuthorizationCode, Verifier: tr.CodeVerifier}, nil
}

// Exchange trades the authorization code for tokens.
func (f *CodexFlow) Exchange(ctx context.Context, grant PollResult) (*Token, error) {
	var opts []oauth2.AuthCodeOption
	if grant.Verifier != "" {
		opts = append(opts, oauth2.VerifierOption(grant.Verifier))
	}
	tok, err := f.oauthConfig().Exchange(f.withClient(ctx), grant.Code, opts...)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return codexToken(tok, ""), nil
}

// Refresh obtains a new access token. The previous refresh token is kept
// when the server does not rotate it.
func (f *CodexFlow) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token")
	}
	src := f.oauthConfig().TokenSource(f.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return codexToken(tok, refreshToken), nil
}

func codexToken(tok *oauth2.Token, fallbackRefresh string) *Token {
	idToken, _ := tok.Extra("id_token").(string)
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		Expiry:       tok.Expiry,
		AccountID:    AccountID(idToken, tok.AccessToken),
	}
}
