package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	GitHubClientID      = "Iv1.b507a08c87ecfe98"
	GitHubDeviceCodeURL = "https://github.com/login/device/code"
	GitHubTokenURL      = "https://github.com/login/oauth/access_token"

	deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// GitHubFlow is the RFC 8628 device flow against GitHub, used to obtain a
// Copilot token.
type GitHubFlow struct {
	Config     oauth2.Config
	HTTPClient *http.Client
}

func NewGitHubFlow(httpClient *http.Client) *GitHubFlow {
	return &GitHubFlow{
		Config: oauth2.Config{
			ClientID: GitHubClientID,
			Scopes:   []string{"read:user"},
			Endpoint: oauth2.Endpoint{
				DeviceAuthURL: GitHubDeviceCodeURL,
				TokenURL:      GitHubTokenURL,
			},
		},
		HTTPClient: httpClient,
	}
}

func (f *GitHubFlow) client() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return http.DefaultClient
}

func (f *GitHubFlow) Start(ctx context.Context) (*DeviceSession, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client())
	resp, err := f.Config.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting device code: %w", err)
	}
	return &DeviceSession{
		DeviceCode:      resp.DeviceCode,
		UserCode:        resp.UserCode,
		VerificationURI: resp.VerificationURI,
		Interval:        time.Duration(resp.Interval) * time.Second,
		ExpiresAt:       resp.Expiry,
	}, nil
}

type githubTokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (f *GitHubFlow) Poll(ctx context.Context, sess *DeviceSession) (PollResult, error) {
	form := url.Values{
		"client_id":   {f.Config.ClientID},
		"device_code": {sess.DeviceCode},
		"grant_type":  {deviceCodeGrantType},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return PollResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client().Do(req)
	if err != nil {
		return PollResult{}, fmt.Errorf("polling for token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return PollResult{}, fmt.Errorf("reading token response: %w", err)
	}

	var tr githubTokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return PollResult{Status: PollFailed, Message: fmt.Sprintf("unexpected token response (HTTP %d)", resp.StatusCode)}, nil
	}
	return interpretTokenResponse(tr), nil
}

func interpretTokenResponse(tr githubTokenResponse) PollResult {
	switch tr.Error {
	case "":
	case "authorization_pending":
		return PollResult{Status: PollPending}
	case "slow_down":
		return PollResult{Status: PollSlowDown}
	case "expired_token":
		return PollResult{Status: PollExpired}
	case "access_denied":
		return PollResult{Status: PollDenied}
	default:
		msg := tr.ErrorDescription
		if msg == "" {
			msg = tr.Error
		}
		return PollResult{Status: PollFailed, Message: msg}
	}

	if tr.AccessToken == "" {
		return PollResult{Status: PollFailed, Message: "token response did not contain an access token"}
	}
	tok := &Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return PollResult{Status: PollGranted, Token: tok}
}
