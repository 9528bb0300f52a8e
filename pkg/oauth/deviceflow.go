// Package oauth implements the OAuth device-code flows used to log in to
// subscription providers, and refreshing their tokens.
package oauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/LucasSabena/codemobile-sub001/pkg/config"
)

const (
	MsgStartFailed = "could not start authentication"
	MsgExpired     = "code expired"
	MsgDenied      = "access denied"
	MsgTimedOut    = "authentication timed out"
	MsgCancelled   = "authentication cancelled"
)

// DeviceSession is one device-code authentication attempt.
type DeviceSession struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	// Interval is the provider-requested wait between polls.
	Interval time.Duration
	// ExpiresAt is zero when the provider did not report an expiry.
	ExpiresAt time.Time
}

type PollStatus int

const (
	PollPending PollStatus = iota
	PollSlowDown
	PollExpired
	PollDenied
	PollFailed
	PollGranted
)

// PollResult is a flow's interpretation of one poll response. A granted
// poll carries either the final Token or an authorization code to exchange.
type PollResult struct {
	Status   PollStatus
	Message  string
	Token    *Token
	Code     string
	Verifier string
}

// Flow supplies the provider-specific steps of a device-code flow.
type Flow interface {
	Start(ctx context.Context) (*DeviceSession, error)
	Poll(ctx context.Context, sess *DeviceSession) (PollResult, error)
}

// Exchanger is implemented by flows whose granted poll returns an
// authorization code that must be exchanged for tokens.
type Exchanger interface {
	Exchange(ctx context.Context, grant PollResult) (*Token, error)
}

// Refresher is implemented by flows that can renew an access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
}

// Authenticator drives a Flow through Init, ShowCode, Polling and a
// terminal Success or Error.
type Authenticator struct {
	flow   Flow
	limits config.Limits
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewAuthenticator(flow Flow, limits config.Limits) *Authenticator {
	return &Authenticator{
		flow:   flow,
		limits: limits.WithDefaults(),
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the flow. The channel is closed after the terminal event.
func (a *Authenticator) Run(ctx context.Context) <-chan Event {
	events := make(chan Event, 4)
	go func() {
		defer close(events)
		a.run(ctx, events)
	}()
	return events
}

func (a *Authenticator) run(ctx context.Context, events chan<- Event) {
	ctx, cancel := context.WithTimeout(ctx, a.limits.AuthTimeout)
	defer cancel()

	fail := func(msg string) {
		events <- &ErrorEvent{Message: msg}
	}
	interrupted := func() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			fail(MsgTimedOut)
			return
		}
		fail(MsgCancelled)
	}

	sess, err := a.flow.Start(ctx)
	if err != nil {
		slog.Error("Device authorization request failed", "error", err)
		fail(MsgStartFailed)
		return
	}

	slog.Debug("Device code issued", "verification_uri", sess.VerificationURI, "interval", sess.Interval)
	events <- &ShowCodeEvent{UserCode: sess.UserCode, VerificationURI: sess.VerificationURI}

	interval := max(sess.Interval, a.limits.PollInterval)

	for attempt := 1; ; attempt++ {
		wait := interval
		if !sess.ExpiresAt.IsZero() {
			wait = min(wait, max(time.Until(sess.ExpiresAt), 0))
		}
		if err := a.sleep(ctx, wait); err != nil {
			interrupted()
			return
		}
		if !sess.ExpiresAt.IsZero() && !time.Now().Before(sess.ExpiresAt) {
			fail(MsgExpired)
			return
		}

		events <- &PollingEvent{Attempt: attempt}

		res, err := a.flow.Poll(ctx, sess)
		if err != nil {
			if ctx.Err() != nil {
				interrupted()
				return
			}
			slog.Error("Device token poll failed", "attempt", attempt, "error", err)
			fail(err.Error())
			return
		}

		switch res.Status {
		case PollPending:
			continue
		case PollSlowDown:
			interval += a.limits.SlowDownBackoff
			slog.Debug("Device flow asked to slow down", "interval", interval)
			continue
		case PollExpired:
			fail(MsgExpired)
			return
		case PollDenied:
			fail(MsgDenied)
			return
		case PollGranted:
			tok, err := a.complete(ctx, res)
			if err != nil {
				slog.Error("Device token exchange failed", "error", err)
				fail(err.Error())
				return
			}
			events <- &SuccessEvent{Token: tok}
			return
		default:
			msg := res.Message
			if msg == "" {
				msg = "authentication failed"
			}
			fail(msg)
			return
		}
	}
}

func (a *Authenticator) complete(ctx context.Context, res PollResult) (*Token, error) {
	if res.Token != nil {
		return res.Token, nil
	}
	ex, ok := a.flow.(Exchanger)
	if !ok {
		return nil, errors.New("authorization granted without a token")
	}
	return ex.Exchange(ctx, res)
}
