package oauth

// Event is emitted by Authenticator.Run. Exactly one SuccessEvent or
// ErrorEvent ends a run.
type Event interface {
	isEvent()
}

// ShowCodeEvent asks the user to enter UserCode at VerificationURI.
type ShowCodeEvent struct {
	UserCode        string
	VerificationURI string
}

// PollingEvent is the heartbeat sent before each poll.
type PollingEvent struct {
	Attempt int
}

type SuccessEvent struct {
	Token *Token
}

type ErrorEvent struct {
	Message string
}

func (*ShowCodeEvent) isEvent() {}
func (*PollingEvent) isEvent()  {}
func (*SuccessEvent) isEvent()  {}
func (*ErrorEvent) isEvent()    {}
