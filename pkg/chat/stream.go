package chat

// StreamEvent is the vendor-independent unit of streamed model output.
// A stream ends with exactly one Done or Error, except when it is
// cancelled, in which case it just ends.
type StreamEvent interface {
	isStreamEvent()
}

type TextDelta struct {
	Text string
}

// ToolCallDelta reports progress on the tool call assembled at Index. ID
// and Name are set when the call opens; Arguments carries one fragment.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

type ToolCallComplete struct {
	ToolCall ToolCall
}

// Usage reports token counts. Successive Usage events add up.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

type Done struct{}

type Error struct {
	Message string
	Code    string
}

func (TextDelta) isStreamEvent()        {}
func (ToolCallDelta) isStreamEvent()    {}
func (ToolCallComplete) isStreamEvent() {}
func (Usage) isStreamEvent()            {}
func (Done) isStreamEvent()             {}
func (Error) isStreamEvent()            {}

// IsTerminal reports whether ev ends a stream.
func IsTerminal(ev StreamEvent) bool {
	switch ev.(type) {
	case Done, Error:
		return true
	default:
		return false
	}
}

func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
	}
}

func (e Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}
