// Package wire turns vendor Server-Sent-Event payloads into canonical
// chat.StreamEvent values.
package wire

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
)

// Dialect identifies a streaming wire format.
type Dialect int

const (
	DialectOpenAI Dialect = iota
	DialectAnthropic
	// DialectResponses is the OpenAI Responses event stream.
	DialectResponses
)

func (d Dialect) String() string {
	switch d {
	case DialectOpenAI:
		return "openai"
	case DialectAnthropic:
		return "anthropic"
	case DialectResponses:
		return "responses"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// Codec decodes the data payloads of one stream. A Codec is stateful and
// must not be shared between streams.
type Codec interface {
	// Decode turns one SSE data payload into zero or more events.
	Decode(payload []byte) []chat.StreamEvent
	// Finish flushes tool calls still being assembled when the stream ends.
	Finish() []chat.StreamEvent
}

// NewCodec returns a fresh codec for d.
func (d Dialect) NewCodec() Codec {
	switch d {
	case DialectAnthropic:
		return &anthropicCodec{calls: assembly{}}
	case DialectResponses:
		return &responsesCodec{calls: assembly{}}
	default:
		return &openAICodec{calls: assembly{}}
	}
}

const previewLimit = 200

// Preview returns at most 200 characters of s for error messages, the
// ellipsis of a truncated preview included.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLimit {
		return s
	}
	const ellipsis = "..."
	runes := 0
	for i := range s {
		if runes == previewLimit-len(ellipsis) {
			return s[:i] + ellipsis
		}
		runes++
	}
	return s
}

func malformed(payload []byte, err error) chat.Error {
	return chat.Error{
		Message: fmt.Sprintf("malformed stream payload (%v): %s", err, Preview(string(payload))),
		Code:    "malformed_payload",
	}
}

// toolCallBuilder accumulates one tool call while its fragments stream in.
type toolCallBuilder struct {
	id   string
	name string
	args strings.Builder
}

func (b *toolCallBuilder) build(index int) chat.ToolCall {
	id := b.id
	if id == "" {
		id = fmt.Sprintf("call_%d", index)
	}
	args := b.args.String()
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	return chat.ToolCall{ID: id, Name: b.name, Arguments: args}
}

// assembly maps a stream's tool-call index to its builder.
type assembly map[int]*toolCallBuilder

func (a assembly) get(index int) *toolCallBuilder {
	b, ok := a[index]
	if !ok {
		b = &toolCallBuilder{}
		a[index] = b
	}
	return b
}

func (a assembly) complete(index int) (chat.ToolCallComplete, bool) {
	b, ok := a[index]
	if !ok {
		return chat.ToolCallComplete{}, false
	}
	delete(a, index)
	return chat.ToolCallComplete{ToolCall: b.build(index)}, true
}

// flush completes every pending call in index order.
func (a assembly) flush() []chat.StreamEvent {
	if len(a) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(a))
	for i := range a {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	events := make([]chat.StreamEvent, 0, len(indexes))
	for _, i := range indexes {
		ev, _ := a.complete(i)
		events = append(events, ev)
	}
	return events
}
