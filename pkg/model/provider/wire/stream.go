package wire

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go/v3/packages/ssestream"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
)

var doneSentinel = []byte("[DONE]")

// Stream reads the SSE body of resp in a goroutine and feeds every data
// payload through codec. The returned channel carries exactly one Done or
// Error before it closes, unless ctx is cancelled, in which case it closes
// without a terminal event. The response body is always closed.
func Stream(ctx context.Context, resp *http.Response, codec Codec) <-chan chat.StreamEvent {
	out := make(chan chat.StreamEvent, 16)

	go func() {
		defer close(out)

		send := func(ev chat.StreamEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		decoder := ssestream.NewDecoder(resp)
		if decoder == nil {
			send(chat.Error{Message: "empty response body"})
			return
		}
		defer decoder.Close()

		sawDone := false
		for decoder.Next() {
			data := bytes.TrimSpace(decoder.Event().Data)
			if len(data) == 0 {
				continue
			}
			if bytes.Equal(data, doneSentinel) {
				break
			}

			for _, ev := range codec.Decode(data) {
				switch ev := ev.(type) {
				case chat.Done:
					// Held back so usage chunks sent after the finish
					// reason are still delivered.
					sawDone = true
				case chat.Error:
					send(ev)
					return
				default:
					if !send(ev) {
						return
					}
				}
			}
		}

		if ctx.Err() != nil {
			slog.Debug("Stream cancelled", "error", ctx.Err())
			return
		}

		if err := decoder.Err(); err != nil && !sawDone {
			send(chat.Error{Message: fmt.Sprintf("stream read failed: %v", err), Code: "transport"})
			return
		}

		for _, ev := range codec.Finish() {
			if !send(ev) {
				return
			}
		}
		send(chat.Done{})
	}()

	return out
}
