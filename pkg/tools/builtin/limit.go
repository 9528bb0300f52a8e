package builtin

import (
	"fmt"
	"unicode/utf8"
)

// limitOutput caps output at maxChars bytes, cutting on a rune boundary,
// and marks the cut.
func limitOutput(output string, maxChars int) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(output[cut]) {
		cut--
	}
	return output[:cut] + truncationMarker(maxChars)
}

func truncationMarker(maxChars int) string {
	return fmt.Sprintf("\n\n[Output truncated: exceeded %d character limit]", maxChars)
}

// cappedBuffer keeps the first max bytes written to it and discards the
// rest, remembering that it did.
type cappedBuffer struct {
	buf       []byte
	max       int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.max - len(b.buf)
	if room <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if len(p) > room {
		b.buf = append(b.buf, p[:room]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	if !b.truncated {
		return string(b.buf)
	}
	cut := len(b.buf)
	// Drop a rune split by the cap.
	if r, size := utf8.DecodeLastRune(b.buf); r == utf8.RuneError && size <= 1 {
		for i := 1; i <= utf8.UTFMax && i <= cut; i++ {
			if utf8.RuneStart(b.buf[cut-i]) {
				cut -= i
				break
			}
		}
	}
	return string(b.buf[:cut]) + truncationMarker(b.max)
}
