package root

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/LucasSabena/codemobile-sub001/pkg/runtime"
)

var (
	blue   = color.New(color.FgBlue).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
	faint  = color.New(color.Faint).SprintfFunc()
	bold   = color.New(color.Bold).SprintfFunc()
)

const maxResponsePreview = 400

type printer struct {
	out io.Writer
}

// printEvent renders one runtime event as plain terminal text.
func (p *printer) printEvent(ev runtime.Event) {
	switch e := ev.(type) {
	case *runtime.AgentChoiceEvent:
		fmt.Fprint(p.out, e.Content)
	case *runtime.ToolCallEvent:
		fmt.Fprintf(p.out, "\n%s %s\n", blue("Calling %s", bold(e.ToolCall.Name)), faint("%s", e.ToolCall.Arguments))
	case *runtime.ToolCallResponseEvent:
		colorize := green
		if !e.Success {
			colorize = red
		}
		fmt.Fprintf(p.out, "%s\n", colorize("%s", preview(e.Response)))
	case *runtime.MaxRoundsReachedEvent:
		fmt.Fprintf(p.out, "\n%s\n", yellow("Stopped after %d rounds; the model was still calling tools.", e.MaxRounds))
	case *runtime.ErrorEvent:
		fmt.Fprintf(p.out, "\n%s\n", red("❌ %s", e.Error))
	case *runtime.StreamStoppedEvent:
		fmt.Fprintln(p.out)
	}
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxResponsePreview {
		return s
	}
	cut := maxResponsePreview
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

