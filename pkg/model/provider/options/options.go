package options

import "github.com/LucasSabena/codemobile-sub001/pkg/config"

// Generation carries the per-request sampling parameters. Unset values are
// left to the provider's defaults.
type Generation struct {
	systemPrompt  string
	temperature   *float64
	topP          *float64
	maxTokens     *int64
	stopSequences []string
}

func (g *Generation) SystemPrompt() string {
	return g.systemPrompt
}

func (g *Generation) Temperature() *float64 {
	return g.temperature
}

func (g *Generation) TopP() *float64 {
	return g.topP
}

func (g *Generation) MaxTokens() *int64 {
	return g.maxTokens
}

func (g *Generation) StopSequences() []string {
	return g.stopSequences
}

type Opt func(*Generation)

func WithSystemPrompt(prompt string) Opt {
	return func(g *Generation) {
		g.systemPrompt = prompt
	}
}

func WithTemperature(t float64) Opt {
	return func(g *Generation) {
		g.temperature = &t
	}
}

func WithTopP(p float64) Opt {
	return func(g *Generation) {
		g.topP = &p
	}
}

func WithMaxTokens(n int64) Opt {
	return func(g *Generation) {
		g.maxTokens = &n
	}
}

func WithStopSequences(stop ...string) Opt {
	return func(g *Generation) {
		g.stopSequences = stop
	}
}

func New(opts ...Opt) Generation {
	var g Generation
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// FromConfig converts the generation section of the user config into Opts.
func FromConfig(c config.Generation) []Opt {
	var out []Opt
	if c.SystemPrompt != "" {
		out = append(out, WithSystemPrompt(c.SystemPrompt))
	}
	if c.Temperature != nil {
		out = append(out, WithTemperature(*c.Temperature))
	}
	if c.TopP != nil {
		out = append(out, WithTopP(*c.TopP))
	}
	if c.MaxTokens > 0 {
		out = append(out, WithMaxTokens(c.MaxTokens))
	}
	if len(c.StopSequences) > 0 {
		out = append(out, WithStopSequences(c.StopSequences...))
	}
	return out
}
