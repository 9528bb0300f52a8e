package provider

import (
	"maps"
	"slices"

	"github.com/LucasSabena/codemobile-sub001/pkg/credentials"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/wire"
)

// AuthKind is how a provider authenticates requests.
type AuthKind int

const (
	AuthAPIKey AuthKind = iota
	AuthOAuth
	AuthNone
)

func (k AuthKind) String() string {
	switch k {
	case AuthAPIKey:
		return "api-key"
	case AuthOAuth:
		return "oauth"
	case AuthNone:
		return "none"
	default:
		return "unknown"
	}
}

// Descriptor is the static description of a provider. Adding a provider,
// or changing which providers skip validation or need extra headers, is a
// change to this data only.
type Descriptor struct {
	ID      string
	Name    string
	Dialect wire.Dialect
	BaseURL string
	// ChatPath overrides the dialect's default streaming path.
	ChatPath string
	Auth     AuthKind
	Headers  map[string]string
	// SkipValidation marks providers without a cheap validation request.
	SkipValidation bool
	StreamOptions  bool
	// AccountHeader, when set, carries the stored account id.
	AccountHeader string
	// KeyEnv is the environment variable consulted for a missing API key.
	KeyEnv string
	Models []Model
}

const (
	OpenAI     = "openai"
	Anthropic  = "anthropic"
	OpenRouter = "openrouter"
	DeepSeek   = "deepseek"
	Groq       = "groq"
	Mistral    = "mistral"
	Ollama     = "ollama"
	Copilot    = "github-copilot"
	Codex      = "openai-codex"
)

var registry = []Descriptor{
	{
		ID:            OpenAI,
		Name:          "OpenAI",
		Dialect:       wire.DialectOpenAI,
		BaseURL:       "https://api.openai.com/v1",
		Auth:          AuthAPIKey,
		StreamOptions: true,
		KeyEnv:        "OPENAI_API_KEY",
		Models: []Model{
			{ID: "gpt-4.1", Name: "GPT-4.1", ContextWindow: 1047576},
			{ID: "gpt-4.1-mini", Name: "GPT-4.1 mini", ContextWindow: 1047576},
			{ID: "gpt-4o", Name: "GPT-4o", ContextWindow: 128000},
			{ID: "o4-mini", Name: "o4-mini", ContextWindow: 200000},
		},
	},
	{
		ID:      Anthropic,
		Name:    "Anthropic",
		Dialect: wire.DialectAnthropic,
		BaseURL: "https://api.anthropic.com",
		Auth:    AuthAPIKey,
		Headers: map[string]string{"anthropic-version": "2023-06-01"},
		KeyEnv:  "ANTHROPIC_API_KEY",
		Models: []Model{
			{ID: "claude-sonnet-4-0", Name: "Claude Sonnet 4", ContextWindow: 200000},
			{ID: "claude-3-7-sonnet-latest", Name: "Claude 3.7 Sonnet", ContextWindow: 200000},
			{ID: "claude-3-5-haiku-latest", Name: "Claude 3.5 Haiku", ContextWindow: 200000},
		},
	},
	{
		ID:            OpenRouter,
		Name:          "OpenRouter",
		Dialect:       wire.DialectOpenAI,
		BaseURL:       "https://openrouter.ai/api/v1",
		Auth:          AuthAPIKey,
		StreamOptions: true,
		Headers:       map[string]string{"X-Title": "Codemobile"},
		KeyEnv:        "OPENROUTER_API_KEY",
		Models: []Model{
			{ID: "anthropic/claude-sonnet-4", Name: "Claude Sonnet 4", ContextWindow: 200000},
			{ID: "openai/gpt-4.1", Name: "GPT-4.1", ContextWindow: 1047576},
			{ID: "google/gemini-2.5-pro", Name: "Gemini 2.5 Pro", ContextWindow: 1048576},
		},
	},
	{
		ID:            DeepSeek,
		Name:          "DeepSeek",
		Dialect:       wire.DialectOpenAI,
		BaseURL:       "https://api.deepseek.com/v1",
		Auth:          AuthAPIKey,
		StreamOptions: true,
		KeyEnv:        "DEEPSEEK_API_KEY",
		Models: []Model{
			{ID: "deepseek-chat", Name: "DeepSeek Chat", ContextWindow: 64000},
			{ID: "deepseek-reasoner", Name: "DeepSeek Reasoner", ContextWindow: 64000},
		},
	},
	{
		ID:            Groq,
		Name:          "Groq",
		Dialect:       wire.DialectOpenAI,
		BaseURL:       "https://api.groq.com/openai/v1",
		Auth:          AuthAPIKey,
		StreamOptions: true,
		KeyEnv:        "GROQ_API_KEY",
		Models: []Model{
			{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B", ContextWindow: 131072},
			{ID: "qwen/qwen3-32b", Name: "Qwen3 32B", ContextWindow: 131072},
		},
	},
	{
		ID:      Mistral,
		Name:    "Mistral",
		Dialect: wire.DialectOpenAI,
		BaseURL: "https://api.mistral.ai/v1",
		Auth:    AuthAPIKey,
		KeyEnv:  "MISTRAL_API_KEY",
		Models: []Model{
			{ID: "mistral-large-latest", Name: "Mistral Large", ContextWindow: 131072},
			{ID: "codestral-latest", Name: "Codestral", ContextWindow: 256000},
		},
	},
	{
		ID:             Ollama,
		Name:           "Ollama",
		Dialect:        wire.DialectOpenAI,
		BaseURL:        "http://localhost:11434/v1",
		Auth:           AuthNone,
		SkipValidation: true,
		Models: []Model{
			{ID: "qwen2.5-coder", Name: "Qwen2.5 Coder"},
			{ID: "llama3.1", Name: "Llama 3.1"},
		},
	},
	{
		ID:      Copilot,
		Name:    "GitHub Copilot",
		Dialect: wire.DialectOpenAI,
		BaseURL: "https://api.githubcopilot.com",
		Auth:    AuthOAuth,
		Headers: map[string]string{
			"Editor-Version":         "vscode/1.99.0",
			"Editor-Plugin-Version":  "copilot-chat/0.26.0",
			"Copilot-Integration-Id": "vscode-chat",
		},
		SkipValidation: true,
		Models: []Model{
			{ID: "gpt-4.1", Name: "GPT-4.1", ContextWindow: 128000},
			{ID: "claude-sonnet-4", Name: "Claude Sonnet 4", ContextWindow: 128000},
			{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", ContextWindow: 128000},
		},
	},
	{
		ID:       Codex,
		Name:     "ChatGPT (Codex)",
		Dialect:  wire.DialectResponses,
		BaseURL:  "https://chatgpt.com/backend-api/codex",
		ChatPath: "/responses",
		Auth:     AuthOAuth,
		Headers: map[string]string{
			"originator":  "codex_cli_rs",
			"OpenAI-Beta": "responses=experimental",
		},
		AccountHeader:  "chatgpt-account-id",
		SkipValidation: true,
		Models: []Model{
			{ID: "gpt-5", Name: "GPT-5", ContextWindow: 272000},
			{ID: "codex-mini-latest", Name: "Codex mini", ContextWindow: 200000},
		},
	},
}

// Lookup returns a copy of the descriptor registered under id.
func Lookup(id string) (Descriptor, bool) {
	for _, d := range registry {
		if d.ID == id {
			d.Headers = maps.Clone(d.Headers)
			d.Models = slices.Clone(d.Models)
			return d, true
		}
	}
	return Descriptor{}, false
}

// All returns the registered descriptors in registry order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(registry))
	for _, d := range registry {
		d, _ = Lookup(d.ID)
		out = append(out, d)
	}
	return out
}

// IDs returns the registered provider ids.
func IDs() []string {
	ids := make([]string, len(registry))
	for i, d := range registry {
		ids[i] = d.ID
	}
	return ids
}

// KeyEnvVars maps each API-key credential to its environment variable, for
// credentials.NewEnvFallback.
func KeyEnvVars() map[string]string {
	vars := map[string]string{}
	for _, d := range registry {
		if d.Auth == AuthAPIKey && d.KeyEnv != "" {
			vars[credentials.APIKeyKey(d.ID)] = d.KeyEnv
		}
	}
	return vars
}
