package root

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider"
)

// isolate points every data and config path at temporary directories and
// hides API keys of the host environment.
func isolate(t *testing.T) (configDir string) {
	t.Helper()

	configDir = t.TempDir()
	t.Setenv("CODEMOBILE_CONFIG_DIR", configDir)
	t.Setenv("CODEMOBILE_DATA_DIR", t.TempDir())
	t.Setenv("CODEMOBILE_KEYRING", "file")
	t.Setenv("CODEMOBILE_KEYRING_PASSPHRASE", "test-passphrase")
	t.Setenv("BROWSER", "true")
	for _, env := range provider.KeyEnvVars() {
		t.Setenv(env, "")
	}
	return configDir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	err := Execute(t.Context(), strings.NewReader(stdin), &stdout, &stderr, args...)
	return stdout.String(), stderr.String(), err
}

// fakeOpenAI serves the models list and a one-line streamed reply.
func fakeOpenAI(t *testing.T, reply string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var chats atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /models", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"object":"list","data":[]}`)
	})
	mux.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, _ *http.Request) {
		chats.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"content":"`+reply+`"}}]}`+"\n\n")
		_, _ = io.WriteString(w, `data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`+"\n\n")
		_, _ = io.WriteString(w, `data: {"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":4}}`+"\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &chats
}

func TestVersion(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "codemobile version dev")
}

func TestModels(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "", "models", "openai")
	require.NoError(t, err)
	assert.Contains(t, out, "gpt-4o")
	assert.Contains(t, out, "128k")
	assert.Contains(t, out, "api-key")
	assert.NotContains(t, out, "claude")

	_, stderr, err := execute(t, "", "models", "nope")
	var cfgErr *provider.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, stderr, `provider "nope": unknown provider`)
}

func TestLoginAPIKeyThenValidate(t *testing.T) {
	configDir := isolate(t)
	srv, _ := fakeOpenAI(t, "unused")
	writeConfig(t, configDir, "providers:\n  openai:\n    base_url: "+srv.URL+"\n")

	_, stderr, err := execute(t, "", "validate", "--provider", "openai")
	var cfgErr *provider.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, stderr, "no API key stored; set OPENAI_API_KEY")

	out, _, err := execute(t, "", "login", "openai", "--api-key", "sk-test")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved API key for OpenAI.")

	out, _, err = execute(t, "", "validate", "--provider", "openai")
	require.NoError(t, err)
	assert.Contains(t, out, "credentials for openai are valid")

	_, _, err = execute(t, "", "logout", "openai")
	require.NoError(t, err)
	_, _, err = execute(t, "", "validate", "--provider", "openai")
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoginRejectedKey(t *testing.T) {
	configDir := isolate(t)
	srv, _ := fakeOpenAI(t, "unused")
	writeConfig(t, configDir, "providers:\n  openai:\n    base_url: "+srv.URL+"\n")

	_, _, err := execute(t, "sk-wrong\n", "login", "openai")
	require.NoError(t, err)

	_, _, err = execute(t, "", "validate", "--provider", "openai")
	require.ErrorContains(t, err, "credentials for openai were rejected")
}

func TestLoginWithoutCredentialsNeeded(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "", "login", "ollama")
	require.NoError(t, err)
	assert.Contains(t, out, "Ollama does not need credentials.")
}

var sessionLine = regexp.MustCompile(`session ([0-9a-f-]{36})`)

func TestChatStoresSession(t *testing.T) {
	configDir := isolate(t)
	srv, chats := fakeOpenAI(t, "hello from the model")
	writeConfig(t, configDir, "provider: openai\nproviders:\n  openai:\n    base_url: "+srv.URL+"\n")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	out, stderr, err := execute(t, "", "chat", "say", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "hello from the model")
	assert.Equal(t, int32(1), chats.Load())

	m := sessionLine.FindStringSubmatch(stderr)
	require.Len(t, m, 2, stderr)
	id := m[1]

	out, _, err = execute(t, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "say hello")
	assert.Contains(t, out, "openai/gpt-4.1")
	assert.Contains(t, out, "12/4")

	out, _, err = execute(t, "", "sessions", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "say hello")
	assert.Contains(t, out, "hello from the model")

	// Continuing the session sends the stored history along.
	_, _, err = execute(t, "", "chat", "--session", id, "again")
	require.NoError(t, err)
	assert.Equal(t, int32(2), chats.Load())

	_, _, err = execute(t, "", "sessions", "rm", id)
	require.NoError(t, err)
	out, _, err = execute(t, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions yet.")
}

func TestChatReadsStdin(t *testing.T) {
	configDir := isolate(t)
	srv, chats := fakeOpenAI(t, "ok")
	writeConfig(t, configDir, "providers:\n  openai:\n    base_url: "+srv.URL+"\n")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, _, err := execute(t, "first\n\nsecond\n", "chat", "--provider", "openai", "--model", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, int32(2), chats.Load())
}

func TestChatWithoutProvider(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "", "chat", "hi")
	require.ErrorContains(t, err, "no provider selected")
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "fix the bug", title("  fix   the\nbug "))
	long := strings.Repeat("é", 70)
	assert.Equal(t, strings.Repeat("é", 60)+"...", title(long))
}
