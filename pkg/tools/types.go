package tools

import "fmt"

// Tool describes one function the model may call. Parameters is a
// JSON-Schema object sent verbatim to providers.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// Result is the outcome of one tool call. Failures are carried in the value,
// never as Go errors.
type Result struct {
	Output  string `json:"output"`
	Success bool   `json:"success"`
}

func Success(output string) Result {
	return Result{Output: output, Success: true}
}

// Failure formats an actionable error message prefixed with "Error: ".
func Failure(format string, args ...any) Result {
	return Result{Output: "Error: " + fmt.Sprintf(format, args...)}
}
