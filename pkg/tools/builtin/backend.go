package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

var (
	errEscapesRoot = errors.New("path escapes the project root")
	errIsDir       = errors.New("is a directory")
	errNotDir      = errors.New("not a directory")
	errUnsupported = errors.New("not supported by this backend")
)

// Entry describes one file or directory of a backend.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
}

// Backend is the storage a project lives on. Paths are cleaned,
// slash-separated and relative to the project root; "." is the root.
// Every tool is implemented once on top of these primitives so that all
// backends report the same results and messages.
type Backend interface {
	Stat(rel string) (Entry, error)
	// List returns the children of a directory sorted by name.
	List(rel string) ([]Entry, error)
	Open(rel string) (io.ReadCloser, error)
	// WriteFile creates or replaces a file, creating parent directories.
	WriteFile(rel string, data []byte) error
	Remove(rel string) error
	// RunCommand runs a shell command with cwd as working directory.
	RunCommand(ctx context.Context, command, cwd string) (CommandResult, error)
}

type CommandResult struct {
	Output   string
	ExitCode int
	TimedOut bool
}

// cleanRel turns a tool-supplied path into a root-relative path, refusing
// any path that resolves above the root.
func cleanRel(p string) (string, error) {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return ".", nil
	}
	if strings.HasPrefix(p, "/") {
		return "", errEscapesRoot
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errEscapesRoot
	}
	return clean, nil
}

// fsFailure renders a backend error the same way for every backend.
func fsFailure(p string, err error) tools.Result {
	return tools.Failure("%s", describe(p, err))
}

func describe(p string, err error) string {
	switch {
	case errors.Is(err, errEscapesRoot):
		return fmt.Sprintf("path %q is outside the project root", p)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Sprintf("%s does not exist", p)
	case errors.Is(err, fs.ErrExist):
		return fmt.Sprintf("%s already exists", p)
	case errors.Is(err, errIsDir):
		return fmt.Sprintf("%s is a directory", p)
	case errors.Is(err, errNotDir):
		return fmt.Sprintf("%s is not a directory", p)
	default:
		return fmt.Sprintf("%s: %v", p, err)
	}
}
