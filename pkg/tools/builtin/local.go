package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// localBackend serves a project rooted at a directory of the local disk.
type localBackend struct {
	root     string
	realRoot string

	shell     string
	shellArgs []string
	env       []string
	timeout   time.Duration
	maxOutput int
	waitDelay time.Duration
}

func newLocalBackend(root string, timeout time.Duration, maxOutput int) (*localBackend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", abs)
	}
	realRoot, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	shell, args := defaultShell()
	return &localBackend{
		root:      abs,
		realRoot:  realRoot,
		shell:     shell,
		shellArgs: args,
		env:       os.Environ(),
		timeout:   timeout,
		maxOutput: maxOutput,
		waitDelay: 2 * time.Second,
	}, nil
}

// resolve maps rel to an absolute path and checks that symlinks do not
// lead outside the root.
func (b *localBackend) resolve(rel string) (string, error) {
	full := filepath.Join(b.root, filepath.FromSlash(rel))

	// Canonicalize the deepest existing ancestor.
	existing := full
	var rest []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		rest = append(rest, filepath.Base(existing))
		existing = parent
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	if !within(b.realRoot, resolved) {
		return "", errEscapesRoot
	}
	slices.Reverse(rest)
	return filepath.Join(append([]string{resolved}, rest...)...), nil
}

func within(root, p string) bool {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}

func (b *localBackend) Stat(rel string) (Entry, error) {
	full, err := b.resolve(rel)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Name: info.Name(), IsDir: info.IsDir(), Size: info.Size()}, nil
}

func (b *localBackend) List(rel string) ([]Entry, error) {
	full, err := b.resolve(rel)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if info, statErr := os.Stat(full); statErr == nil && !info.IsDir() {
			return nil, errNotDir
		}
		return nil, err
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		e := Entry{Name: de.Name(), IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil {
			e.Size = info.Size()
			// Symlinked directories are listed as directories.
			if de.Type()&fs.ModeSymlink != 0 {
				if target, err := os.Stat(filepath.Join(full, de.Name())); err == nil {
					e.IsDir = target.IsDir()
				}
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (b *localBackend) Open(rel string) (io.ReadCloser, error) {
	full, err := b.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (b *localBackend) WriteFile(rel string, data []byte) error {
	full, err := b.resolve(rel)
	if err != nil {
		return err
	}
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return errIsDir
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(full, bytes.NewReader(data))
}

func (b *localBackend) Remove(rel string) error {
	full, err := b.resolve(rel)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

func (b *localBackend) RunCommand(ctx context.Context, command, cwd string) (CommandResult, error) {
	dir, err := b.resolve(cwd)
	if err != nil {
		return CommandResult{}, err
	}
	if info, err := os.Stat(dir); err != nil {
		return CommandResult{}, err
	} else if !info.IsDir() {
		return CommandResult{}, errNotDir
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, b.shell, append(slices.Clone(b.shellArgs), command)...)
	cmd.Dir = dir
	cmd.Env = b.env
	cmd.SysProcAttr = platformSpecificSysProcAttr()
	cmd.Cancel = func() error {
		return kill(cmd.Process)
	}
	cmd.WaitDelay = b.waitDelay

	out := &cappedBuffer{max: b.maxOutput}
	cmd.Stdout = out
	cmd.Stderr = out

	slog.Debug("Running command", "command", command, "dir", dir)
	err = cmd.Run()

	res := CommandResult{Output: out.String()}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, err
	}
	return res, nil
}
