package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	DefaultMaxSize    = 5 * 1024 * 1024
	DefaultMaxBackups = 2
)

// RotatingFile is an io.WriteCloser that moves the current file aside as
// path.1, path.2, ... once it would grow past maxSize.
type RotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int

	mu      sync.Mutex
	file    *os.File
	written int64
}

type Option func(*RotatingFile)

func WithMaxSize(size int64) Option {
	return func(r *RotatingFile) {
		r.maxSize = size
	}
}

func WithMaxBackups(count int) Option {
	return func(r *RotatingFile) {
		r.maxBackups = count
	}
}

func NewRotatingFile(path string, opts ...Option) (*RotatingFile, error) {
	r := &RotatingFile{
		path:       path,
		maxSize:    DefaultMaxSize,
		maxBackups: DefaultMaxBackups,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	r.file = f
	r.written = info.Size()
	return nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.written > 0 && r.written+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.written += int64(n)
	return n, err
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *RotatingFile) backupName(n int) string {
	return fmt.Sprintf("%s.%d", r.path, n)
}

func (r *RotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}

	if r.maxBackups <= 0 {
		_ = os.Remove(r.path)
		return r.open()
	}

	_ = os.Remove(r.backupName(r.maxBackups))
	for n := r.maxBackups - 1; n > 0; n-- {
		_ = os.Rename(r.backupName(n), r.backupName(n+1))
	}
	if err := os.Rename(r.path, r.backupName(1)); err != nil && !os.IsNotExist(err) {
		return err
	}

	return r.open()
}
