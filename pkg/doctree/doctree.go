// Package doctree provides a permission-scoped document tree: storage that
// is only reachable by walking named documents from a granted root, never
// by arbitrary path.
package doctree

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

var (
	ErrNotExist    = fmt.Errorf("document %w", fs.ErrNotExist)
	ErrExist       = fmt.Errorf("document %w", fs.ErrExist)
	ErrNotDir      = errors.New("document is not a directory")
	ErrIsDir       = errors.New("document is a directory")
	ErrInvalidName = errors.New("invalid document name")
)

// Document is one file or directory of a Tree.
type Document interface {
	Name() string
	IsDir() bool
	Size() int64
	ModTime() time.Time

	// List returns the children of a directory, sorted by name.
	List() ([]Document, error)
	// Find returns the child called name, or ErrNotExist.
	Find(name string) (Document, error)
	CreateFile(name string) (Document, error)
	CreateDir(name string) (Document, error)
	// Delete removes the document, and everything below it for a
	// directory.
	Delete() error

	Open() (io.ReadCloser, error)
	// Create opens the document for writing, truncating it.
	Create() (io.WriteCloser, error)
}

// Tree is a named document tree backed by a billy filesystem.
type Tree struct {
	name string
	fs   billy.Filesystem
}

func New(name string, fs billy.Filesystem) *Tree {
	return &Tree{name: name, fs: fs}
}

// NewMemory returns an empty in-memory tree.
func NewMemory(name string) *Tree {
	return New(name, memfs.New())
}

// NewOS returns a tree rooted at dir on the local disk.
func NewOS(name, dir string) *Tree {
	return New(name, osfs.New(dir, osfs.WithBoundOS()))
}

func (t *Tree) Name() string {
	return t.name
}

func (t *Tree) Root() Document {
	return &node{tree: t, path: "", dir: true}
}

type node struct {
	tree *Tree
	path string
	dir  bool
	size int64
	mod  time.Time
}

func (n *node) Name() string {
	if n.path == "" {
		return n.tree.name
	}
	return path.Base(n.path)
}

func (n *node) IsDir() bool        { return n.dir }
func (n *node) Size() int64        { return n.size }
func (n *node) ModTime() time.Time { return n.mod }

func (n *node) fsPath() string {
	if n.path == "" {
		return "/"
	}
	return n.path
}

func (n *node) child(info fs.FileInfo) *node {
	return &node{
		tree: n.tree,
		path: path.Join(n.path, info.Name()),
		dir:  info.IsDir(),
		size: info.Size(),
		mod:  info.ModTime(),
	}
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (n *node) List() ([]Document, error) {
	if !n.dir {
		return nil, ErrNotDir
	}
	infos, err := n.tree.fs.ReadDir(n.fsPath())
	if err != nil {
		return nil, mapErr(err)
	}
	slices.SortFunc(infos, func(a, b fs.FileInfo) int {
		return strings.Compare(a.Name(), b.Name())
	})
	docs := make([]Document, 0, len(infos))
	for _, info := range infos {
		docs = append(docs, n.child(info))
	}
	return docs, nil
}

func (n *node) Find(name string) (Document, error) {
	if !n.dir {
		return nil, ErrNotDir
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	info, err := n.tree.fs.Lstat(path.Join(n.path, name))
	if err != nil {
		return nil, mapErr(err)
	}
	return n.child(info), nil
}

func (n *node) CreateFile(name string) (Document, error) {
	if err := n.checkCreate(name); err != nil {
		return nil, err
	}
	p := path.Join(n.path, name)
	f, err := n.tree.fs.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &node{tree: n.tree, path: p, mod: time.Now()}, nil
}

func (n *node) CreateDir(name string) (Document, error) {
	if err := n.checkCreate(name); err != nil {
		return nil, err
	}
	p := path.Join(n.path, name)
	if err := n.tree.fs.MkdirAll(p, 0o755); err != nil {
		return nil, mapErr(err)
	}
	return &node{tree: n.tree, path: p, dir: true, mod: time.Now()}, nil
}

func (n *node) checkCreate(name string) error {
	if !n.dir {
		return ErrNotDir
	}
	if err := validName(name); err != nil {
		return err
	}
	if _, err := n.tree.fs.Lstat(path.Join(n.path, name)); err == nil {
		return fmt.Errorf("%w: %s", ErrExist, name)
	}
	return nil
}

func (n *node) Delete() error {
	if n.path == "" {
		return errors.New("cannot delete the tree root")
	}
	return mapErr(util.RemoveAll(n.tree.fs, n.path))
}

func (n *node) Open() (io.ReadCloser, error) {
	if n.dir {
		return nil, ErrIsDir
	}
	f, err := n.tree.fs.Open(n.path)
	if err != nil {
		return nil, mapErr(err)
	}
	return f, nil
}

func (n *node) Create() (io.WriteCloser, error) {
	if n.dir {
		return nil, ErrIsDir
	}
	f, err := n.tree.fs.OpenFile(n.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, mapErr(err)
	}
	return f, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotExist, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %v", ErrExist, err)
	default:
		return err
	}
}

// Resolve walks the slash-separated relative path from the tree root.
// An empty path or "." is the root.
func (t *Tree) Resolve(rel string) (Document, error) {
	doc := t.Root()
	for _, part := range strings.Split(rel, "/") {
		if part == "" || part == "." {
			continue
		}
		next, err := doc.Find(part)
		if err != nil {
			return nil, err
		}
		doc = next
	}
	return doc, nil
}

// MkdirAll walks rel from the root, creating missing directories.
func (t *Tree) MkdirAll(rel string) (Document, error) {
	doc := t.Root()
	for _, part := range strings.Split(rel, "/") {
		if part == "" || part == "." {
			continue
		}
		next, err := doc.Find(part)
		if errors.Is(err, ErrNotExist) {
			next, err = doc.CreateDir(part)
		}
		if err != nil {
			return nil, err
		}
		if !next.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrNotDir, part)
		}
		doc = next
	}
	return doc, nil
}
