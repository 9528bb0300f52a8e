package builtin

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/LucasSabena/codemobile-sub001/pkg/doctree"
)

// treeBackend serves a project living in a scoped document tree.
type treeBackend struct {
	tree *doctree.Tree
}

func (b *treeBackend) doc(rel string) (doctree.Document, error) {
	if rel == "." {
		return b.tree.Root(), nil
	}
	return b.tree.Resolve(rel)
}

func entryOf(d doctree.Document) Entry {
	return Entry{Name: d.Name(), IsDir: d.IsDir(), Size: d.Size()}
}

func (b *treeBackend) Stat(rel string) (Entry, error) {
	d, err := b.doc(rel)
	if err != nil {
		return Entry{}, treeErr(err)
	}
	return entryOf(d), nil
}

func (b *treeBackend) List(rel string) ([]Entry, error) {
	d, err := b.doc(rel)
	if err != nil {
		return nil, treeErr(err)
	}
	children, err := d.List()
	if err != nil {
		return nil, treeErr(err)
	}
	entries := make([]Entry, 0, len(children))
	for _, c := range children {
		entries = append(entries, entryOf(c))
	}
	return entries, nil
}

func (b *treeBackend) Open(rel string) (io.ReadCloser, error) {
	d, err := b.doc(rel)
	if err != nil {
		return nil, treeErr(err)
	}
	r, err := d.Open()
	return r, treeErr(err)
}

func (b *treeBackend) WriteFile(rel string, data []byte) error {
	parent, err := b.tree.MkdirAll(path.Dir(rel))
	if err != nil {
		return treeErr(err)
	}
	name := path.Base(rel)
	d, err := parent.Find(name)
	if errors.Is(err, doctree.ErrNotExist) {
		d, err = parent.CreateFile(name)
	}
	if err != nil {
		return treeErr(err)
	}
	if d.IsDir() {
		return errIsDir
	}
	w, err := d.Create()
	if err != nil {
		return treeErr(err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *treeBackend) Remove(rel string) error {
	d, err := b.doc(rel)
	if err != nil {
		return treeErr(err)
	}
	return treeErr(d.Delete())
}

func (b *treeBackend) RunCommand(context.Context, string, string) (CommandResult, error) {
	return CommandResult{}, errUnsupported
}

func treeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, doctree.ErrIsDir):
		return errIsDir
	case errors.Is(err, doctree.ErrNotDir):
		return errNotDir
	case errors.Is(err, doctree.ErrInvalidName):
		return errEscapesRoot
	default:
		return err
	}
}
