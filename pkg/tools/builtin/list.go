package builtin

import (
	"fmt"
	"path"
	"strings"

	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

// ignoredDirs are not descended into by recursive listings and searches.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"build":        true,
	"dist":         true,
	"target":       true,
	"out":          true,
	"bin":          true,
	"obj":          true,
	"__pycache__":  true,
	"venv":         true,
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || ignoredDirs[name]
}

func (e *Executor) listDirectory(args tools.ListDirectoryArgs) tools.Result {
	rel, fail := resolve(args.Path)
	if fail != nil {
		return *fail
	}
	entry, err := e.backend.Stat(rel)
	if err != nil {
		return fsFailure(displayPath(args.Path), err)
	}
	if !entry.IsDir {
		return fsFailure(displayPath(args.Path), errNotDir)
	}

	l := &lister{backend: e.backend, max: e.limits.MaxListEntries}
	if err := l.walk(rel, 0, args.Recursive); err != nil {
		return fsFailure(displayPath(args.Path), err)
	}
	if l.count == 0 {
		return tools.Success("<empty directory>")
	}
	out := strings.TrimSuffix(l.out.String(), "\n")
	if l.truncated {
		out += fmt.Sprintf("\n\n[Listing truncated: more than %d entries]", l.max)
	}
	return tools.Success(limitOutput(out, e.limits.MaxOutputChars))
}

type lister struct {
	backend   Backend
	max       int
	count     int
	truncated bool
	out       strings.Builder
}

// walk renders dir as an indented tree, directories suffixed with "/".
func (l *lister) walk(dir string, depth int, recursive bool) error {
	entries, err := l.backend.List(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if l.count >= l.max {
			l.truncated = true
			return nil
		}
		l.count++
		l.out.WriteString(strings.Repeat("  ", depth))
		l.out.WriteString(entry.Name)
		if entry.IsDir {
			l.out.WriteString("/")
		}
		l.out.WriteString("\n")

		if recursive && entry.IsDir && !skipDir(entry.Name) {
			if err := l.walk(path.Join(dir, entry.Name), depth+1, true); err != nil {
				return err
			}
			if l.truncated {
				return nil
			}
		}
	}
	return nil
}

func displayPath(p string) string {
	if p == "" {
		return "."
	}
	return p
}
