package builtin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/wire"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

type searcher struct {
	backend   Backend
	match     func(string) bool
	include   string
	maxBytes  int64
	max       int
	outputCap int

	results   []string
	truncated bool
}

func (e *Executor) searchFiles(ctx context.Context, args tools.SearchFilesArgs) tools.Result {
	if args.Pattern == "" {
		return tools.Failure("pattern must not be empty")
	}
	rel, fail := resolve(args.Path)
	if fail != nil {
		return *fail
	}
	if args.Include != "" && !doublestar.ValidatePattern(args.Include) {
		return tools.Failure("invalid include pattern %q", args.Include)
	}

	match := func(line string) bool {
		return strings.Contains(line, args.Pattern)
	}
	if args.Regex {
		re, err := regexp.Compile(args.Pattern)
		if err != nil {
			return tools.Failure("invalid regular expression: %v", err)
		}
		match = re.MatchString
	}

	entry, err := e.backend.Stat(rel)
	if err != nil {
		return fsFailure(displayPath(args.Path), err)
	}

	s := &searcher{
		backend:   e.backend,
		match:     match,
		include:   args.Include,
		maxBytes:  e.limits.MaxSearchFileBytes,
		max:       e.limits.MaxSearchResults,
		outputCap: e.limits.MaxOutputChars,
	}
	if entry.IsDir {
		err = s.walk(ctx, rel)
	} else {
		err = s.file(rel, entry)
	}
	if err != nil {
		if ctx.Err() != nil {
			return tools.Failure("search cancelled")
		}
		return fsFailure(displayPath(args.Path), err)
	}

	if len(s.results) == 0 {
		return tools.Success(fmt.Sprintf("No matches found for %q", args.Pattern))
	}
	out := strings.Join(s.results, "\n")
	if s.truncated {
		out += fmt.Sprintf("\n\n[Results truncated: more than %d matches]", s.max)
	}
	return tools.Success(limitOutput(out, s.outputCap))
}

func (s *searcher) walk(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := s.backend.List(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if s.truncated {
			return nil
		}
		p := path.Join(dir, entry.Name)
		if entry.IsDir {
			if skipDir(entry.Name) {
				continue
			}
			if err := s.walk(ctx, p); err != nil {
				return err
			}
			continue
		}
		if !s.included(p) {
			continue
		}
		if err := s.file(p, entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *searcher) included(p string) bool {
	if s.include == "" {
		return true
	}
	if ok, _ := doublestar.Match(s.include, p); ok {
		return true
	}
	// Patterns without a directory part also match by base name.
	if !strings.Contains(s.include, "/") {
		ok, _ := doublestar.Match(s.include, path.Base(p))
		return ok
	}
	return false
}

func (s *searcher) file(p string, entry Entry) error {
	if entry.Size > s.maxBytes {
		return nil
	}
	r, err := s.backend.Open(p)
	if err != nil {
		return err
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return err
	}
	if int64(len(data)) > s.maxBytes || isBinary(data) {
		return nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if !s.match(line) {
			continue
		}
		if len(s.results) >= s.max {
			s.truncated = true
			return nil
		}
		s.results = append(s.results, fmt.Sprintf("%s:%d: %s", p, n, wire.Preview(strings.TrimSpace(line))))
	}
	return scanner.Err()
}

func isBinary(data []byte) bool {
	return bytes.IndexByte(data[:min(len(data), 8000)], 0) >= 0
}
