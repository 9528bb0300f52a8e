package builtin

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/docker/go-units"

	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

// resolve validates a tool path, returning the root-relative path or a
// failure result.
func resolve(p string) (string, *tools.Result) {
	rel, err := cleanRel(p)
	if err != nil {
		res := fsFailure(p, err)
		return "", &res
	}
	return rel, nil
}

func (e *Executor) readFile(args tools.ReadFileArgs) tools.Result {
	rel, fail := resolve(args.Path)
	if fail != nil {
		return *fail
	}
	entry, err := e.backend.Stat(rel)
	if err != nil {
		return fsFailure(args.Path, err)
	}
	if entry.IsDir {
		return fsFailure(args.Path, errIsDir)
	}

	ranged := args.StartLine > 0 || args.EndLine > 0
	if !ranged && entry.Size > e.limits.MaxReadBytes {
		return tools.Failure("%s is %s, above the %s read limit; pass start_line and end_line to read part of it",
			args.Path, units.HumanSize(float64(entry.Size)), units.HumanSize(float64(e.limits.MaxReadBytes)))
	}
	if args.EndLine > 0 && args.StartLine > args.EndLine {
		return tools.Failure("start_line %d is after end_line %d", args.StartLine, args.EndLine)
	}

	r, err := e.backend.Open(rel)
	if err != nil {
		return fsFailure(args.Path, err)
	}
	defer r.Close()

	if !ranged {
		data, err := io.ReadAll(r)
		if err != nil {
			return fsFailure(args.Path, err)
		}
		if len(data) == 0 {
			return tools.Success("<empty file>")
		}
		return tools.Success(limitOutput(string(data), e.limits.MaxOutputChars))
	}

	start := max(args.StartLine, 1)
	var (
		out   strings.Builder
		line  int
		total int
	)
	reader := bufio.NewReader(r)
	for {
		text, err := reader.ReadString('\n')
		if text != "" {
			line++
			total = line
			if line >= start && (args.EndLine == 0 || line <= args.EndLine) {
				out.WriteString(text)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fsFailure(args.Path, err)
			}
			break
		}
		if args.EndLine > 0 && line >= args.EndLine {
			break
		}
		// Stop buffering once the output cap is reached.
		if out.Len() > e.limits.MaxOutputChars {
			break
		}
	}
	if start > total {
		return tools.Failure("start_line %d is past the end of %s (%d lines)", start, args.Path, total)
	}
	return tools.Success(limitOutput(out.String(), e.limits.MaxOutputChars))
}

func (e *Executor) writeFile(args tools.WriteFileArgs) tools.Result {
	rel, fail := resolve(args.Path)
	if fail != nil {
		return *fail
	}
	if rel == "." {
		return fsFailure(args.Path, errIsDir)
	}
	if err := e.backend.WriteFile(rel, []byte(args.Content)); err != nil {
		return fsFailure(args.Path, err)
	}
	return tools.Success(fmt.Sprintf("Wrote %d bytes to %s", len(args.Content), rel))
}

func (e *Executor) editFile(args tools.EditFileArgs) tools.Result {
	rel, fail := resolve(args.Path)
	if fail != nil {
		return *fail
	}
	if args.OldText == "" {
		return tools.Failure("old_text must not be empty")
	}
	entry, err := e.backend.Stat(rel)
	if err != nil {
		return fsFailure(args.Path, err)
	}
	if entry.IsDir {
		return fsFailure(args.Path, errIsDir)
	}

	r, err := e.backend.Open(rel)
	if err != nil {
		return fsFailure(args.Path, err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return fsFailure(args.Path, err)
	}
	content := string(data)

	switch n := strings.Count(content, args.OldText); n {
	case 0:
		return tools.Failure("old_text was not found in %s; it must match the file exactly, including whitespace", rel)
	case 1:
	default:
		return tools.Failure("old_text matches %d places in %s; include more surrounding context so it matches exactly once", n, rel)
	}

	updated := strings.Replace(content, args.OldText, args.NewText, 1)
	if err := e.backend.WriteFile(rel, []byte(updated)); err != nil {
		return fsFailure(args.Path, err)
	}

	diff := udiff.Unified("a/"+rel, "b/"+rel, content, updated)
	return tools.Success(limitOutput(fmt.Sprintf("Edited %s\n%s", rel, diff), e.limits.MaxOutputChars))
}

func (e *Executor) deleteFile(args tools.DeleteFileArgs) tools.Result {
	rel, fail := resolve(args.Path)
	if fail != nil {
		return *fail
	}
	if rel == "." {
		return tools.Failure("refusing to delete the project root")
	}
	entry, err := e.backend.Stat(rel)
	if err != nil {
		return fsFailure(args.Path, err)
	}
	if entry.IsDir {
		children, err := e.backend.List(rel)
		if err != nil {
			return fsFailure(args.Path, err)
		}
		if len(children) > 0 {
			return tools.Failure("directory %s is not empty (%d entries); delete its contents first", rel, len(children))
		}
	}
	if err := e.backend.Remove(rel); err != nil {
		return fsFailure(args.Path, err)
	}
	if entry.IsDir {
		return tools.Success("Deleted directory " + rel)
	}
	return tools.Success("Deleted " + rel)
}
