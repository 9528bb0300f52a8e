// Package builtin executes the built-in tools against a project root that is
// either a local directory or a scoped document tree.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/config"
	"github.com/LucasSabena/codemobile-sub001/pkg/doctree"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/wire"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

// TreeScheme prefixes project roots that name a mounted document tree.
const TreeScheme = "tree://"

// Executor runs tool calls. It never returns errors: every failure is a
// tools.Result with Success false.
type Executor struct {
	backend Backend
	limits  config.Limits
	schemas map[string]*gojsonschema.Schema
}

type Opt func(*execOptions)

type execOptions struct {
	limits config.Limits
	trees  map[string]*doctree.Tree
}

func WithLimits(l config.Limits) Opt {
	return func(o *execOptions) {
		o.limits = l
	}
}

// WithTrees mounts document trees, addressable as tree://<name>.
func WithTrees(trees ...*doctree.Tree) Opt {
	return func(o *execOptions) {
		for _, t := range trees {
			o.trees[t.Name()] = t
		}
	}
}

// NewExecutor picks the backend once from the root's addressing scheme.
func NewExecutor(root string, opts ...Opt) (*Executor, error) {
	o := execOptions{
		limits: config.DefaultLimits(),
		trees:  map[string]*doctree.Tree{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	limits := o.limits.WithDefaults()

	var backend Backend
	if name, ok := strings.CutPrefix(root, TreeScheme); ok {
		tree, found := o.trees[strings.TrimSuffix(name, "/")]
		if !found {
			return nil, fmt.Errorf("no document tree mounted as %q", name)
		}
		backend = &treeBackend{tree: tree}
	} else {
		local, err := newLocalBackend(root, limits.CommandTimeout, limits.MaxOutputChars)
		if err != nil {
			return nil, err
		}
		backend = local
	}

	return newExecutor(backend, limits)
}

func newExecutor(backend Backend, limits config.Limits) (*Executor, error) {
	schemas := map[string]*gojsonschema.Schema{}
	for _, t := range tools.Catalog() {
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Parameters))
		if err != nil {
			return nil, fmt.Errorf("compiling schema of %s: %w", t.Name, err)
		}
		schemas[t.Name] = s
	}
	return &Executor{backend: backend, limits: limits, schemas: schemas}, nil
}

func (e *Executor) Execute(ctx context.Context, call chat.ToolCall) (result tools.Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tool panicked", "tool", call.Name, "panic", r)
			result = tools.Failure("internal error while running %s: %v", call.Name, r)
		}
	}()

	slog.Debug("Executing tool", "tool", call.Name, "id", call.ID)

	schema, ok := e.schemas[call.Name]
	if !ok {
		return tools.Failure("unknown tool %q", call.Name)
	}

	args := strings.TrimSpace(call.Arguments)
	if args == "" {
		args = "{}"
	}
	if !json.Valid([]byte(args)) {
		return tools.Failure("invalid JSON arguments for %s: %s", call.Name, wire.Preview(args))
	}
	if msg := validate(schema, args); msg != "" {
		return tools.Failure("invalid arguments for %s: %s", call.Name, msg)
	}

	switch call.Name {
	case tools.ToolNameReadFile:
		return run(args, e.readFile)
	case tools.ToolNameWriteFile:
		return run(args, e.writeFile)
	case tools.ToolNameEditFile:
		return run(args, e.editFile)
	case tools.ToolNameDeleteFile:
		return run(args, e.deleteFile)
	case tools.ToolNameListDirectory:
		return run(args, e.listDirectory)
	case tools.ToolNameSearchFiles:
		return run(args, func(a tools.SearchFilesArgs) tools.Result {
			return e.searchFiles(ctx, a)
		})
	case tools.ToolNameRunCommand:
		return run(args, func(a tools.RunCommandArgs) tools.Result {
			return e.runCommand(ctx, a)
		})
	}
	return tools.Failure("unknown tool %q", call.Name)
}

func run[T any](args string, fn func(T) tools.Result) tools.Result {
	var params T
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return tools.Failure("invalid arguments: %v", err)
	}
	return fn(params)
}

// validate checks args against the tool schema and returns a readable
// summary of the violations.
func validate(schema *gojsonschema.Schema, args string) string {
	res, err := schema.Validate(gojsonschema.NewStringLoader(args))
	if err != nil {
		return err.Error()
	}
	if res.Valid() {
		return ""
	}
	var msgs []string
	for _, re := range res.Errors() {
		if re.Type() == "required" {
			msgs = append(msgs, fmt.Sprintf("%v is required", re.Details()["property"]))
			continue
		}
		msgs = append(msgs, re.String())
	}
	return strings.Join(msgs, "; ")
}
