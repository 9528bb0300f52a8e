package builtin

import (
	"context"
	"errors"
	"fmt"

	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

func (e *Executor) runCommand(ctx context.Context, args tools.RunCommandArgs) tools.Result {
	if args.Command == "" {
		return tools.Failure("command must not be empty")
	}
	cwd, fail := resolve(args.Cwd)
	if fail != nil {
		return *fail
	}

	res, err := e.backend.RunCommand(ctx, args.Command, cwd)
	switch {
	case errors.Is(err, errUnsupported):
		return tools.Failure("run_command is not supported when the project is a scoped storage tree")
	case errors.Is(err, context.Canceled):
		return tools.Failure("command cancelled")
	case err != nil:
		return tools.Failure("running command: %s", describe(displayPath(args.Cwd), err))
	}

	output := res.Output
	if output == "" {
		output = "<no output>"
	}
	if res.TimedOut {
		return tools.Failure("command timed out after %s\n%s", e.limits.CommandTimeout, output)
	}
	out := fmt.Sprintf("%s\n\nExit code: %d", output, res.ExitCode)
	if res.ExitCode != 0 {
		return tools.Result{Output: out}
	}
	return tools.Success(out)
}
