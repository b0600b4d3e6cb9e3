package capability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"coact/pkg/computer"
	"coact/pkg/events"
	"coact/pkg/types"
)

// Programmer capability set: shell execution (foreground and detached
// background), filesystem operations and environment-scoped commands. No
// pointer, keyboard or screen access.
const (
	ActionRunCommand           = "run_command"
	ActionRunCommandBackground = "run_command_in_background"
	ActionRunInEnv             = "run_in_env"
	ActionListDir              = "list_dir"
	ActionReadFile             = "read_file"
	ActionWriteFile            = "write_file"
	ActionFileExists           = "file_exists"
	ActionCreateDir            = "create_dir"
	ActionDeleteFile           = "delete_file"
)

// NewProgrammerProxy builds the Programmer's restricted action surface.
func NewProgrammerProxy(surface computer.Surface, timeout time.Duration, bc *events.Broadcaster, log *zap.Logger) *Proxy {
	p := newProxy(types.RoleProgrammer, timeout, bc, log)

	p.register(ActionRunCommand, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		command, err := stringParam(params, "command")
		if err != nil {
			return types.ActionResult{}, err
		}
		res, err := surface.RunCommand(ctx, command)
		if err != nil {
			return types.ActionResult{}, err
		}
		return commandResult(res), nil
	})

	p.register(ActionRunCommandBackground, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		command, err := stringParam(params, "command")
		if err != nil {
			return types.ActionResult{}, err
		}
		if err := surface.RunBackground(ctx, command); err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{
			Output: fmt.Sprintf("Command %q started in background.", command),
		}, nil
	})

	p.register(ActionRunInEnv, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		env, err := stringParam(params, "env")
		if err != nil {
			return types.ActionResult{}, err
		}
		command, err := stringParam(params, "command")
		if err != nil {
			return types.ActionResult{}, err
		}
		res, err := surface.RunInEnv(ctx, env, command)
		if err != nil {
			return types.ActionResult{}, err
		}
		return commandResult(res), nil
	})

	p.register(ActionListDir, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		path, err := stringParam(params, "path")
		if err != nil {
			return types.ActionResult{}, err
		}
		names, err := surface.ListDir(ctx, path)
		if err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: strings.Join(names, "\n")}, nil
	})

	p.register(ActionReadFile, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		path, err := stringParam(params, "path")
		if err != nil {
			return types.ActionResult{}, err
		}
		content, err := surface.ReadFile(ctx, path)
		if err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: content}, nil
	})

	p.register(ActionWriteFile, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		path, err := stringParam(params, "path")
		if err != nil {
			return types.ActionResult{}, err
		}
		content, err := stringParam(params, "content")
		if err != nil {
			return types.ActionResult{}, err
		}
		if err := surface.WriteFile(ctx, path, content); err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: fmt.Sprintf("Wrote %d bytes to %s", len(content), path)}, nil
	})

	p.register(ActionFileExists, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		path, err := stringParam(params, "path")
		if err != nil {
			return types.ActionResult{}, err
		}
		exists, err := surface.FileExists(ctx, path)
		if err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: fmt.Sprintf("%t", exists)}, nil
	})

	p.register(ActionCreateDir, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		path, err := stringParam(params, "path")
		if err != nil {
			return types.ActionResult{}, err
		}
		if err := surface.CreateDir(ctx, path); err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: "Created directory " + path}, nil
	})

	p.register(ActionDeleteFile, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		path, err := stringParam(params, "path")
		if err != nil {
			return types.ActionResult{}, err
		}
		if err := surface.DeleteFile(ctx, path); err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: "Deleted " + path}, nil
	})

	return p
}

func commandResult(res computer.CommandResult) types.ActionResult {
	var out strings.Builder
	out.WriteString("Stdout:\n")
	out.WriteString(res.Stdout)
	if res.Stderr != "" {
		out.WriteString("\nStderr:\n")
		out.WriteString(res.Stderr)
	}
	return types.ActionResult{
		Output:   out.String(),
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
	}
}
