package computer

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// Local drives the machine the process is running on. Shell commands run
// under /bin/sh, pointer and keyboard primitives go through robotgo, capture
// through the screenshot library.
type Local struct {
	log *zap.Logger
}

// NewLocal returns a surface bound to the local machine.
func NewLocal(log *zap.Logger) *Local {
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{log: log}
}

// RunCommand executes a foreground shell command after validation and
// captures stdout, stderr and the exit code.
func (l *Local) RunCommand(ctx context.Context, command string) (CommandResult, error) {
	if isDangerousCommand(command) {
		return CommandResult{}, fmt.Errorf("dangerous command detected and blocked: %s", command)
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		// Non-zero exit is a reportable outcome, not a transport failure.
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("error executing command: %w", err)
	}
	return result, nil
}

// RunBackground launches a detached process and returns as soon as the shell
// accepts it. Output is discarded and the process is never joined.
func (l *Local) RunBackground(ctx context.Context, command string) error {
	if isDangerousCommand(command) {
		return fmt.Errorf("dangerous command detected and blocked: %s", command)
	}

	detached := fmt.Sprintf("setsid %s >/dev/null 2>&1 &", command)
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", detached)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch background command: %w", err)
	}
	go func() {
		// Reap the wrapping shell; the spawned process keeps running.
		_ = cmd.Wait()
	}()
	l.log.Debug("background command launched", zap.String("command", command))
	return nil
}

// RunInEnv activates the named virtualenv before running the command.
func (l *Local) RunInEnv(ctx context.Context, env, command string) (CommandResult, error) {
	wrapped := fmt.Sprintf(". %s/bin/activate && %s", shellQuote(env), command)
	return l.RunCommand(ctx, wrapped)
}

func (l *Local) ListDir(ctx context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (l *Local) ReadFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

func (l *Local) WriteFile(ctx context.Context, path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (l *Local) FileExists(ctx context.Context, path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *Local) CreateDir(ctx context.Context, path string) error {
	return os.MkdirAll(path, 0755)
}

func (l *Local) DeleteFile(ctx context.Context, path string) error {
	return os.Remove(path)
}

func (l *Local) MoveMouse(ctx context.Context, x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (l *Local) Click(ctx context.Context, x, y int, button MouseButton, double bool) error {
	robotgo.Move(x, y)
	robotgo.Click(string(button), double)
	return nil
}

func (l *Local) Drag(ctx context.Context, fromX, fromY, toX, toY int) error {
	robotgo.Move(fromX, fromY)
	robotgo.Toggle("left", "down")
	robotgo.MoveSmooth(toX, toY)
	robotgo.Toggle("left", "up")
	return nil
}

func (l *Local) TypeText(ctx context.Context, text string) error {
	robotgo.TypeStr(text)
	return nil
}

func (l *Local) PressKey(ctx context.Context, key string) error {
	return robotgo.KeyTap(key)
}

// Hotkey presses a chord; the last key is the tap, the rest are modifiers,
// matching robotgo's KeyTap convention.
func (l *Local) Hotkey(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return fmt.Errorf("hotkey requires at least one key")
	}
	tap := keys[len(keys)-1]
	mods := make([]interface{}, 0, len(keys)-1)
	for _, m := range keys[:len(keys)-1] {
		mods = append(mods, m)
	}
	return robotgo.KeyTap(tap, mods...)
}

// CaptureScreen captures the primary display and returns PNG bytes.
func (l *Local) CaptureScreen(ctx context.Context) ([]byte, error) {
	bounds := screenshot.GetDisplayBounds(0)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode screenshot as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func (l *Local) ScreenSize(ctx context.Context) (int, int, error) {
	w, h := robotgo.GetScreenSize()
	return w, h, nil
}

func (l *Local) Close() error { return nil }

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
