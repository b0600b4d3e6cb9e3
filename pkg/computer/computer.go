// Package computer is the adapter over the controlled machine: one screen,
// one shell, one filesystem. The core never touches this interface directly;
// every role goes through its capability proxy.
package computer

import "context"

// MouseButton selects the button for click and drag primitives.
type MouseButton string

const (
	ButtonLeft  MouseButton = "left"
	ButtonRight MouseButton = "right"
)

// CommandResult captures a foreground shell command's outcome.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Surface is the full, unrestricted control surface. Only capability proxies
// hold a reference to it; specialist roles never see it.
type Surface interface {
	// Shell
	RunCommand(ctx context.Context, command string) (CommandResult, error)
	// RunBackground launches a fully detached process and returns once the
	// launch succeeds. Its completion is never awaited.
	RunBackground(ctx context.Context, command string) error
	// RunInEnv runs a command inside a named environment (e.g. a virtualenv).
	RunInEnv(ctx context.Context, env, command string) (CommandResult, error)

	// Filesystem
	ListDir(ctx context.Context, path string) ([]string, error)
	ReadFile(ctx context.Context, path string) (string, error)
	WriteFile(ctx context.Context, path, content string) error
	FileExists(ctx context.Context, path string) (bool, error)
	CreateDir(ctx context.Context, path string) error
	DeleteFile(ctx context.Context, path string) error

	// Pointer
	MoveMouse(ctx context.Context, x, y int) error
	Click(ctx context.Context, x, y int, button MouseButton, double bool) error
	Drag(ctx context.Context, fromX, fromY, toX, toY int) error

	// Keyboard
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key string) error
	Hotkey(ctx context.Context, keys ...string) error

	// Screen
	CaptureScreen(ctx context.Context) ([]byte, error)
	ScreenSize(ctx context.Context) (width, height int, err error)

	// Close releases the connection to the machine.
	Close() error
}
