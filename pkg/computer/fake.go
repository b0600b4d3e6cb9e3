package computer

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory surface for tests. It records every primitive in
// order and serves configurable canned results.
type Fake struct {
	mu sync.Mutex

	// Ops records primitives as "name arg1 arg2 ...".
	Ops []string

	// CommandResults maps a command to its result; unmapped commands
	// succeed with empty output.
	CommandResults map[string]CommandResult
	// CommandErr, when set, fails every RunCommand.
	CommandErr error

	// Screenshot is returned by CaptureScreen.
	Screenshot []byte
	// Files is the fake filesystem.
	Files map[string]string

	Closed bool
}

// NewFake returns an empty fake with a one-byte screenshot.
func NewFake() *Fake {
	return &Fake{
		CommandResults: map[string]CommandResult{},
		Screenshot:     []byte("png"),
		Files:          map[string]string{},
	}
}

func (f *Fake) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, fmt.Sprintf(format, args...))
}

// Recorded returns a copy of the op log.
func (f *Fake) Recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Ops))
	copy(out, f.Ops)
	return out
}

func (f *Fake) RunCommand(ctx context.Context, command string) (CommandResult, error) {
	f.record("run_command %s", command)
	if f.CommandErr != nil {
		return CommandResult{}, f.CommandErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CommandResults[command], nil
}

func (f *Fake) RunBackground(ctx context.Context, command string) error {
	f.record("run_background %s", command)
	return nil
}

func (f *Fake) RunInEnv(ctx context.Context, env, command string) (CommandResult, error) {
	f.record("run_in_env %s %s", env, command)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CommandResults[command], nil
}

func (f *Fake) ListDir(ctx context.Context, path string) ([]string, error) {
	f.record("list_dir %s", path)
	return nil, nil
}

func (f *Fake) ReadFile(ctx context.Context, path string) (string, error) {
	f.record("read_file %s", path)
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.Files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return content, nil
}

func (f *Fake) WriteFile(ctx context.Context, path, content string) error {
	f.record("write_file %s", path)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files[path] = content
	return nil
}

func (f *Fake) FileExists(ctx context.Context, path string) (bool, error) {
	f.record("file_exists %s", path)
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Files[path]
	return ok, nil
}

func (f *Fake) CreateDir(ctx context.Context, path string) error {
	f.record("create_dir %s", path)
	return nil
}

func (f *Fake) DeleteFile(ctx context.Context, path string) error {
	f.record("delete_file %s", path)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Files, path)
	return nil
}

func (f *Fake) MoveMouse(ctx context.Context, x, y int) error {
	f.record("move_mouse %d %d", x, y)
	return nil
}

func (f *Fake) Click(ctx context.Context, x, y int, button MouseButton, double bool) error {
	f.record("click %d %d %s double=%t", x, y, button, double)
	return nil
}

func (f *Fake) Drag(ctx context.Context, fromX, fromY, toX, toY int) error {
	f.record("drag %d %d %d %d", fromX, fromY, toX, toY)
	return nil
}

func (f *Fake) TypeText(ctx context.Context, text string) error {
	f.record("type_text %s", text)
	return nil
}

func (f *Fake) PressKey(ctx context.Context, key string) error {
	f.record("press_key %s", key)
	return nil
}

func (f *Fake) Hotkey(ctx context.Context, keys ...string) error {
	f.record("hotkey %v", keys)
	return nil
}

func (f *Fake) CaptureScreen(ctx context.Context) ([]byte, error) {
	f.record("capture_screen")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Screenshot, nil
}

func (f *Fake) ScreenSize(ctx context.Context) (int, int, error) {
	f.record("screen_size")
	return 1920, 1080, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
