// Package convo assembles the bounded multimodal context handed to a role's
// decision step. Context is rebuilt every turn from a summary policy instead
// of accumulating raw history.
package convo

import (
	"fmt"
	"sync"

	"coact/pkg/types"
)

// Manager carries the size policy shared by all contexts it creates.
type Manager struct {
	budget int
}

// NewManager creates a manager with a character budget for the text portion
// of a context. The budget never applies to the task description or the
// latest screenshot; those are never dropped.
func NewManager(budget int) *Manager {
	if budget < 1 {
		budget = 1
	}
	return &Manager{budget: budget}
}

// Context is one role's working context for one turn sequence. It holds the
// task text, at most one screenshot (the latest), and text-only summaries of
// prior actions and their outcomes. Prior images are never re-embedded.
type Context struct {
	mu sync.Mutex

	budget        int
	system        string
	task          string
	screenshotB64 string
	ocrBlock      string
	outcomes      []string
}

// NewContext starts a context for the given task. systemPrompt may be empty.
func (m *Manager) NewContext(systemPrompt, task string) *Context {
	return &Context{
		budget: m.budget,
		system: systemPrompt,
		task:   task,
	}
}

// SetScreenshot replaces the context's screenshot. Only the most recent
// screenshot is ever present.
func (c *Context) SetScreenshot(b64 string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screenshotB64 = b64
}

// SetOCRBlock attaches the compact OCR element listing for the current
// screenshot. It is replaced wholesale on each pass.
func (c *Context) SetOCRBlock(block string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ocrBlock = block
}

// AddOutcome appends a text summary of an action and its result. Failures
// are recorded the same way so the next decision can adapt.
func (c *Context) AddOutcome(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, fmt.Sprintf(format, args...))
	c.trimLocked()
}

// trimLocked drops the oldest outcome summaries until the text portion fits
// the budget. The task description, OCR block and screenshot are exempt.
func (c *Context) trimLocked() {
	for len(c.outcomes) > 1 && c.textSizeLocked() > c.budget {
		c.outcomes = c.outcomes[1:]
	}
}

func (c *Context) textSizeLocked() int {
	size := len(c.system) + len(c.task) + len(c.ocrBlock)
	for _, o := range c.outcomes {
		size += len(o)
	}
	return size
}

// Messages builds the message sequence for the decision call. Callers must
// not mutate the result; a fresh slice is returned each time.
func (c *Context) Messages() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]types.Message, 0, 3)
	if c.system != "" {
		msgs = append(msgs, types.Message{
			Role:  "system",
			Parts: []types.ContentPart{{Text: c.system}},
		})
	}

	user := types.Message{Role: "user"}
	user.Parts = append(user.Parts, types.ContentPart{Text: "Task: " + c.task})
	for _, o := range c.outcomes {
		user.Parts = append(user.Parts, types.ContentPart{Text: o})
	}
	if c.screenshotB64 != "" {
		user.Parts = append(user.Parts, types.ContentPart{Text: "Current screen:", ImageB64: c.screenshotB64})
	}
	if c.ocrBlock != "" {
		user.Parts = append(user.Parts, types.ContentPart{Text: c.ocrBlock})
	}
	msgs = append(msgs, user)
	return msgs
}

// Outcomes returns a copy of the recorded outcome summaries, oldest first.
func (c *Context) Outcomes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.outcomes))
	copy(out, c.outcomes)
	return out
}

// Task returns the task text the context was created for.
func (c *Context) Task() string { return c.task }
