package convo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimDropsOldestOutcomes(t *testing.T) {
	mgr := NewManager(120)
	c := mgr.NewContext("", "open the editor")

	c.AddOutcome("outcome-1 %s", strings.Repeat("a", 50))
	c.AddOutcome("outcome-2 %s", strings.Repeat("b", 50))
	c.AddOutcome("outcome-3 %s", strings.Repeat("c", 50))

	outcomes := c.Outcomes()
	require.NotEmpty(t, outcomes)
	// The newest outcome survives, the oldest is gone.
	assert.Contains(t, outcomes[len(outcomes)-1], "outcome-3")
	for _, o := range outcomes {
		assert.NotContains(t, o, "outcome-1")
	}
}

func TestTrimKeepsAtLeastOneOutcome(t *testing.T) {
	mgr := NewManager(1)
	c := mgr.NewContext("", "task")

	c.AddOutcome("%s", strings.Repeat("x", 500))
	assert.Len(t, c.Outcomes(), 1)
}

func TestTaskAndScreenshotNeverTrimmed(t *testing.T) {
	mgr := NewManager(40)
	c := mgr.NewContext("", "rename the report file")
	c.SetScreenshot("aGVsbG8=")

	for i := 0; i < 20; i++ {
		c.AddOutcome("step %d %s", i, strings.Repeat("y", 30))
	}

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	parts := msgs[0].Parts
	assert.Equal(t, "Task: rename the report file", parts[0].Text)

	var haveImage bool
	for _, p := range parts {
		if p.ImageB64 != "" {
			haveImage = true
		}
	}
	assert.True(t, haveImage, "screenshot must survive trimming")
}

func TestSetScreenshotReplaces(t *testing.T) {
	mgr := NewManager(1000)
	c := mgr.NewContext("", "task")
	c.SetScreenshot("old")
	c.SetScreenshot("new")

	var images []string
	for _, msg := range c.Messages() {
		for _, p := range msg.Parts {
			if p.ImageB64 != "" {
				images = append(images, p.ImageB64)
			}
		}
	}
	require.Len(t, images, 1)
	assert.Equal(t, "new", images[0])
}

func TestMessagesShape(t *testing.T) {
	mgr := NewManager(1000)
	c := mgr.NewContext("You control a computer.", "open a terminal")
	c.SetScreenshot("c2hvdA==")
	c.SetOCRBlock("OCR-DETECTED TEXT ELEMENTS: None found")
	c.AddOutcome("Pressed enter")

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "You control a computer.", msgs[0].Parts[0].Text)

	user := msgs[1]
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, "Task: open a terminal", user.Parts[0].Text)
	assert.Equal(t, "Pressed enter", user.Parts[1].Text)
	assert.Equal(t, "c2hvdA==", user.Parts[2].ImageB64)
	assert.Equal(t, "OCR-DETECTED TEXT ELEMENTS: None found", user.Parts[3].Text)
}
