package brain

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// maxVisionChars bounds the serialized UI tree injected into the prompt.
const maxVisionChars = 12000

// ContextSlots holds the planner's short-term perception: the last SCAN
// result (vision) and the last file operation result (librarian). Each
// slot remembers when it was filled so the prompt can show staleness.
type ContextSlots struct {
	mu sync.Mutex

	vision   map[string]any
	visionAt time.Time

	file   map[string]any
	fileAt time.Time
}

func (c *ContextSlots) UpdateVision(data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vision = data
	c.visionAt = time.Now()
}

func (c *ContextSlots) ClearVision() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vision = nil
	c.visionAt = time.Time{}
}

func (c *ContextSlots) UpdateFile(data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = data
	c.fileAt = time.Now()
}

func (c *ContextSlots) ClearFile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = nil
	c.fileAt = time.Time{}
}

// Vision returns the raw vision slot, for recovery prompts.
func (c *ContextSlots) Vision() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vision
}

// formatVision renders the vision slot for prompt injection. Large UI
// trees are truncated with an explicit marker so the model knows it is
// looking at a partial snapshot.
func (c *ContextSlots) formatVision() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vision == nil {
		return "\n=== VISUAL CONTEXT ===\nNo visual data available. (Use SCAN action to capture current screen state)\n=== END VISUAL CONTEXT ===\n"
	}

	raw, err := json.MarshalIndent(c.vision, "", "  ")
	if err != nil {
		return fmt.Sprintf("\n=== VISUAL CONTEXT ===\nError formatting vision data: %v\n=== END VISUAL CONTEXT ===\n", err)
	}
	visionJSON := string(raw)
	if len(visionJSON) > maxVisionChars {
		visionJSON = visionJSON[:maxVisionChars] + "\n... [TRUNCATED - UI tree too large]"
	}

	return fmt.Sprintf("\n=== VISUAL CONTEXT ===\nLast Scan: %s\nUI Tree Data:\n%s\n=== END VISUAL CONTEXT ===\n",
		c.visionAt.Format(time.RFC3339), visionJSON)
}

// formatFile renders the file slot, empty string when nothing is loaded.
func (c *ContextSlots) formatFile() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return ""
	}
	raw, err := json.MarshalIndent(c.file, "", "  ")
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\n=== FILE CONTEXT ===\nLast Operation: %s\n%s\n=== END FILE CONTEXT ===\n",
		c.fileAt.Format(time.RFC3339), string(raw))
}

// summarizeVision renders a one-line description of the focused window
// for recovery prompts.
func summarizeVision(vision map[string]any) string {
	if len(vision) == 0 {
		return "No vision data available"
	}
	name, _ := vision["name"].(string)
	if name == "" {
		name = "Unknown"
	}
	controlType, _ := vision["control_type"].(string)
	if controlType == "" {
		controlType = "Unknown"
	}
	return fmt.Sprintf("Window '%s' (%s) is currently focused", name, controlType)
}
