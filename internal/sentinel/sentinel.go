// Package sentinel is the client side of the automation/vision
// collaborator: the external body process that performs clicks and
// keystrokes and scans the UI tree. Ghost treats it as an opaque
// capability surface; element detection is entirely its problem.
package sentinel

import "context"

// Sentinel is the capability surface the execution engine dispatches
// physical actions to. All calls are effectful and return no value except
// ScanFullTree.
type Sentinel interface {
	// Wake performs the readiness handshake. Must be called once before
	// any other call.
	Wake(ctx context.Context) error

	// TypeText types a text string at the current focus.
	TypeText(ctx context.Context, text string) error

	// PressKey presses a key or combo ("enter", "win+r").
	PressKey(ctx context.Context, key string) error

	// Click clicks absolute screen coordinates.
	Click(ctx context.Context, x, y float64) error

	// ScanFullTree captures a snapshot of all visible windows and
	// controls.
	ScanFullTree(ctx context.Context) (map[string]any, error)

	// Kill terminates the body process. Part of shutdown.
	Kill() error
}
