package sentinel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"ghost/internal/logging"
)

// Bridge drives the body process over line-delimited JSON on
// stdin/stdout: one request object per line, one response object per
// line, strictly in order. Calls are serialized; the body is not expected
// to handle overlapping commands.
type Bridge struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	replies chan bridgeResponse
	timeout time.Duration
	awake   bool
}

type bridgeRequest struct {
	Op   string  `json:"op"`
	Mode string  `json:"mode,omitempty"`
	Text string  `json:"text,omitempty"`
	Key  string  `json:"key,omitempty"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
}

type bridgeResponse struct {
	OK    bool           `json:"ok"`
	Error string         `json:"error,omitempty"`
	Tree  map[string]any `json:"tree,omitempty"`
}

// NewBridge launches the body binary and wires up its pipes. The process
// is not handshaken until Wake.
func NewBridge(binPath string, timeout time.Duration, args ...string) (*Bridge, error) {
	cmd := exec.Command(binPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("sentinel stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("sentinel stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start sentinel: %w", err)
	}

	b := newBridgeFromPipes(stdin, stdout, timeout)
	b.cmd = cmd
	return b, nil
}

// newBridgeFromPipes builds a bridge over arbitrary pipes. Split out so
// tests can run an in-memory body.
func newBridgeFromPipes(stdin io.WriteCloser, stdout io.Reader, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	b := &Bridge{
		stdin:   stdin,
		replies: make(chan bridgeResponse, 1),
		timeout: timeout,
	}
	go b.readLoop(stdout)
	return b
}

func (b *Bridge) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024) // scans can be large
	for scanner.Scan() {
		var resp bridgeResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			logging.VisionDebug("sentinel sent malformed frame: %v", err)
			continue
		}
		b.replies <- resp
	}
	close(b.replies)
}

func (b *Bridge) call(ctx context.Context, req bridgeRequest) (bridgeResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return bridgeResponse{}, err
	}
	if _, err := b.stdin.Write(append(data, '\n')); err != nil {
		return bridgeResponse{}, fmt.Errorf("sentinel write: %w", err)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	select {
	case resp, ok := <-b.replies:
		if !ok {
			return bridgeResponse{}, fmt.Errorf("sentinel closed its output")
		}
		if !resp.OK {
			return resp, fmt.Errorf("sentinel %s failed: %s", req.Op, resp.Error)
		}
		return resp, nil
	case <-timer.C:
		return bridgeResponse{}, fmt.Errorf("sentinel %s timed out after %s", req.Op, b.timeout)
	case <-ctx.Done():
		return bridgeResponse{}, ctx.Err()
	}
}

// Wake performs the readiness handshake in hybrid mode.
func (b *Bridge) Wake(ctx context.Context) error {
	if _, err := b.call(ctx, bridgeRequest{Op: "wake", Mode: "hybrid"}); err != nil {
		return err
	}
	b.awake = true
	logging.Vision("sentinel connected (hybrid mode)")
	return nil
}

// TypeText types a text string.
func (b *Bridge) TypeText(ctx context.Context, text string) error {
	_, err := b.call(ctx, bridgeRequest{Op: "type_text", Text: text})
	return err
}

// PressKey presses a key or combo.
func (b *Bridge) PressKey(ctx context.Context, key string) error {
	_, err := b.call(ctx, bridgeRequest{Op: "press_key", Key: key})
	return err
}

// Click clicks screen coordinates.
func (b *Bridge) Click(ctx context.Context, x, y float64) error {
	_, err := b.call(ctx, bridgeRequest{Op: "click", X: x, Y: y})
	return err
}

// ScanFullTree captures the full UI tree.
func (b *Bridge) ScanFullTree(ctx context.Context) (map[string]any, error) {
	resp, err := b.call(ctx, bridgeRequest{Op: "scan_full_tree"})
	if err != nil {
		return nil, err
	}
	return resp.Tree, nil
}

// Kill asks the body to terminate and reaps the process. Best effort: a
// body that ignores the request is killed outright.
func (b *Bridge) Kill() error {
	_, _ = b.call(context.Background(), bridgeRequest{Op: "kill"})
	_ = b.stdin.Close()

	if b.cmd == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- b.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		_ = b.cmd.Process.Kill()
		return <-done
	}
}
