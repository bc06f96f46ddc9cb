package kernel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"ghost/internal/logging"
)

// maxFrameSize bounds a single response frame. Anything larger is treated
// as a malformed response.
const maxFrameSize = 256 * 1024

// Client talks to the Kernel. It holds no connection state; every call
// dials fresh. Safe for concurrent use.
type Client struct {
	addr    string
	token   string
	timeout time.Duration
}

// NewClient builds a Kernel client for host:port with a per-transaction
// deadline covering dial, both writes and the response read.
func NewClient(host string, port int, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		addr:    net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		token:   token,
		timeout: timeout,
	}
}

// roundTrip performs one full transaction: dial, auth frame, request
// frame, single response frame, close. Every failure is returned as an
// error; callers decide how to degrade.
func (c *Client) roundTrip(ctx context.Context, request, response any) error {
	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("kernel dial: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("kernel deadline: %w", err)
	}

	if err := writeFrame(conn, authFrame{AuthToken: c.token}); err != nil {
		return fmt.Errorf("kernel auth frame: %w", err)
	}
	if err := writeFrame(conn, request); err != nil {
		return fmt.Errorf("kernel request frame: %w", err)
	}

	line, err := bufio.NewReaderSize(conn, 4096).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return fmt.Errorf("kernel read: %w", err)
	}
	if len(line) > maxFrameSize {
		return fmt.Errorf("kernel response exceeds %d bytes", maxFrameSize)
	}
	if err := json.Unmarshal(line, response); err != nil {
		return fmt.Errorf("kernel response parse: %w", err)
	}
	return nil
}

func writeFrame(conn net.Conn, frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}

// ReflexQuery asks for a cached plan matching the intent. Transport
// failures are returned as errors; the planner treats them as a miss.
func (c *Client) ReflexQuery(ctx context.Context, intent string) (ReflexResponse, error) {
	var resp ReflexResponse
	err := c.roundTrip(ctx, reflexQueryRequest{Type: typeReflexQuery, Intent: intent}, &resp)
	if err != nil {
		logging.KernelDebug("reflex query failed: %v", err)
		return ReflexResponse{}, err
	}
	logging.KernelDebug("reflex query %q: found=%v trust=%.0f", intent, resp.Found, resp.TrustScore)
	return resp, nil
}

// StoreMemory writes one fact into the Kernel's long-term memory,
// optionally with an embedding vector for later similarity search.
func (c *Client) StoreMemory(ctx context.Context, key, value, factContext, traceID string, vector []float32) (StoreResponse, error) {
	req := memoryStoreRequest{
		Type: typeMemoryStore, Key: key, Value: value,
		Context: factContext, TraceID: traceID, Vector: vector,
	}
	var resp StoreResponse
	if err := c.roundTrip(ctx, req, &resp); err != nil {
		return StoreResponse{}, err
	}
	if resp.OK() {
		logging.Kernel("memory accepted: %s = %s", key, value)
	}
	return resp, nil
}

// SearchMemory runs a vector similarity search over stored artifacts.
func (c *Client) SearchMemory(ctx context.Context, vector []float32, limit int) (SearchResponse, error) {
	var resp SearchResponse
	err := c.roundTrip(ctx, memorySearchRequest{Type: typeMemorySearch, Vector: vector, Limit: limit}, &resp)
	if err != nil {
		return SearchResponse{}, err
	}
	return resp, nil
}

// InvalidateReflex drops the cached plan for an intent after a failed
// execution. Best effort: an unreachable Kernel is only logged.
func (c *Client) InvalidateReflex(ctx context.Context, intent string) {
	var resp map[string]any
	if err := c.roundTrip(ctx, invalidateReflexRequest{Type: typeInvalidateReflex, Intent: intent}, &resp); err != nil {
		logging.KernelDebug("could not invalidate reflex for %q: %v", intent, err)
		return
	}
	logging.Kernel("invalidated reflex cache for: %s", intent)
}

// RequestPermission submits one permission request. Each call is a fresh
// transaction; the focus-verification retry loop in the engine re-sends
// the identical request rather than holding a connection open.
func (c *Client) RequestPermission(ctx context.Context, req PermissionRequest) (PermissionResponse, error) {
	var resp PermissionResponse
	if err := c.roundTrip(ctx, req, &resp); err != nil {
		return PermissionResponse{}, err
	}
	return resp, nil
}
