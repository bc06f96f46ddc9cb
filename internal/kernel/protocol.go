// Package kernel implements the transactional client for the Ghost Kernel,
// the external permission and long-term memory service. Every logical call
// is one short-lived TCP connection: an auth frame, a request frame, one
// response frame, close. Frames are single JSON objects terminated by a
// newline. There is deliberately no connection pooling or multiplexing;
// "one connection, one request, one response" is a reliability property.
package kernel

// Request type tags understood by the Kernel. Permission requests carry no
// type tag; the Kernel recognizes them by shape.
const (
	typeReflexQuery      = "reflex_query"
	typeMemoryStore      = "memory_store"
	typeMemorySearch     = "memory_search"
	typeInvalidateReflex = "invalidate_reflex"
)

// Error codes the Kernel can attach to a permission response.
const (
	ErrCodeFocusMismatch = "FOCUS_MISMATCH"
	ErrCodeFocusTimeout  = "FOCUS_TIMEOUT"
)

// TrustThreshold gates reflex reuse: a cached plan is honored only when its
// trust score is strictly greater than this.
const TrustThreshold = 5

type authFrame struct {
	AuthToken string `json:"auth_token"`
}

type reflexQueryRequest struct {
	Type   string `json:"type"`
	Intent string `json:"intent"`
}

// ReflexResponse answers a reflex (cached plan) query. CachedPlan is the
// plan as a JSON string; parsing and validating it is the caller's job.
type ReflexResponse struct {
	Found      bool    `json:"found"`
	CachedPlan string  `json:"cached_plan"`
	TrustScore float64 `json:"trust_score"`
}

// Trusted reports whether the cached plan clears the reuse gate.
func (r ReflexResponse) Trusted() bool {
	return r.Found && r.CachedPlan != "" && r.TrustScore > TrustThreshold
}

type memoryStoreRequest struct {
	Type    string    `json:"type"`
	Key     string    `json:"key"`
	Value   string    `json:"value"`
	Context string    `json:"context"`
	TraceID string    `json:"trace_id"`
	Vector  []float32 `json:"vector,omitempty"`
}

// StoreResponse acknowledges a memory store. Older Kernel builds answer
// with "approved", newer ones with "success"; either counts.
type StoreResponse struct {
	Success  bool   `json:"success"`
	Approved bool   `json:"approved"`
	Error    string `json:"error"`
}

// OK reports whether the Kernel accepted the write.
func (r StoreResponse) OK() bool { return r.Success || r.Approved }

type memorySearchRequest struct {
	Type   string    `json:"type"`
	Vector []float32 `json:"vector"`
	Limit  int       `json:"limit"`
}

// Artifact is one vector-search hit from the Kernel's long-term memory.
type Artifact struct {
	Timestamp      string `json:"timestamp"`
	Content        string `json:"content"`
	Classification string `json:"classification"`
	Summary        string `json:"summary"`
}

// SearchResponse carries vector-search results.
type SearchResponse struct {
	Artifacts []Artifact `json:"artifacts"`
}

type invalidateReflexRequest struct {
	Type   string `json:"type"`
	Intent string `json:"intent"`
}

// PermissionAction is one action inside a permission request, with its
// kind-specific fields flattened into a payload map.
type PermissionAction struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// PermissionRequest asks the Kernel to approve a batch of actions for one
// step of an utterance. TraceID correlates every call made on behalf of
// the same utterance.
type PermissionRequest struct {
	ID             string             `json:"id"`
	Intent         string             `json:"intent"`
	TraceID        string             `json:"trace_id"`
	Actions        []PermissionAction `json:"actions"`
	ExpectedWindow string             `json:"expected_window,omitempty"`
}

// PermissionResponse is the Kernel's verdict.
type PermissionResponse struct {
	ID         string  `json:"id"`
	Approved   bool    `json:"approved"`
	Reason     string  `json:"reason"`
	ErrorCode  string  `json:"error_code"`
	TrustScore float64 `json:"trust_score"`
}
