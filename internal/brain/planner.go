package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"ghost/internal/action"
	"ghost/internal/embedding"
	"ghost/internal/kernel"
	"ghost/internal/llm"
	"ghost/internal/logging"
	"ghost/internal/memory"
)

// memorySearchLimit caps how many artifacts one RAG lookup injects.
const memorySearchLimit = 5

// Kernel is the slice of the Kernel client the planner needs.
type Kernel interface {
	ReflexQuery(ctx context.Context, intent string) (kernel.ReflexResponse, error)
	StoreMemory(ctx context.Context, key, value, factContext, traceID string, vector []float32) (kernel.StoreResponse, error)
	SearchMemory(ctx context.Context, vector []float32, limit int) (kernel.SearchResponse, error)
}

// Planner translates user intent into a validated action plan. The fast
// path is the Kernel's reflex cache; the slow path assembles context and
// asks the LLM. Every plan that leaves here has passed action validation
// and had its MEMORIZE actions absorbed.
type Planner struct {
	kernel   Kernel
	llm      llm.Client
	embedder embedding.Engine // nil disables RAG and memory vectors
	facts    *memory.Store
	identity *IdentityStore

	// Slots is shared with the execution engine, which refreshes the
	// vision slot after each SCAN.
	Slots *ContextSlots
}

func NewPlanner(k Kernel, model llm.Client, embedder embedding.Engine, facts *memory.Store, identity *IdentityStore) *Planner {
	return &Planner{
		kernel:   k,
		llm:      model,
		embedder: embedder,
		facts:    facts,
		identity: identity,
		Slots:    &ContextSlots{},
	}
}

// Decide turns a user utterance into an executable plan. The reflex cache
// is consulted first; on a miss the LLM is called with the assembled
// memory, fact and vision context. The returned plan contains only
// physical actions.
func (p *Planner) Decide(ctx context.Context, userInput string) (action.Plan, error) {
	if cached, ok, err := p.checkReflex(ctx, userInput); err != nil {
		return action.Plan{}, err
	} else if ok {
		logging.Memory("muscle memory triggered, skipping LLM")
		cached.Actions = p.absorbMemorize(ctx, cached.Actions, userInput)
		return cached, nil
	}

	memoryContext := p.buildMemoryContext(ctx, userInput)

	prompt := buildSystemPrompt(p.identity.Current(), userInput, memoryContext)
	raw, err := p.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: userInput},
	}, true)
	if err != nil {
		return action.Plan{}, fmt.Errorf("model unavailable, offline-only mode enforced: %w", err)
	}

	plan := normalizeOrFallback(raw)
	if err := action.Validate(plan.Actions); err != nil {
		logging.BrainWarn("plan validation failed: %v, falling back to SPEAK", err)
		plan = confusedPlan()
		if ferr := action.Validate(plan.Actions); ferr != nil {
			return action.Plan{}, fmt.Errorf("fallback validation failed: %w", ferr)
		}
	}

	plan.Actions = p.absorbMemorize(ctx, plan.Actions, userInput)
	return plan, nil
}

// Recover generates a short corrective plan after a failed execution.
// Unlike Decide there is no fallback: an unusable recovery plan is an
// error and the engine gives up.
func (p *Planner) Recover(ctx context.Context, originalIntent, failureReason string) (action.Plan, error) {
	prompt := buildRecoveryPrompt(originalIntent, failureReason, p.Slots.Vision())
	raw, err := p.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: "Recover from: " + failureReason},
	}, true)
	if err != nil {
		return action.Plan{}, fmt.Errorf("model unavailable, offline-only mode enforced: %w", err)
	}

	var plan action.Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return action.Plan{}, fmt.Errorf("invalid recovery JSON: %w", err)
	}
	if err := action.Validate(plan.Actions); err != nil {
		return action.Plan{}, fmt.Errorf("recovery plan rejected: %w", err)
	}
	return plan, nil
}

// checkReflex queries the Kernel's cached-plan store. A plan is only
// reused when the Kernel vouches for it above the trust threshold, and
// even a trusted plan is re-validated: the cache must never become a
// validation bypass. An unreachable Kernel is a miss, not an error.
func (p *Planner) checkReflex(ctx context.Context, userInput string) (action.Plan, bool, error) {
	resp, err := p.kernel.ReflexQuery(ctx, userInput)
	if err != nil || !resp.Trusted() {
		return action.Plan{}, false, nil
	}

	var cached action.Plan
	if err := json.Unmarshal([]byte(resp.CachedPlan), &cached); err != nil {
		logging.MemoryWarn("cached plan is not valid JSON: %v", err)
		return action.Plan{}, false, nil
	}
	if len(cached.Actions) == 0 {
		logging.MemoryWarn("cached plan has no actions, ignoring")
		return action.Plan{}, false, nil
	}
	logging.Memory("reflex found (trust score: %.0f)", resp.TrustScore)

	if err := action.Validate(cached.Actions); err != nil {
		return action.Plan{}, false, fmt.Errorf("cached plan validation failed: %w", err)
	}
	return cached, true, nil
}

// buildMemoryContext assembles the context block for the prompt: local
// user facts, then RAG hits from the Kernel, then the vision slot.
func (p *Planner) buildMemoryContext(ctx context.Context, userInput string) string {
	var b strings.Builder

	if facts := p.formatUserFacts(); facts != "" {
		b.WriteString(facts)
	}
	if p.embedder != nil {
		b.WriteString(p.searchMemory(ctx, userInput))
	}
	b.WriteString(p.Slots.formatVision())
	if fileCtx := p.Slots.formatFile(); fileCtx != "" {
		b.WriteString(fileCtx)
	}
	return b.String()
}

func (p *Planner) formatUserFacts() string {
	facts, err := p.facts.Facts()
	if err != nil {
		logging.MemoryWarn("could not load user facts: %v", err)
		return ""
	}
	if len(facts) == 0 {
		return ""
	}

	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("\n=== USER FACTS (Local Profile) ===\n")
	for _, k := range keys {
		f := facts[k]
		fmt.Fprintf(&b, "- %s: %s", k, f.Value)
		if f.Context != "" {
			fmt.Fprintf(&b, " (context: %s)", f.Context)
		}
		b.WriteString("\n")
	}
	b.WriteString("=== END USER FACTS ===\n")
	logging.Brain("injecting %d user facts into LLM context", len(facts))
	return b.String()
}

// searchMemory embeds the query and asks the Kernel for similar
// artifacts. Failures at any stage degrade to no context.
func (p *Planner) searchMemory(ctx context.Context, query string) string {
	vector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		logging.BrainDebug("query embedding failed: %v", err)
		return ""
	}
	resp, err := p.kernel.SearchMemory(ctx, vector, memorySearchLimit)
	if err != nil || len(resp.Artifacts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n=== RELEVANT MEMORIES ===")
	valid := 0
	for _, a := range resp.Artifacts {
		if !memorySafe(a.Content) {
			continue
		}
		valid++
		ts := a.Timestamp
		if ts == "" {
			ts = "Unknown time"
		}
		class := a.Classification
		if class == "" {
			class = "OTHER"
		}
		fmt.Fprintf(&b, "\n\nMemory %d: [%s] %s", valid, ts, class)
		if a.Summary != "" {
			fmt.Fprintf(&b, "\n  Summary: %s", a.Summary)
		}
		fmt.Fprintf(&b, "\n  Content: %s", a.Content)
	}
	if valid == 0 {
		return ""
	}
	b.WriteString("\n\n=== END MEMORIES ===\n")
	logging.Brain("found %d relevant memories", valid)
	return b.String()
}

// absorbMemorize strips MEMORIZE actions from a plan, writing each fact
// to the local store and, best effort, to the Kernel with an embedding.
// Only physical actions survive.
func (p *Planner) absorbMemorize(ctx context.Context, actions []action.Action, userContext string) []action.Action {
	physical := make([]action.Action, 0, len(actions))
	for _, a := range actions {
		if a.IsPhysical() {
			physical = append(physical, a)
			continue
		}

		key, value := a.MemorizeKey(), a.MemorizeValue()
		if key == "" || value == "" {
			logging.MemoryWarn("invalid MEMORIZE action: missing key or value")
			continue
		}

		if _, err := p.facts.StoreFact(key, value, userContext); err != nil {
			logging.MemoryWarn("local fact store failed for %s: %v", key, err)
		}

		var vector []float32
		if p.embedder != nil {
			v, err := p.embedder.Embed(ctx, fmt.Sprintf("%s: %s. Context: %s", key, value, userContext))
			if err != nil {
				logging.MemoryWarn("fact embedding failed: %v", err)
			} else {
				vector = v
			}
		}
		traceID := fmt.Sprintf("mem_%d", time.Now().UnixNano())
		if _, err := p.kernel.StoreMemory(ctx, key, value, userContext, traceID, vector); err != nil {
			logging.MemoryWarn("kernel store failed for %s: %v", key, err)
		}
	}
	return physical
}

// Facts exposes the local fact store for inspection commands.
func (p *Planner) Facts() (map[string]memory.Fact, error) { return p.facts.Facts() }

// Identity returns the active persona.
func (p *Planner) Identity() Identity { return p.identity.Current() }

// UpdateVision refreshes the vision slot after a SCAN result arrives.
func (p *Planner) UpdateVision(data map[string]any) {
	p.Slots.UpdateVision(data)
	logging.Brain("visual context updated (%d top-level keys)", len(data))
}

// UpdateFile refreshes the file slot after a librarian action.
func (p *Planner) UpdateFile(data map[string]any) {
	p.Slots.UpdateFile(data)
	logging.Brain("file context updated (%d top-level keys)", len(data))
}

// normalizeOrFallback parses raw LLM output into a plan, repairing the
// shape where possible and substituting the confused SPEAK response when
// the model produced nothing actionable. The user always gets feedback.
func normalizeOrFallback(raw string) action.Plan {
	var plan action.Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		logging.BrainWarn("model output was not valid JSON: %v, falling back to SPEAK", err)
		return confusedPlan()
	}
	if len(plan.Actions) == 0 {
		logging.BrainWarn("model returned no actions, falling back to SPEAK")
		return confusedPlan()
	}
	if plan.Intent == "" {
		plan.Intent = "clarification_needed"
	}
	if len(plan.Plan) == 0 {
		plan.Plan = []string{"Inform the user and request clarification"}
	}
	return plan
}

func confusedPlan() action.Plan {
	return action.Plan{
		Intent: "clarification_needed",
		Plan:   []string{"Inform the user and request clarification"},
		Actions: []action.Action{{
			Type: action.KindSpeak,
			Text: "I heard you, but I don't see a clear action. Could you rephrase or be more specific?",
		}},
	}
}

// memorySafe rejects artifacts that look like action-injection attempts
// so a poisoned memory cannot smuggle instructions past validation.
func memorySafe(content string) bool {
	if content == "" || len(content) > 2000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, pattern := range []string{
		"eval(", "exec(", "subprocess", "os.system",
		"__import__", "compile(", "globals(", "locals(",
		"rm -rf", "del /", "format c:", "shutdown",
	} {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}
