// Package flow provides a graph-based workflow engine for LLM applications.
//
// Programs are directed graphs of nodes. Each node receives the current
// state, does its work, and returns a delta plus a routing decision; a
// reducer folds deltas into state. The engine persists every step, emits
// observability events, and supports conditional edges, parallel fan-out
// with deterministic merge, per-node timeouts, retry policies, named
// checkpoints, and resume.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gaiaflow/gaiaflow/flow/emit"
	"github.com/gaiaflow/gaiaflow/flow/store"
)

// Reducer merges a node's partial state update (delta) into the previous
// state, returning the next state. Reducers must be pure: no I/O, no
// mutation of prev or delta beyond the returned value.
//
// A common pattern is "non-zero fields overwrite, slices append":
//
//	func reduce(prev, delta MyState) MyState {
//	    if delta.Answer != "" {
//	        prev.Answer = delta.Answer
//	    }
//	    prev.Log = append(prev.Log, delta.Log...)
//	    return prev
//	}
type Reducer[S any] func(prev, delta S) S

// Engine orchestrates stateful workflow execution with checkpointing support.
//
// The Engine is the core runtime that:
//   - Manages workflow graph topology (nodes and edges)
//   - Executes nodes in sequence or parallel fan-out
//   - Merges state updates via the reducer
//   - Persists state at each step via the store
//   - Emits observability events via the emitter
//   - Enforces execution limits (MaxSteps, timeouts, run budget)
//   - Supports named checkpoint save/resume
//
// Type parameter S is the state type shared across the workflow.
//
// Example:
//
//	reducer := func(prev, delta MyState) MyState {
//	    if delta.Answer != "" {
//	        prev.Answer = delta.Answer
//	    }
//	    return prev
//	}
//
//	st := store.NewMemory[MyState]()
//	engine, err := flow.New(reducer, st, emit.NewLogEmitter(os.Stderr, false))
//	if err != nil {
//	    return err
//	}
//	engine.Add("answer", answerNode)
//	engine.SetEntry("answer")
//
//	final, err := engine.Run(ctx, "run-001", MyState{Question: "hello"})
type Engine[S any] struct {
	mu sync.RWMutex

	// reducer merges partial state updates deterministically
	reducer Reducer[S]

	// nodes maps node IDs to Node implementations
	nodes map[string]Node[S]

	// edges defines declared transitions, evaluated in insertion order
	edges []Edge[S]

	// entry is the entry point for workflow execution
	entry string

	// store persists step records and checkpoints
	store store.Store[S]

	// emitter receives observability events
	emitter emit.Emitter

	// cfg holds execution configuration built from Options
	cfg config
}

// New creates a new Engine with the given configuration.
//
// The reducer and store are required; the emitter may be nil (events are
// dropped). Options configure limits, retries, metrics, and cost tracking.
//
// Example:
//
//	engine, err := flow.New(
//	    myReducer,
//	    store.NewMemory[MyState](),
//	    emit.NewLogEmitter(os.Stderr, false),
//	    flow.WithMaxSteps(50),
//	    flow.WithNodeTimeout(30*time.Second),
//	)
func New[S any](reducer Reducer[S], st store.Store[S], emitter emit.Emitter, opts ...Option) (*Engine[S], error) {
	if reducer == nil {
		return nil, &FlowError{Code: "MISSING_REDUCER", Message: "reducer is required"}
	}
	if st == nil {
		return nil, &FlowError{Code: "MISSING_STORE", Message: "store is required"}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Engine[S]{
		reducer: reducer,
		nodes:   make(map[string]Node[S]),
		edges:   make([]Edge[S], 0),
		store:   st,
		emitter: emitter,
		cfg:     cfg,
	}, nil
}

// Add registers a node in the workflow graph.
//
// Node IDs must be unique within the workflow. Returns a FlowError with code
// "DUPLICATE_NODE" when the ID is already taken.
func (e *Engine[S]) Add(nodeID string, node Node[S]) error {
	if nodeID == "" {
		return &FlowError{Code: "NODE_NOT_FOUND", Message: "node ID cannot be empty"}
	}
	if node == nil {
		return &FlowError{Code: "NODE_NOT_FOUND", Message: "node cannot be nil"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; exists {
		return &FlowError{Code: "DUPLICATE_NODE", Message: "duplicate node ID: " + nodeID}
	}

	e.nodes[nodeID] = node
	return nil
}

// SetEntry sets the entry point for workflow execution.
// The node must have been registered via Add.
func (e *Engine[S]) SetEntry(nodeID string) error {
	if nodeID == "" {
		return &FlowError{Code: "NO_ENTRY_NODE", Message: "entry node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; !exists {
		return &FlowError{Code: "NODE_NOT_FOUND", Message: "entry node does not exist: " + nodeID}
	}

	e.entry = nodeID
	return nil
}

// Connect declares an edge between two nodes.
//
// Edges define possible transitions when a node returns a zero-value Route.
// They are evaluated in insertion order; the first edge whose predicate
// matches (nil predicate matches unconditionally) wins.
//
// Node existence is validated lazily at run start so graphs can be built in
// any order.
//
// Example:
//
//	// Unconditional edge
//	engine.Connect("plan", "execute", nil)
//
//	// Conditional edge
//	engine.Connect("verify", "synthesize", func(s MyState) bool {
//	    return s.NextAction == "synthesize"
//	})
func (e *Engine[S]) Connect(from, to string, pred Predicate[S]) error {
	if from == "" {
		return &FlowError{Code: "NODE_NOT_FOUND", Message: "from node ID cannot be empty"}
	}
	if to == "" {
		return &FlowError{Code: "NODE_NOT_FOUND", Message: "to node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.edges = append(e.edges, Edge[S]{From: from, To: to, When: pred})
	return nil
}

// Costs returns the engine's cost tracker, or nil when none was configured.
// Nodes that call LLMs can record token usage on it.
func (e *Engine[S]) Costs() *CostTracker {
	return e.cfg.costs
}

// Run executes the workflow from the entry node to completion or error.
//
// Execution:
//  1. Validates the graph (entry set and present, edge endpoints present).
//  2. Loops: checks ctx; executes the current node (with retry policy and
//     per-node timeout if configured); wraps node errors as NodeError;
//     deep-copies and reduces the delta; persists the step; emits node_done.
//  3. Routes by precedence: Route.End > Route.To / Route.Fanout > declared
//     edges (first matching predicate in insertion order). No match is a
//     FlowError with code "NO_ROUTE".
//  4. Fan-out branches run concurrently (bounded by WithMaxConcurrent) on
//     isolated state copies; their deltas merge in declared order; all
//     branches must agree on a join node or all end the run. The first
//     branch error cancels siblings and fails the run with "BRANCH_FAILED".
//  5. Stops on Route.End, error, MaxSteps, ctx cancellation, or run budget.
//
// Every executed step is persisted before the engine advances, so an
// interrupted run can be picked up with Resume.
func (e *Engine[S]) Run(ctx context.Context, runID string, initial S) (S, error) {
	var zero S
	if err := e.validate(); err != nil {
		return zero, err
	}
	return e.runLoop(ctx, runID, initial, e.entry, 0)
}

// Resume continues an interrupted run from its latest persisted step.
//
// The state of the latest step record is loaded and execution continues at
// that node's successor, determined by the declared edges. Returns a
// FlowError with code "RUN_NOT_FOUND" when the run has no persisted steps,
// or "NO_ROUTE" when no declared edge leads out of the last persisted node.
func (e *Engine[S]) Resume(ctx context.Context, runID string) (S, error) {
	var zero S
	if err := e.validate(); err != nil {
		return zero, err
	}

	rec, err := e.store.LatestStep(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, &FlowError{Code: "RUN_NOT_FOUND", Message: "no persisted steps for run: " + runID}
		}
		return zero, &FlowError{Code: "STORE_ERROR", Message: "failed to load latest step: " + err.Error()}
	}

	next := e.firstEdge(rec.NodeID, rec.State)
	if next == "" {
		return zero, &FlowError{Code: "NO_ROUTE", Message: "no declared edge from last persisted node: " + rec.NodeID}
	}

	e.emit(emit.Event{RunID: runID, Step: rec.Step, NodeID: rec.NodeID, Msg: "run_resumed"})
	return e.runLoop(ctx, runID, rec.State, next, rec.Step)
}

// SaveCheckpoint creates a named checkpoint from the most recent state of a run.
//
// Checkpoints enable manual resumption points, rollback to known-good
// states, and trying alternative paths from a common prefix. Saving a
// checkpoint under an existing name overwrites it.
//
// Example:
//
//	final, _ := engine.Run(ctx, "run-001", initial)
//	if err := engine.SaveCheckpoint(ctx, "run-001", "after-plan"); err != nil {
//	    return err
//	}
func (e *Engine[S]) SaveCheckpoint(ctx context.Context, runID, name string) error {
	rec, err := e.store.LatestStep(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &FlowError{Code: "RUN_NOT_FOUND", Message: "no persisted steps for run: " + runID}
		}
		return &FlowError{Code: "STORE_ERROR", Message: "failed to load latest step: " + err.Error()}
	}

	cp := store.Checkpoint[S]{
		RunID:   runID,
		Name:    name,
		NodeID:  rec.NodeID,
		Step:    rec.Step,
		State:   rec.State,
		SavedAt: time.Now(),
	}
	if err := e.store.SaveCheckpoint(ctx, cp); err != nil {
		return &FlowError{Code: "CHECKPOINT_SAVE_FAILED", Message: "failed to save checkpoint: " + err.Error()}
	}

	e.emit(emit.Event{
		RunID:  runID,
		Step:   rec.Step,
		NodeID: rec.NodeID,
		Msg:    "checkpoint_saved",
		Meta:   map[string]any{"checkpoint": name},
	})
	return nil
}

// ResumeFromCheckpoint resumes workflow execution from a named checkpoint.
//
// The checkpoint state is loaded and execution continues at the checkpoint
// node's successor, determined by the declared edges. Steps keep counting
// from the checkpoint step and persist under the same run ID.
//
// Example:
//
//	_ = engine.SaveCheckpoint(ctx, "run-001", "after-plan")
//	final, err := engine.ResumeFromCheckpoint(ctx, "run-001", "after-plan")
func (e *Engine[S]) ResumeFromCheckpoint(ctx context.Context, runID, name string) (S, error) {
	var zero S
	if err := e.validate(); err != nil {
		return zero, err
	}

	cp, err := e.store.LoadCheckpoint(ctx, runID, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, &FlowError{Code: "CHECKPOINT_NOT_FOUND", Message: "checkpoint not found: " + name}
		}
		return zero, &FlowError{Code: "STORE_ERROR", Message: "failed to load checkpoint: " + err.Error()}
	}

	next := e.firstEdge(cp.NodeID, cp.State)
	if next == "" {
		return zero, &FlowError{Code: "NO_ROUTE", Message: "no declared edge from checkpoint node: " + cp.NodeID}
	}

	e.emit(emit.Event{
		RunID:  runID,
		Step:   cp.Step,
		NodeID: cp.NodeID,
		Msg:    "run_resumed",
		Meta:   map[string]any{"checkpoint": name},
	})
	return e.runLoop(ctx, runID, cp.State, next, cp.Step)
}

// validate checks that the graph is runnable: entry node set and present,
// every declared edge endpoint registered.
func (e *Engine[S]) validate() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.entry == "" {
		return &FlowError{Code: "NO_ENTRY_NODE", Message: "entry node not set (call SetEntry before Run)"}
	}
	if _, exists := e.nodes[e.entry]; !exists {
		return &FlowError{Code: "NODE_NOT_FOUND", Message: "entry node does not exist: " + e.entry}
	}
	for _, edge := range e.edges {
		if _, exists := e.nodes[edge.From]; !exists {
			return &FlowError{Code: "NODE_NOT_FOUND", Message: "edge source does not exist: " + edge.From}
		}
		if _, exists := e.nodes[edge.To]; !exists {
			return &FlowError{Code: "NODE_NOT_FOUND", Message: "edge target does not exist: " + edge.To}
		}
	}
	return nil
}

// runLoop is the shared execution loop behind Run, Resume, and
// ResumeFromCheckpoint. It starts at nodeID with the given state, counting
// steps upward from step.
func (e *Engine[S]) runLoop(ctx context.Context, runID string, state S, nodeID string, step int) (S, error) {
	var zero S

	if e.cfg.runBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.runBudget)
		defer cancel()
	}

	current := nodeID
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		step++
		if e.cfg.maxSteps > 0 && step > e.cfg.maxSteps {
			return zero, &FlowError{Code: "MAX_STEPS_EXCEEDED", Message: fmt.Sprintf("run exceeded %d steps", e.cfg.maxSteps)}
		}

		node, ok := e.node(current)
		if !ok {
			return zero, &FlowError{Code: "NODE_NOT_FOUND", Message: "node not found during execution: " + current}
		}

		res := e.runNode(ctx, current, node, state)
		if res.Err != nil {
			return zero, wrapNodeErr(current, res.Err)
		}

		next, err := e.advance(ctx, runID, step, current, &state, res)
		if err != nil {
			return zero, err
		}
		if next.done {
			return state, nil
		}
		if len(next.fanout) > 0 {
			joined, joinNode, err := e.runFanout(ctx, runID, &step, state, next.fanout)
			if err != nil {
				return zero, err
			}
			state = joined
			if joinNode == "" {
				return state, nil
			}
			current = joinNode
			continue
		}
		current = next.to
	}
}

// hop is the resolved routing outcome of a single node execution.
type hop struct {
	done   bool
	to     string
	fanout []string
}

// advance merges a node result into state, persists the step, emits the
// node_done event, and resolves the routing decision.
func (e *Engine[S]) advance(ctx context.Context, runID string, step int, nodeID string, state *S, res Result[S]) (hop, error) {
	delta, err := deepCopy(res.Delta)
	if err != nil {
		return hop{}, &NodeError{NodeID: nodeID, Code: "DELTA_COPY_FAILED", Message: err.Error(), Cause: err}
	}
	*state = e.reducer(*state, delta)

	if err := e.persist(ctx, runID, step, nodeID, *state); err != nil {
		return hop{}, err
	}

	e.emit(emit.Event{RunID: runID, Step: step, NodeID: nodeID, Msg: "node_done"})

	switch {
	case res.Route.End:
		return hop{done: true}, nil
	case res.Route.To != "":
		return hop{to: res.Route.To}, nil
	case len(res.Route.Fanout) > 0:
		return hop{fanout: res.Route.Fanout}, nil
	default:
		next := e.firstEdge(nodeID, *state)
		if next == "" {
			return hop{}, &FlowError{Code: "NO_ROUTE", Message: "no route from node: " + nodeID}
		}
		return hop{to: next}, nil
	}
}

// runFanout executes the given branch nodes in parallel on isolated copies
// of state, bounded by the configured concurrency. Deltas merge back in
// declared order; each branch is persisted as its own step. All branches
// must agree on a single join node or all end the run.
//
// Returns the merged state and the join node ID ("" when the run ends).
func (e *Engine[S]) runFanout(ctx context.Context, runID string, step *int, state S, branches []string) (S, string, error) {
	var zero S

	if e.cfg.maxSteps > 0 && *step+len(branches) > e.cfg.maxSteps {
		return zero, "", &FlowError{Code: "MAX_STEPS_EXCEEDED", Message: fmt.Sprintf("run exceeded %d steps", e.cfg.maxSteps)}
	}

	nodes := make([]Node[S], len(branches))
	for i, id := range branches {
		node, ok := e.node(id)
		if !ok {
			return zero, "", &FlowError{Code: "NODE_NOT_FOUND", Message: "fan-out target not found: " + id}
		}
		nodes[i] = node
	}

	branchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result[S], len(branches))
	sem := make(chan struct{}, e.cfg.maxConcurrent)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var firstErr error
	var firstErrNode string

	for i := range branches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-branchCtx.Done():
				results[i] = Result[S]{Err: branchCtx.Err()}
				return
			}

			snapshot, err := deepCopy(state)
			if err != nil {
				results[i] = Result[S]{Err: err}
			} else {
				results[i] = e.runNode(branchCtx, branches[i], nodes[i], snapshot)
			}

			if results[i].Err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = results[i].Err
					firstErrNode = branches[i]
				}
				mu.Unlock()
				cancel()
			}
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return zero, "", &FlowError{
			Code:    "BRANCH_FAILED",
			Message: fmt.Sprintf("branch %s failed: %v", firstErrNode, firstErr),
		}
	}

	// Merge deltas in declared order so the outcome is deterministic
	// regardless of which branch finished first.
	for i, id := range branches {
		delta, err := deepCopy(results[i].Delta)
		if err != nil {
			return zero, "", &NodeError{NodeID: id, Code: "DELTA_COPY_FAILED", Message: err.Error(), Cause: err}
		}
		state = e.reducer(state, delta)
		*step++
		if err := e.persist(ctx, runID, *step, id, state); err != nil {
			return zero, "", err
		}
		e.emit(emit.Event{RunID: runID, Step: *step, NodeID: id, Msg: "node_done"})
	}
	e.cfg.metrics.ObserveBranchMerge()

	// Resolve the join node: every branch must route to the same node, or
	// every branch must end the run. Edge fallback evaluates against the
	// merged state.
	join := ""
	ended := false
	for i, id := range branches {
		route := results[i].Route
		switch {
		case route.End:
			ended = true
		case len(route.Fanout) > 0:
			return zero, "", &FlowError{Code: "NO_ROUTE", Message: "fan-out branch " + id + " may not fan out again"}
		case route.To != "":
			if join != "" && join != route.To {
				return zero, "", &FlowError{Code: "NO_ROUTE", Message: "fan-out branches disagree on join node: " + join + " vs " + route.To}
			}
			join = route.To
		default:
			next := e.firstEdge(id, state)
			if next == "" {
				return zero, "", &FlowError{Code: "NO_ROUTE", Message: "no route from fan-out branch: " + id}
			}
			if join != "" && join != next {
				return zero, "", &FlowError{Code: "NO_ROUTE", Message: "fan-out branches disagree on join node: " + join + " vs " + next}
			}
			join = next
		}
	}
	if ended && join != "" {
		return zero, "", &FlowError{Code: "NO_ROUTE", Message: "fan-out branches mix end and join routing"}
	}

	return state, join, nil
}

// runNode executes a node under the retry policy and per-node timeout.
func (e *Engine[S]) runNode(ctx context.Context, nodeID string, node Node[S], state S) Result[S] {
	attempts := 1
	if e.cfg.retry != nil && e.cfg.retry.MaxAttempts > 1 {
		attempts = e.cfg.retry.MaxAttempts
	}

	var res Result[S]
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			e.cfg.metrics.ObserveRetry(nodeID)
			delay := backoffDelay(attempt-1, e.cfg.retry.BaseDelay, e.cfg.retry.MaxDelay)
			select {
			case <-ctx.Done():
				res.Err = ctx.Err()
				return res
			case <-time.After(delay):
			}
		}

		res = e.invoke(ctx, nodeID, node, state)
		if res.Err == nil {
			return res
		}
		if e.cfg.retry == nil || e.cfg.retry.Retryable == nil || !e.cfg.retry.Retryable(res.Err) {
			return res
		}
	}
	return res
}

// invoke runs the node once, enforcing the per-node timeout and recording
// metrics. Timeout enforcement relies on the node honoring ctx.
func (e *Engine[S]) invoke(ctx context.Context, nodeID string, node Node[S], state S) Result[S] {
	runCtx := ctx
	if e.cfg.nodeTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.nodeTimeout)
		defer cancel()
	}

	e.cfg.metrics.NodeStarted()
	start := time.Now()
	res := node.Run(runCtx, state)
	elapsed := time.Since(start)
	e.cfg.metrics.NodeFinished()

	status := "success"
	if res.Err != nil {
		status = "error"
	}
	if e.cfg.nodeTimeout > 0 && runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		res.Err = &NodeError{
			NodeID:  nodeID,
			Code:    "NODE_TIMEOUT",
			Message: fmt.Sprintf("exceeded timeout of %v", e.cfg.nodeTimeout),
			Cause:   runCtx.Err(),
		}
		status = "timeout"
	}
	e.cfg.metrics.ObserveStep(nodeID, elapsed, status)

	return res
}

// persist writes a step record, mapping failures to STORE_ERROR.
func (e *Engine[S]) persist(ctx context.Context, runID string, step int, nodeID string, state S) error {
	rec := store.StepRecord[S]{
		RunID:   runID,
		Step:    step,
		NodeID:  nodeID,
		State:   state,
		SavedAt: time.Now(),
	}
	if err := e.store.SaveStep(ctx, rec); err != nil {
		e.cfg.metrics.ObserveStoreError()
		return &FlowError{Code: "STORE_ERROR", Message: "failed to save step: " + err.Error()}
	}
	return nil
}

// emit forwards an event to the emitter. Emission never blocks the run on a
// nil emitter and never propagates an emitter panic.
func (e *Engine[S]) emit(ev emit.Event) {
	if e.emitter == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.emitter.Emit(ev)
}

func (e *Engine[S]) node(nodeID string) (Node[S], bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	node, ok := e.nodes[nodeID]
	return node, ok
}

// firstEdge finds the first matching declared edge from the given node.
// Edges are evaluated in insertion order; a nil predicate always matches.
// Returns "" when no edge matches.
func (e *Engine[S]) firstEdge(fromNode string, state S) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, edge := range e.edges {
		if edge.From != fromNode {
			continue
		}
		if edge.When == nil || edge.When(state) {
			return edge.To
		}
	}
	return ""
}

// wrapNodeErr ensures node failures surface as *NodeError without double
// wrapping errors that already are one.
func wrapNodeErr(nodeID string, err error) error {
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	return &NodeError{NodeID: nodeID, Code: "NODE_FAILED", Message: err.Error(), Cause: err}
}

// FlowError represents an engine-level failure with a machine-readable code.
//
// Codes: MISSING_REDUCER, MISSING_STORE, INVALID_OPTION, NO_ENTRY_NODE,
// NODE_NOT_FOUND, DUPLICATE_NODE, NO_ROUTE, MAX_STEPS_EXCEEDED, STORE_ERROR,
// RUN_NOT_FOUND, CHECKPOINT_NOT_FOUND, CHECKPOINT_SAVE_FAILED, BRANCH_FAILED.
type FlowError struct {
	Code    string
	Message string
}

func (e *FlowError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
