package flow

import "context"

// Node represents a processing unit in the workflow graph.
// It receives state of type S, performs computation, and returns a Result.
//
// Nodes are the fundamental building blocks of gaiaflow workflows.
// Each node can:
//   - Access the current state
//   - Perform computation (call LLMs, tools, or custom logic)
//   - Return state modifications via Delta
//   - Control routing via Route
//   - Report errors
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	// Run executes the node's logic with the given context and state.
	// It returns a Result containing the state delta, a routing decision,
	// and any error encountered.
	Run(ctx context.Context, state S) Result[S]
}

// Result represents the output of a node execution.
//
// It contains all information needed to continue workflow execution:
//   - Delta: Partial state update to be merged via the reducer
//   - Route: Next hop(s) for execution flow
//   - Err: Node-level error (if any)
//
// If both Err and Route are set, the error wins and the run stops.
type Result[S any] struct {
	// Delta is the partial state update produced by this node.
	// It will be merged with the current state using the configured reducer.
	Delta S

	// Route specifies the next step(s) in workflow execution.
	// Use End() for terminal nodes, To(id) for explicit routing, or
	// Fanout(ids...) for parallel branches. The zero value defers routing
	// to the edges declared via Engine.Connect.
	Route Route

	// Err contains any error that occurred during node execution.
	// A non-nil error halts the workflow.
	Err error
}

// Route specifies the next step(s) in workflow execution after a node completes.
//
// It supports three explicit routing modes plus a deferred mode:
//   - End: stop execution (Route.End = true)
//   - Single: go to a specific node (Route.To = "nodeID")
//   - Fan-out: run multiple nodes in parallel (Route.Fanout = []string{...})
//   - Zero value: fall back to the edges declared on the graph
type Route struct {
	// To specifies the next single node to execute.
	// Mutually exclusive with Fanout and End.
	To string

	// Fanout specifies multiple nodes to execute in parallel.
	// Branch deltas are merged back in declared order.
	// Mutually exclusive with To and End.
	Fanout []string

	// End indicates workflow execution should stop.
	// Mutually exclusive with To and Fanout.
	End bool
}

// End returns a Route that terminates workflow execution.
func End() Route {
	return Route{End: true}
}

// To returns a Route that sends execution to the specified node.
func To(nodeID string) Route {
	return Route{To: nodeID}
}

// Fanout returns a Route that runs the specified nodes in parallel.
// All branches must agree on a join node (or all end the run); their
// deltas are merged in the order given here.
func Fanout(nodeIDs ...string) Route {
	return Route{Fanout: nodeIDs}
}

// NodeFunc is a function adapter that implements the Node interface.
// It allows using plain functions as nodes without creating custom types.
//
// Example:
//
//	processNode := NodeFunc[MyState](func(ctx context.Context, s MyState) Result[MyState] {
//	    return Result[MyState]{
//	        Delta: MyState{Output: "processed"},
//	        Route: End(),
//	    }
//	})
type NodeFunc[S any] func(ctx context.Context, state S) Result[S]

// Run implements the Node interface for NodeFunc.
func (f NodeFunc[S]) Run(ctx context.Context, state S) Result[S] {
	return f(ctx, state)
}

// NodeError represents an error that occurred during node execution.
// It provides structured error information for observability and debugging.
type NodeError struct {
	// NodeID identifies which node produced this error.
	NodeID string

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// Message is the human-readable error description.
	Message string

	// Cause is the underlying error that caused this NodeError.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
