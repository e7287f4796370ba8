package flow

// Edge represents a connection between two nodes in the workflow graph.
//
// Edges define the control flow between nodes. They can be:
// - Unconditional: Always traverse (When = nil).
// - Conditional: Only traverse if the predicate returns true (When != nil).
//
// Edges are declared during graph construction via Engine.Connect. At runtime
// the engine evaluates them in insertion order and follows the first match.
//
// Explicit routing returned by a node (Result.Route) takes precedence over
// edge-based routing.
//
// Type parameter S is the state type used for predicate evaluation.
type Edge[S any] struct {
	// From is the source node ID.
	From string

	// To is the destination node ID.
	To string

	// When is an optional predicate that determines if this edge should be
	// traversed. If nil, the edge is unconditional (always traverse).
	When Predicate[S]
}

// Predicate is a function that evaluates state to determine if an edge should
// be traversed.
//
// Predicates enable conditional routing based on workflow state.
// They should be pure functions (deterministic, no side effects).
//
// Common patterns:
// - Threshold: state.Score > 0.8.
// - Presence: state.Answer != "".
// - Boolean flag: state.IsReady.
//
// Type parameter S is the state type to evaluate.
type Predicate[S any] func(state S) bool
