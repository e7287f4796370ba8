package flow

import "time"

// Option is a functional option for configuring an Engine.
//
// Options are applied by New and may return an error for invalid values:
//
//	engine, err := flow.New(reducer, st, emitter,
//	    flow.WithMaxSteps(50),
//	    flow.WithNodeTimeout(30*time.Second),
//	)
type Option func(*config) error

// config collects engine settings before they are applied. Defaults are
// chosen for typical LLM workflows: generous step limit, modest fan-out
// concurrency, no timeouts.
type config struct {
	maxSteps      int
	maxConcurrent int
	nodeTimeout   time.Duration
	runBudget     time.Duration
	retry         *RetryPolicy
	metrics       *Metrics
	costs         *CostTracker
}

func defaultConfig() config {
	return config{
		maxSteps:      100,
		maxConcurrent: 4,
	}
}

// WithMaxSteps limits workflow execution to prevent infinite loops.
//
// Default: 100. Workflow loops (A -> B -> A) are fully supported; MaxSteps
// is the safety net when a conditional exit is missing or misconfigured.
// Each node execution counts as one step, including fan-out branches.
//
// When the limit is exceeded, Run returns a FlowError with code
// "MAX_STEPS_EXCEEDED".
func WithMaxSteps(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return &FlowError{Code: "INVALID_OPTION", Message: "max steps must be at least 1"}
		}
		cfg.maxSteps = n
		return nil
	}
}

// WithMaxConcurrent sets the maximum number of fan-out branches executing
// concurrently.
//
// Default: 4. Each concurrent branch holds a deep copy of state, so memory
// usage scales linearly with this value. I/O-bound workflows can raise it;
// memory-constrained ones should lower it.
func WithMaxConcurrent(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return &FlowError{Code: "INVALID_OPTION", Message: "max concurrent must be at least 1"}
		}
		cfg.maxConcurrent = n
		return nil
	}
}

// WithNodeTimeout sets the maximum execution time for a single node.
//
// Default: 0 (no timeout). When set, each node runs under a context with
// this deadline; a node that overruns it fails with a NodeError of code
// "NODE_TIMEOUT". Nodes must honor ctx cancellation for the timeout to
// take effect.
func WithNodeTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		if d < 0 {
			return &FlowError{Code: "INVALID_OPTION", Message: "node timeout cannot be negative"}
		}
		cfg.nodeTimeout = d
		return nil
	}
}

// WithRunBudget sets the maximum total wall-clock time for a Run.
//
// Default: 0 (no budget). When set, the whole run executes under a context
// with this deadline and returns context.DeadlineExceeded if it overruns.
func WithRunBudget(d time.Duration) Option {
	return func(cfg *config) error {
		if d < 0 {
			return &FlowError{Code: "INVALID_OPTION", Message: "run budget cannot be negative"}
		}
		cfg.runBudget = d
		return nil
	}
}

// WithRetryPolicy enables automatic retries for nodes whose errors the
// policy classifies as retryable.
//
// Retries use exponential backoff with jitter between attempts and respect
// context cancellation while waiting. Errors the policy does not classify
// as retryable fail immediately.
//
// Example:
//
//	flow.WithRetryPolicy(flow.RetryPolicy{
//	    MaxAttempts: 3,
//	    BaseDelay:   500 * time.Millisecond,
//	    MaxDelay:    10 * time.Second,
//	    Retryable:   model.IsRetryable,
//	})
func WithRetryPolicy(p RetryPolicy) Option {
	return func(cfg *config) error {
		if err := p.Validate(); err != nil {
			return err
		}
		cfg.retry = &p
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection for engine execution.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	engine, err := flow.New(reducer, st, emitter,
//	    flow.WithMetrics(flow.NewMetrics(registry)),
//	)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) error {
		cfg.metrics = m
		return nil
	}
}

// WithCostTracker attaches an LLM cost tracker to the engine so nodes can
// record token usage via Engine.Costs().
//
// Example:
//
//	tracker := flow.NewCostTracker()
//	engine, err := flow.New(reducer, st, emitter, flow.WithCostTracker(tracker))
//	// after the run:
//	fmt.Printf("total cost: $%.4f\n", tracker.Total())
func WithCostTracker(t *CostTracker) Option {
	return func(cfg *config) error {
		cfg.costs = t
		return nil
	}
}
