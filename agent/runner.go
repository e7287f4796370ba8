// Package agent implements a multi-step research agent on top of the flow
// engine.
//
// Two workflow styles are provided:
//
//   - The research graph: planner → executor → verifier → synthesizer.
//     The planner drafts a numbered execution plan, the executor works one
//     plan step at a time with tool access, and after every round the
//     verifier decides whether to keep executing, re-plan, or hand off to
//     the synthesizer for the final answer.
//   - The ReAct loop: a single node that interleaves model reasoning with
//     tool calls until the model delivers its answer through the
//     final_answer tool.
//
// Both styles persist every step through the engine's store, emit events,
// and track LLM spend. Final answers are normalized by FormatAnswer:
// plain numbers, no leading articles, comma-separated lists.
//
// Runner is the turnkey entry point:
//
//	runner, err := agent.NewRunner(llm, store.NewMemory[agent.State](),
//	    agent.WithTools(registry),
//	)
//	answer, err := runner.Ask(ctx, "How many moons does Mars have?")
package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gaiaflow/gaiaflow/flow"
	"github.com/gaiaflow/gaiaflow/flow/emit"
	"github.com/gaiaflow/gaiaflow/flow/model"
	"github.com/gaiaflow/gaiaflow/flow/store"
	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// DefaultMaxSteps bounds the engine steps of a single run.
const DefaultMaxSteps = 50

// Runner wires a chat model, a store, and a tool registry into a research
// workflow and executes runs end to end. Construct with NewRunner; the
// zero value is not usable.
//
// A Runner may be reused across runs. Cost accounting accumulates in the
// configured tracker; each Answer reports only its own run's spend.
type Runner struct {
	llm     model.ChatModel
	store   store.Store[State]
	tools   *tool.Registry
	emitter emit.Emitter
	costs   *flow.CostTracker
	metrics *flow.Metrics
	retry   *flow.RetryPolicy

	nodeTimeout   time.Duration
	runBudget     time.Duration
	maxSteps      int
	toolRounds    int
	maxIterations int
	react         bool
}

// RunnerOption configures a Runner. Nil options are ignored.
type RunnerOption func(*Runner) error

// WithTools sets the tool registry available to the agent. Default: an
// empty registry (the model works from its own knowledge).
func WithTools(tools *tool.Registry) RunnerOption {
	return func(r *Runner) error {
		if tools == nil {
			return errors.New("tools cannot be nil")
		}
		r.tools = tools
		return nil
	}
}

// WithEmitter streams engine events (node_done, run_resumed, ...) to the
// given emitter. Default: events are discarded.
func WithEmitter(e emit.Emitter) RunnerOption {
	return func(r *Runner) error {
		if e == nil {
			return errors.New("emitter cannot be nil")
		}
		r.emitter = e
		return nil
	}
}

// WithCostTracker replaces the runner's cost tracker, for sharing one
// tracker across runners.
func WithCostTracker(t *flow.CostTracker) RunnerOption {
	return func(r *Runner) error {
		if t == nil {
			return errors.New("cost tracker cannot be nil")
		}
		r.costs = t
		return nil
	}
}

// WithMetrics enables Prometheus metrics on the underlying engine.
func WithMetrics(m *flow.Metrics) RunnerOption {
	return func(r *Runner) error {
		r.metrics = m
		return nil
	}
}

// WithRetryPolicy retries nodes whose errors the policy classifies as
// retryable, e.g. rate limits and provider outages:
//
//	agent.WithRetryPolicy(flow.RetryPolicy{
//	    MaxAttempts: 3,
//	    BaseDelay:   time.Second,
//	    MaxDelay:    30 * time.Second,
//	    Retryable:   model.IsRetryable,
//	})
func WithRetryPolicy(p flow.RetryPolicy) RunnerOption {
	return func(r *Runner) error {
		if err := p.Validate(); err != nil {
			return err
		}
		r.retry = &p
		return nil
	}
}

// WithNodeTimeout bounds each node execution (one planner call, one full
// executor round). Default: no timeout.
func WithNodeTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) error {
		if d < 0 {
			return errors.New("node timeout cannot be negative")
		}
		r.nodeTimeout = d
		return nil
	}
}

// WithRunBudget bounds the total wall-clock time of a run. Default: no
// budget.
func WithRunBudget(d time.Duration) RunnerOption {
	return func(r *Runner) error {
		if d < 0 {
			return errors.New("run budget cannot be negative")
		}
		r.runBudget = d
		return nil
	}
}

// WithMaxSteps bounds the engine steps of a run. Default: DefaultMaxSteps.
func WithMaxSteps(n int) RunnerOption {
	return func(r *Runner) error {
		if n < 1 {
			return errors.New("max steps must be at least 1")
		}
		r.maxSteps = n
		return nil
	}
}

// WithToolRounds bounds the executor's model/tool rounds per plan step.
// Default: DefaultToolRounds.
func WithToolRounds(n int) RunnerOption {
	return func(r *Runner) error {
		if n < 1 {
			return errors.New("tool rounds must be at least 1")
		}
		r.toolRounds = n
		return nil
	}
}

// WithMaxIterations bounds the ReAct loop's reasoning rounds. Default:
// DefaultReActIterations.
func WithMaxIterations(n int) RunnerOption {
	return func(r *Runner) error {
		if n < 1 {
			return errors.New("max iterations must be at least 1")
		}
		r.maxIterations = n
		return nil
	}
}

// WithReAct switches the runner from the research graph to the
// single-node ReAct loop.
func WithReAct() RunnerOption {
	return func(r *Runner) error {
		r.react = true
		return nil
	}
}

// NewRunner creates a Runner from a chat model and a step store.
func NewRunner(llm model.ChatModel, st store.Store[State], opts ...RunnerOption) (*Runner, error) {
	if llm == nil {
		return nil, errors.New("runner requires a chat model")
	}
	if st == nil {
		return nil, errors.New("runner requires a store")
	}

	r := &Runner{
		llm:           llm,
		store:         st,
		tools:         tool.NewRegistry(),
		emitter:       emit.NewNullEmitter(),
		costs:         flow.NewCostTracker(),
		maxSteps:      DefaultMaxSteps,
		toolRounds:    DefaultToolRounds,
		maxIterations: DefaultReActIterations,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Ask answers a question under a fresh run ID.
func (r *Runner) Ask(ctx context.Context, question string) (Answer, error) {
	return r.Run(ctx, uuid.NewString(), question)
}

// Run answers a question under a caller-chosen run ID, so the run can be
// resumed or inspected in the store later.
func (r *Runner) Run(ctx context.Context, runID, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, errors.New("question cannot be empty")
	}
	eng, err := r.engine()
	if err != nil {
		return Answer{}, err
	}

	before := r.costs.Total()
	final, err := eng.Run(ctx, runID, State{Question: question})
	if err != nil {
		return Answer{}, err
	}
	return r.answer(ctx, runID, final, before), nil
}

// Resume continues an interrupted run from its last persisted step.
func (r *Runner) Resume(ctx context.Context, runID string) (Answer, error) {
	eng, err := r.engine()
	if err != nil {
		return Answer{}, err
	}

	before := r.costs.Total()
	final, err := eng.Resume(ctx, runID)
	if err != nil {
		return Answer{}, err
	}
	return r.answer(ctx, runID, final, before), nil
}

// Costs returns the runner's cost tracker for per-model spend breakdowns.
func (r *Runner) Costs() *flow.CostTracker {
	return r.costs
}

func (r *Runner) engine() (*flow.Engine[State], error) {
	opts := []flow.Option{
		flow.WithMaxSteps(r.maxSteps),
		flow.WithCostTracker(r.costs),
	}
	if r.metrics != nil {
		opts = append(opts, flow.WithMetrics(r.metrics))
	}
	if r.retry != nil {
		opts = append(opts, flow.WithRetryPolicy(*r.retry))
	}
	if r.nodeTimeout > 0 {
		opts = append(opts, flow.WithNodeTimeout(r.nodeTimeout))
	}
	if r.runBudget > 0 {
		opts = append(opts, flow.WithRunBudget(r.runBudget))
	}

	eng, err := flow.New(Reduce, r.store, r.emitter, opts...)
	if err != nil {
		return nil, err
	}
	if r.react {
		if err := BuildReActGraph(eng, r.llm, r.tools, r.costs, r.maxIterations); err != nil {
			return nil, err
		}
		return eng, nil
	}
	if err := BuildResearchGraph(eng, r.llm, r.tools, r.costs, r.toolRounds); err != nil {
		return nil, err
	}
	return eng, nil
}

func (r *Runner) answer(ctx context.Context, runID string, final State, costBefore float64) Answer {
	ans := Answer{
		RunID:     runID,
		Text:      final.FinalAnswer,
		Synthesis: final.Synthesis,
		Err:       final.Err,
		Cost:      r.costs.Total() - costBefore,
	}
	if rec, err := r.store.LatestStep(ctx, runID); err == nil {
		ans.Steps = rec.Step
	}
	return ans
}
