package flow

import "sync"

// ModelPricing defines input and output token costs for an LLM model.
// Prices are in USD per 1M tokens.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// Static pricing table for major LLM providers (as of mid 2025).
// Prices are in USD per 1M tokens.
//
// Sources:
//   - OpenAI: https://openai.com/pricing
//   - Anthropic: https://anthropic.com/pricing
//   - Google: https://ai.google.dev/pricing
//
// Prices change; override with SetPricing as providers adjust.
var defaultModelPricing = map[string]ModelPricing{
	// OpenAI
	"gpt-4o":            {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-2024-08-06": {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":       {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":       {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo":     {InputPer1M: 0.50, OutputPer1M: 1.50},
	"o1":                {InputPer1M: 15.00, OutputPer1M: 60.00},
	"o1-preview":        {InputPer1M: 15.00, OutputPer1M: 60.00},
	"o1-mini":           {InputPer1M: 1.10, OutputPer1M: 4.40},

	// Anthropic
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-5-sonnet-latest":   {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-5-haiku-20241022":  {InputPer1M: 0.80, OutputPer1M: 4.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},

	// Google
	"gemini-1.5-pro":        {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":      {InputPer1M: 0.075, OutputPer1M: 0.30},
	"gemini-2.0-flash":      {InputPer1M: 0.10, OutputPer1M: 0.40},
	"gemini-2.0-flash-lite": {InputPer1M: 0.075, OutputPer1M: 0.30},
}

// CostTracker accumulates LLM token usage and the resulting spend across a
// run. Models missing from the pricing table are still counted, at zero cost.
//
// All methods are safe for concurrent use and safe on a nil *CostTracker, so
// callers can record unconditionally.
//
// Usage:
//
//	tracker := flow.NewCostTracker()
//	tracker.Record("gpt-4o-mini", 1200, 350)
//	fmt.Printf("spent $%.4f\n", tracker.Total())
type CostTracker struct {
	mu sync.RWMutex

	pricing map[string]ModelPricing
	total   float64
	byModel map[string]float64

	inputTokens  int64
	outputTokens int64
}

// NewCostTracker creates a cost tracker with the default pricing table.
func NewCostTracker() *CostTracker {
	pricing := make(map[string]ModelPricing, len(defaultModelPricing))
	for model, p := range defaultModelPricing {
		pricing[model] = p
	}
	return &CostTracker{
		pricing: pricing,
		byModel: make(map[string]float64),
	}
}

// Record adds one LLM call's token usage for the given model.
// Cost is (inputTokens * inputPrice + outputTokens * outputPrice) / 1M.
func (t *CostTracker) Record(model string, inputTokens, outputTokens int) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pricing := t.pricing[model] // zero pricing when unknown

	cost := (float64(inputTokens)/1_000_000.0)*pricing.InputPer1M +
		(float64(outputTokens)/1_000_000.0)*pricing.OutputPer1M

	t.total += cost
	t.byModel[model] += cost
	t.inputTokens += int64(inputTokens)
	t.outputTokens += int64(outputTokens)
}

// Total returns the cumulative cost in USD across all recorded calls.
func (t *CostTracker) Total() float64 {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// ByModel returns a copy of the per-model cost breakdown.
func (t *CostTracker) ByModel() map[string]float64 {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	costs := make(map[string]float64, len(t.byModel))
	for model, cost := range t.byModel {
		costs[model] = cost
	}
	return costs
}

// TokenUsage returns total input and output token counts.
func (t *CostTracker) TokenUsage() (inputTokens, outputTokens int64) {
	if t == nil {
		return 0, 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.inputTokens, t.outputTokens
}

// SetPricing overrides the pricing for a model. Useful for enterprise rates
// or models newer than the built-in table.
func (t *CostTracker) SetPricing(model string, p ModelPricing) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pricing == nil {
		t.pricing = make(map[string]ModelPricing)
	}
	t.pricing[model] = p
}
