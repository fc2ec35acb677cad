package harness

// ModelPricing holds per-million-token prices in USD for one model,
// grounded on original_source/agent_verify/llm/base.py's PRICING table.
// Unknown models price at zero (§3 Usage).
type ModelPricing struct {
	Input       float64
	Output      float64
	CacheWrite  float64
	CacheRead   float64
}

var pricingTable = map[string]ModelPricing{
	"claude-sonnet-4-6":          {Input: 3.0, Output: 15.0, CacheWrite: 3.75, CacheRead: 0.30},
	"claude-sonnet-4-20250514":   {Input: 3.0, Output: 15.0, CacheWrite: 3.75, CacheRead: 0.30},
	"claude-opus-4-6":            {Input: 5.0, Output: 25.0, CacheWrite: 6.25, CacheRead: 0.50},
}

// CostUSD computes the dollar cost of one transport response from its raw
// token counters, per the pricing table. Models absent from the table cost
// zero rather than erroring, matching local/free-model usage.
func CostUSD(model string, inputTokens, outputTokens, cacheCreation, cacheRead int64) float64 {
	p, ok := pricingTable[model]
	if !ok {
		return 0.0
	}
	const perMillion = 1_000_000.0
	return float64(inputTokens)*p.Input/perMillion +
		float64(outputTokens)*p.Output/perMillion +
		float64(cacheCreation)*p.CacheWrite/perMillion +
		float64(cacheRead)*p.CacheRead/perMillion
}

// Usage is the cumulative five-counter aggregate from §3.
type Usage struct {
	InputTokens         int64
	OutputTokens        int64
	CacheCreationInput  int64
	CacheReadInput      int64
	CostUSD             float64
}

// Add accumulates one transport call's usage. Called exactly once per
// transport call site so counters remain monotonically non-decreasing and
// cost is never double-booked (§9 open question iii).
func (u *Usage) Add(inputTokens, outputTokens, cacheCreationInput, cacheReadInput int64, costUSD float64) {
	u.InputTokens += inputTokens
	u.OutputTokens += outputTokens
	u.CacheCreationInput += cacheCreationInput
	u.CacheReadInput += cacheReadInput
	u.CostUSD += costUSD
}

// TotalInput is plain + cache-creation + cache-read input tokens.
func (u Usage) TotalInput() int64 {
	return u.InputTokens + u.CacheCreationInput + u.CacheReadInput
}

// Total is TotalInput + OutputTokens, the figure loop guards compare against
// the token budget.
func (u Usage) Total() int64 {
	return u.TotalInput() + u.OutputTokens
}

// CacheHitRate is cache-read / total-input, or 0 when total-input is 0.
func (u Usage) CacheHitRate() float64 {
	ti := u.TotalInput()
	if ti == 0 {
		return 0
	}
	return float64(u.CacheReadInput) / float64(ti)
}
