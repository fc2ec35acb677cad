package harness

import "testing"

func TestUsageAddAccumulates(t *testing.T) {
	var u Usage
	u.Add(100, 50, 0, 0, 0.001)
	u.Add(10, 5, 2, 3, 0.0002)

	if u.InputTokens != 110 {
		t.Fatalf("expected 110 input tokens, got %d", u.InputTokens)
	}
	if u.OutputTokens != 55 {
		t.Fatalf("expected 55 output tokens, got %d", u.OutputTokens)
	}
	if u.CacheCreationInput != 2 || u.CacheReadInput != 3 {
		t.Fatalf("unexpected cache counters: %+v", u)
	}
	if u.CostUSD <= 0.0011 || u.CostUSD >= 0.0013 {
		t.Fatalf("unexpected accumulated cost: %v", u.CostUSD)
	}
}

func TestUsageTotalsAndCacheHitRate(t *testing.T) {
	var u Usage
	u.Add(100, 20, 0, 300, 0)

	if got := u.TotalInput(); got != 400 {
		t.Fatalf("expected total input 400, got %d", got)
	}
	if got := u.Total(); got != 420 {
		t.Fatalf("expected total 420, got %d", got)
	}
	if got := u.CacheHitRate(); got != 0.75 {
		t.Fatalf("expected cache hit rate 0.75, got %v", got)
	}
}

func TestUsageCacheHitRateZeroWhenNoInput(t *testing.T) {
	var u Usage
	if got := u.CacheHitRate(); got != 0 {
		t.Fatalf("expected 0 cache hit rate on empty usage, got %v", got)
	}
}

func TestCostUSDUnknownModelIsFree(t *testing.T) {
	if cost := CostUSD("some-unreleased-model", 1_000_000, 1_000_000, 0, 0); cost != 0 {
		t.Fatalf("expected zero cost for unknown model, got %v", cost)
	}
}

func TestCostUSDKnownModel(t *testing.T) {
	cost := CostUSD("claude-sonnet-4-6", 1_000_000, 1_000_000, 0, 0)
	if cost != 18.0 {
		t.Fatalf("expected $18.00 for 1M in + 1M out on claude-sonnet-4-6, got %v", cost)
	}
}
