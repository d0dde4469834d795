package services

// RolloverResult is the outcome of a single category's rollover
// computation at a period boundary. Amount is the surplus carried into
// the next period. Deficit reports overspend for manual reconciliation;
// it is never applied to the next period's limit.
type RolloverResult struct {
	Amount   int64 `json:"amount"`
	Deficit  int64 `json:"deficit"`
	Disabled bool  `json:"disabled"`
}

// ComputeRollover derives the rollover for one category from its closed
// period. The effective limit is monthlyLimit + rolloverAmount; whatever
// of it was not spent carries forward in full. The persisted rollover is
// never negative: overspend becomes an informational deficit instead.
func ComputeRollover(monthlyLimit, rolloverAmount, spent int64, enableRollover bool) RolloverResult {
	if !enableRollover {
		return RolloverResult{Disabled: true}
	}

	remaining := monthlyLimit + rolloverAmount - spent
	switch {
	case remaining > 0:
		return RolloverResult{Amount: remaining}
	case remaining < 0:
		return RolloverResult{Deficit: -remaining}
	default:
		return RolloverResult{}
	}
}
