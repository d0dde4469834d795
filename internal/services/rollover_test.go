package services

import "testing"

func TestComputeRollover(t *testing.T) {
	tests := []struct {
		name           string
		monthlyLimit   int64
		rolloverAmount int64
		spent          int64
		enableRollover bool
		want           RolloverResult
	}{
		{
			name:           "surplus_carries_in_full",
			monthlyLimit:   500000,
			rolloverAmount: 0,
			spent:          420000,
			enableRollover: true,
			want:           RolloverResult{Amount: 80000},
		},
		{
			name:           "banked_rollover_adds_to_limit",
			monthlyLimit:   500000,
			rolloverAmount: 80000,
			spent:          500000,
			enableRollover: true,
			want:           RolloverResult{Amount: 80000},
		},
		{
			name:           "exact_spend_carries_nothing",
			monthlyLimit:   300000,
			rolloverAmount: 0,
			spent:          300000,
			enableRollover: true,
			want:           RolloverResult{},
		},
		{
			name:           "overspend_becomes_deficit",
			monthlyLimit:   200000,
			rolloverAmount: 0,
			spent:          250000,
			enableRollover: true,
			want:           RolloverResult{Deficit: 50000},
		},
		{
			name:           "overspend_against_banked_rollover",
			monthlyLimit:   200000,
			rolloverAmount: 30000,
			spent:          250000,
			enableRollover: true,
			want:           RolloverResult{Deficit: 20000},
		},
		{
			name:           "disabled_ignores_surplus",
			monthlyLimit:   500000,
			rolloverAmount: 0,
			spent:          100000,
			enableRollover: false,
			want:           RolloverResult{Disabled: true},
		},
		{
			name:           "disabled_ignores_overspend",
			monthlyLimit:   100000,
			rolloverAmount: 0,
			spent:          300000,
			enableRollover: false,
			want:           RolloverResult{Disabled: true},
		},
		{
			name:           "zero_spend_carries_full_limit",
			monthlyLimit:   150000,
			rolloverAmount: 25000,
			spent:          0,
			enableRollover: true,
			want:           RolloverResult{Amount: 175000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRollover(tt.monthlyLimit, tt.rolloverAmount, tt.spent, tt.enableRollover)
			if got != tt.want {
				t.Errorf("ComputeRollover(%d, %d, %d, %v) = %+v, want %+v",
					tt.monthlyLimit, tt.rolloverAmount, tt.spent, tt.enableRollover, got, tt.want)
			}
		})
	}
}
