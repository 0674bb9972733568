package policy

// CounterLimitPolicy defines cash handling limits for a point of sale
// counter. All amounts are cents.
type CounterLimitPolicy struct {
	SingleDepositMax int64 `json:"single_deposit_max"`
	SinglePayoutMax  int64 `json:"single_payout_max"`
	DailyPayoutMax   int64 `json:"daily_payout_max"` // per operator
}

// DefaultCounterLimits returns the default counter limits ($500 single
// deposit, $2,500 single payout, $10,000 daily payout per operator).
func DefaultCounterLimits() CounterLimitPolicy {
	return CounterLimitPolicy{
		SingleDepositMax: 50_000,
		SinglePayoutMax:  250_000,
		DailyPayoutMax:   1_000_000,
	}
}

// Evaluation holds the result of a counter limits check.
type Evaluation struct {
	Allowed       bool   `json:"allowed"`
	BreachedLimit string `json:"breached_limit,omitempty"`
	LimitValue    int64  `json:"limit_value,omitempty"`
	RequestedAmt  int64  `json:"requested_amount,omitempty"`
}

// EvaluateDeposit checks a ticket deposit against the counter limits.
func EvaluateDeposit(policy CounterLimitPolicy, amount int64) Evaluation {
	if policy.SingleDepositMax > 0 && amount > policy.SingleDepositMax {
		return Evaluation{
			Allowed:       false,
			BreachedLimit: "single_deposit",
			LimitValue:    policy.SingleDepositMax,
			RequestedAmt:  amount,
		}
	}
	return Evaluation{Allowed: true}
}

// EvaluatePayout checks a payout against the counter limits. dailyPayouts
// is the operator's running total for the current day.
func EvaluatePayout(policy CounterLimitPolicy, amount, dailyPayouts int64) Evaluation {
	if policy.SinglePayoutMax > 0 && amount > policy.SinglePayoutMax {
		return Evaluation{
			Allowed:       false,
			BreachedLimit: "single_payout",
			LimitValue:    policy.SinglePayoutMax,
			RequestedAmt:  amount,
		}
	}
	if policy.DailyPayoutMax > 0 && dailyPayouts+amount > policy.DailyPayoutMax {
		return Evaluation{
			Allowed:       false,
			BreachedLimit: "daily_payout",
			LimitValue:    policy.DailyPayoutMax,
			RequestedAmt:  dailyPayouts + amount,
		}
	}
	return Evaluation{Allowed: true}
}
