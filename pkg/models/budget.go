package models

// BudgetPeriod defines the time window for a budget policy.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// BudgetPolicy caps the number of upstream calls of one kind per period.
// An empty Provider applies the cap across all providers of that kind.
type BudgetPolicy struct {
	Kind     CallKind     `json:"kind" yaml:"kind"`
	Provider string       `json:"provider,omitempty" yaml:"provider,omitempty"`
	MaxCalls int64        `json:"max_calls" yaml:"max_calls"`
	Period   BudgetPeriod `json:"period" yaml:"period"`
}

// BudgetStatus shows current usage against a policy.
type BudgetStatus struct {
	Policy    BudgetPolicy `json:"policy"`
	Used      int64        `json:"used"`
	Remaining int64        `json:"remaining"`
}
