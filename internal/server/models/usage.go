package models

// Plan names recognized by the metering service. Checkout and plan changes
// are owned by the external billing provider; only the resulting limits
// matter here.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// DefaultMaxTokens is the free-plan monthly token allowance applied when a
// user's usage row is created implicitly by the first increment.
const DefaultMaxTokens = 100_000

// UserUsage is a per-user token accounting row.
type UserUsage struct {
	UserID     string `json:"userId"`
	TokensUsed int    `json:"tokensUsed"`
	MaxTokens  int    `json:"maxTokens"`
	Plan       string `json:"plan"`
}

// Remaining returns the unconsumed allowance, never negative.
func (u UserUsage) Remaining() int {
	if u.TokensUsed >= u.MaxTokens {
		return 0
	}
	return u.MaxTokens - u.TokensUsed
}
