package plan

import "github.com/pmfcarvalho/extrato/internal/model"

// Plan describes a subscription tier. Free accounts are metered by discrete
// conversions per month, paid accounts by pages.
type Plan struct {
	Type             string `json:"plan_type"`
	Name             string `json:"name"`
	PriceCents       int64  `json:"price_cents"`
	Currency         string `json:"currency"`
	PagesLimit       int    `json:"pages_limit"`
	ConversionsLimit int    `json:"conversions_limit,omitempty"`
}

const (
	Free    = "free"
	Starter = "starter"
	Pro     = "pro"
)

var catalog = map[string]Plan{
	Free:    {Type: Free, Name: "Gratuito", PriceCents: 0, Currency: "eur", PagesLimit: 50, ConversionsLimit: 5},
	Starter: {Type: Starter, Name: "Inicial", PriceCents: 3000, Currency: "eur", PagesLimit: 400},
	Pro:     {Type: Pro, Name: "Profissional", PriceCents: 9900, Currency: "eur", PagesLimit: 4000},
}

// Get returns the plan for the given type, or false if the type is unknown.
func Get(planType string) (Plan, bool) {
	p, ok := catalog[planType]
	return p, ok
}

// All returns the catalog in display order.
func All() []Plan {
	return []Plan{catalog[Free], catalog[Starter], catalog[Pro]}
}

// Paid reports whether the plan requires payment.
func (p Plan) Paid() bool {
	return p.PriceCents > 0
}

const estimateChunk = 50 * 1024

// EstimatePages approximates a PDF's page count from its byte size,
// one page per 50KiB with a floor of one.
func EstimatePages(size int64) int {
	n := int(size / estimateChunk)
	if n < 1 {
		return 1
	}
	return n
}

// Allows reports whether the subscription has quota left for a conversion of
// the given page count. Free tiers gate on conversions used, paid tiers on
// pages used.
func Allows(sub *model.Subscription, pages int) bool {
	if sub == nil {
		return false
	}
	if sub.PlanType == Free {
		limit := 0
		if sub.ConversionsLimit != nil {
			limit = *sub.ConversionsLimit
		}
		return sub.ConversionsUsedThisMonth+1 <= limit
	}
	return sub.PagesUsedThisMonth+pages <= sub.PagesLimit
}
