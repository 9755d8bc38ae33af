package client

import (
	"github.com/pmfcarvalho/extrato/internal/model"
	"github.com/pmfcarvalho/extrato/internal/plan"
)

// Usage is the quota projection of a subscription snapshot: what is
// metered, how much is used, and how close the account is to the ceiling.
type Usage struct {
	Used    int
	Limit   int
	Unit    string // "conversions" or "pages"
	Percent float64
}

const defaultFreeConversions = 5

// ComputeUsage projects a subscription onto its quota. Free plans are
// metered by conversions, paid plans by pages; the two are never mixed. A
// nil subscription means "not yet loaded" and returns ok=false — callers
// must suppress quota-gated actions until a snapshot is available, rather
// than treating the absence as zero quota.
func ComputeUsage(sub *model.Subscription) (Usage, bool) {
	if sub == nil {
		return Usage{}, false
	}

	var u Usage
	if sub.PlanType == plan.Free {
		u.Unit = "conversions"
		u.Used = sub.ConversionsUsedThisMonth
		u.Limit = defaultFreeConversions
		if sub.ConversionsLimit != nil {
			u.Limit = *sub.ConversionsLimit
		}
	} else {
		u.Unit = "pages"
		u.Used = sub.PagesUsedThisMonth
		u.Limit = sub.PagesLimit
	}

	if u.Limit > 0 {
		u.Percent = float64(u.Used) / float64(u.Limit) * 100
	}
	return u, true
}

// Exhausted reports whether the next metered action would exceed the limit.
func (u Usage) Exhausted() bool {
	return u.Limit > 0 && u.Used >= u.Limit
}
