package risk

import (
	"sort"
	"sync"
)

// Register aggregates the risks raised during one review session. Aggregates
// are recomputed in full on every Add so they can never drift from the
// underlying list. A Register is owned by a single session and safe for
// concurrent readers.
type Register struct {
	mu    sync.RWMutex
	risks []*Risk

	countsByLevel     map[Level]int
	overallLevel      string
	recommendedAction string
}

// NewRegister creates an empty register.
func NewRegister() *Register {
	r := &Register{
		countsByLevel: make(map[Level]int),
	}
	r.recompute()
	return r
}

// Add appends a risk and recomputes all aggregates.
func (r *Register) Add(risk *Risk) {
	if risk == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.risks = append(r.risks, risk)
	r.recompute()
}

// recompute rebuilds every aggregate from the full risk list. Callers must
// hold the write lock.
func (r *Register) recompute() {
	counts := make(map[Level]int)
	for _, risk := range r.risks {
		counts[risk.Level]++
	}
	r.countsByLevel = counts

	// First matching rule wins.
	switch {
	case counts[LevelCritical] > 0:
		r.overallLevel = "critical"
		r.recommendedAction = "Reconsider unless critical risks can be mitigated"
	case counts[LevelHigh] >= 3:
		r.overallLevel = "high"
		r.recommendedAction = "Proceed with caution; ensure mitigation plans"
	case counts[LevelHigh] >= 1:
		r.overallLevel = "medium-high"
		r.recommendedAction = "Proceed with active risk monitoring"
	case counts[LevelMedium] >= 1:
		r.overallLevel = "medium"
		r.recommendedAction = "Proceed with standard risk management"
	default:
		r.overallLevel = "low"
		r.recommendedAction = "Proceed"
	}
}

// Len returns the number of registered risks.
func (r *Register) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.risks)
}

// Risks returns a snapshot of all registered risks in insertion order.
func (r *Register) Risks() []*Risk {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Risk, len(r.risks))
	copy(out, r.risks)
	return out
}

// Unmitigated returns risks that require mitigation but have none started.
func (r *Register) Unmitigated() []*Risk {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Risk
	for _, risk := range r.risks {
		if risk.MitigationRequired && risk.MitigationStatus == MitigationNotStarted {
			out = append(out, risk)
		}
	}
	return out
}

// RequiringReview returns risks flagged for human review.
func (r *Register) RequiringReview() []*Risk {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Risk
	for _, risk := range r.risks {
		if risk.RequiresHumanReview {
			out = append(out, risk)
		}
	}
	return out
}

// Top returns the n highest scored risks, ties broken by insertion order.
func (r *Register) Top(n int) []*Risk {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := make([]*Risk, len(r.risks))
	copy(sorted, r.risks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	if n < 0 {
		n = 0
	}
	return sorted[:n]
}

// CountsByLevel returns a copy of the per-level risk counts.
func (r *Register) CountsByLevel() map[Level]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Level]int, len(r.countsByLevel))
	for k, v := range r.countsByLevel {
		out[k] = v
	}
	return out
}

// OverallLevel returns the aggregate risk level for the register.
func (r *Register) OverallLevel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overallLevel
}

// RecommendedAction returns the action derived from the aggregate level.
func (r *Register) RecommendedAction() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recommendedAction
}
