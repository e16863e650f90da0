// Package consensus computes resolution rates over a critique ledger and
// decides whether an adversarial exchange counts as resolved or must be
// escalated to a human. The evaluator is pure over its inputs: it never
// mutates the ledger, it only reports a verdict.
package consensus

import (
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/ledger"
)

// Config holds the evaluator thresholds.
type Config struct {
	// ConsensusThresholdPct is the minimum resolution rate, in percent,
	// required before consensus can be declared.
	ConsensusThresholdPct float64 `yaml:"consensus_threshold_pct" json:"consensus_threshold_pct"`
	// EscalationConfidenceThreshold is the minimum confidence score below
	// which the session escalates to human review.
	EscalationConfidenceThreshold float64 `yaml:"escalation_confidence_threshold" json:"escalation_confidence_threshold"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ConsensusThresholdPct:         80,
		EscalationConfidenceThreshold: 70,
	}
}

// ConfidenceScorer supplies the confidence score compared against the
// escalation threshold. The exact formula is deployment-specific, so it is
// pluggable; only the threshold contract is fixed.
type ConfidenceScorer func(critiques []*ledger.Critique) float64

// ResolutionRateScorer is the default scorer: confidence equals the
// resolution rate in percent.
func ResolutionRateScorer(critiques []*ledger.Critique) float64 {
	return ResolutionRate(critiques)
}

// Verdict is the evaluator's report over one snapshot of the ledger.
type Verdict struct {
	ResolutionRate   float64 `json:"resolution_rate"`
	ConsensusReached bool    `json:"consensus_reached"`
	ShouldEscalate   bool    `json:"should_escalate"`
	Confidence       float64 `json:"confidence"`
	BlockingCount    int     `json:"blocking_count"`
	EscalationReason string  `json:"escalation_reason,omitempty"`
}

// Evaluator applies the consensus and escalation rules.
type Evaluator struct {
	cfg    Config
	scorer ConfidenceScorer
}

// New creates an evaluator. A nil scorer falls back to ResolutionRateScorer.
func New(cfg Config, scorer ConfidenceScorer) *Evaluator {
	if scorer == nil {
		scorer = ResolutionRateScorer
	}
	return &Evaluator{cfg: cfg, scorer: scorer}
}

// ResolutionRate returns resolved/total in percent, defined as 100 when the
// snapshot holds no critiques.
func ResolutionRate(critiques []*ledger.Critique) float64 {
	if len(critiques) == 0 {
		return 100
	}

	resolved := 0
	for _, c := range critiques {
		if c.Status == ledger.StatusResolved {
			resolved++
		}
	}
	return float64(resolved) / float64(len(critiques)) * 100
}

// Evaluate computes the verdict for a snapshot of critiques.
// fundamentalDisagreement is an explicit caller-set flag that forces
// escalation regardless of the numbers.
func (e *Evaluator) Evaluate(critiques []*ledger.Critique, fundamentalDisagreement bool) Verdict {
	v := Verdict{
		ResolutionRate: ResolutionRate(critiques),
		Confidence:     e.scorer(critiques),
	}

	onlyTrivialRemain := true
	criticalCompliance := false
	for _, c := range critiques {
		if c.Status == ledger.StatusResolved {
			continue
		}
		if c.Severity == ledger.SeverityCritical {
			v.BlockingCount++
			if c.Category == ledger.CategoryCompliance {
				criticalCompliance = true
			}
		}
		if c.Severity != ledger.SeverityMinor && c.Severity != ledger.SeverityObservation {
			onlyTrivialRemain = false
		}
	}

	// Consensus is never reached while a critical critique is unresolved,
	// regardless of the resolution rate.
	v.ConsensusReached = v.ResolutionRate >= e.cfg.ConsensusThresholdPct &&
		v.BlockingCount == 0 &&
		onlyTrivialRemain

	switch {
	case fundamentalDisagreement:
		v.ShouldEscalate = true
		v.EscalationReason = "fundamental disagreement flagged"
	case criticalCompliance:
		v.ShouldEscalate = true
		v.EscalationReason = "unresolved critical compliance critique"
	case v.Confidence < e.cfg.EscalationConfidenceThreshold:
		v.ShouldEscalate = true
		v.EscalationReason = "confidence below escalation threshold"
	}

	return v
}
