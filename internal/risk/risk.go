// Package risk scores reported proposal concerns by probability and impact
// and aggregates them into a per-session register with an overall
// recommendation. Scoring is a pure function of the probability and impact
// weights; the only mutation a Risk supports after creation is updating its
// mitigation state.
package risk

import (
	"time"

	"github.com/google/uuid"
)

// Probability expresses how likely a risk is to materialize.
type Probability string

const (
	ProbabilityRare          Probability = "rare"
	ProbabilityLow           Probability = "low"
	ProbabilityMedium        Probability = "medium"
	ProbabilityHigh          Probability = "high"
	ProbabilityAlmostCertain Probability = "almost_certain"
)

// Weight returns the fixed numeric weight for the probability tier.
func (p Probability) Weight() float64 {
	switch p {
	case ProbabilityRare:
		return 0.05
	case ProbabilityLow:
		return 0.25
	case ProbabilityMedium:
		return 0.5
	case ProbabilityHigh:
		return 0.75
	case ProbabilityAlmostCertain:
		return 0.95
	default:
		return 0.05
	}
}

// Impact expresses how severe the consequences are if the risk materializes.
type Impact string

const (
	ImpactNegligible   Impact = "negligible"
	ImpactLow          Impact = "low"
	ImpactMedium       Impact = "medium"
	ImpactHigh         Impact = "high"
	ImpactCatastrophic Impact = "catastrophic"
)

// Weight returns the fixed numeric weight for the impact tier.
func (i Impact) Weight() float64 {
	switch i {
	case ImpactNegligible:
		return 0.1
	case ImpactLow:
		return 0.3
	case ImpactMedium:
		return 0.5
	case ImpactHigh:
		return 0.7
	case ImpactCatastrophic:
		return 0.9
	default:
		return 0.1
	}
}

// Level is the derived severity tier of a scored risk.
type Level string

const (
	LevelCritical   Level = "critical"
	LevelHigh       Level = "high"
	LevelMedium     Level = "medium"
	LevelLow        Level = "low"
	LevelNegligible Level = "negligible"
)

// MitigationStatus tracks progress of the mitigation for a risk.
type MitigationStatus string

const (
	MitigationNotStarted    MitigationStatus = "not_started"
	MitigationInProgress    MitigationStatus = "in_progress"
	MitigationImplemented   MitigationStatus = "implemented"
	MitigationVerified      MitigationStatus = "verified"
	MitigationNotApplicable MitigationStatus = "not_applicable"
)

// Score computes probability weight times impact weight. Always in [0,1].
func Score(p Probability, i Impact) float64 {
	return p.Weight() * i.Weight()
}

// LevelForScore maps a score to a severity level. Thresholds are monotonic:
// a higher score never maps to a less strict level.
func LevelForScore(score float64) Level {
	switch {
	case score >= 0.6:
		return LevelCritical
	case score >= 0.4:
		return LevelHigh
	case score >= 0.2:
		return LevelMedium
	case score >= 0.1:
		return LevelLow
	default:
		return LevelNegligible
	}
}

// Risk is a single scored concern. Score, Level, MitigationRequired and
// RequiresHumanReview are derived at construction and never set by callers.
type Risk struct {
	ID                  string           `json:"id"`
	Category            string           `json:"category"`
	Description         string           `json:"description"`
	Probability         Probability      `json:"probability"`
	Impact              Impact           `json:"impact"`
	Score               float64          `json:"risk_score"`
	Level               Level            `json:"risk_level"`
	MitigationRequired  bool             `json:"mitigation_required"`
	MitigationStatus    MitigationStatus `json:"mitigation_status"`
	RequiresHumanReview bool             `json:"requires_human_review"`
	SuggestedMitigation string           `json:"suggested_mitigation,omitempty"`
	ResidualRisk        string           `json:"residual_risk,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

// New creates a scored risk with all derived fields populated and
// mitigation not started.
func New(category, description string, p Probability, i Impact) *Risk {
	score := Score(p, i)

	return &Risk{
		ID:          uuid.New().String(),
		Category:    category,
		Description: description,
		Probability: p,
		Impact:      i,
		Score:       score,
		Level:       LevelForScore(score),
		// Any score at or above the high threshold demands a mitigation plan.
		MitigationRequired: score >= 0.4,
		MitigationStatus:   MitigationNotStarted,
		// A near-certain severe event must always surface to a human even
		// when the combined score lands below the critical threshold.
		RequiresHumanReview: (p == ProbabilityHigh || p == ProbabilityAlmostCertain) &&
			(i == ImpactHigh || i == ImpactCatastrophic),
		CreatedAt: time.Now(),
	}
}

// UpdateMitigation records mitigation progress and any residual risk. This
// is the only supported mutation of a Risk.
func (r *Risk) UpdateMitigation(status MitigationStatus, residual string) {
	r.MitigationStatus = status
	if residual != "" {
		r.ResidualRisk = residual
	}
}

// IsAcceptable reports whether the risk can be carried as-is. Catastrophic
// impact is only acceptable once mitigation is implemented or verified;
// critical and high level risks need mitigation at least in progress.
func (r *Risk) IsAcceptable() bool {
	if r.Impact == ImpactCatastrophic {
		return r.MitigationStatus == MitigationImplemented ||
			r.MitigationStatus == MitigationVerified
	}

	if r.Level == LevelCritical || r.Level == LevelHigh {
		return r.MitigationStatus != MitigationNotStarted &&
			r.MitigationStatus != MitigationNotApplicable
	}

	return true
}
