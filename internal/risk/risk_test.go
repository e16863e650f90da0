package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreIsProductOfWeights(t *testing.T) {
	probabilities := []Probability{
		ProbabilityRare, ProbabilityLow, ProbabilityMedium,
		ProbabilityHigh, ProbabilityAlmostCertain,
	}
	impacts := []Impact{
		ImpactNegligible, ImpactLow, ImpactMedium,
		ImpactHigh, ImpactCatastrophic,
	}

	for _, p := range probabilities {
		for _, i := range impacts {
			score := Score(p, i)
			assert.Equal(t, p.Weight()*i.Weight(), score)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		score float64
		level Level
	}{
		{0.0, LevelNegligible},
		{0.09, LevelNegligible},
		{0.1, LevelLow},
		{0.19, LevelLow},
		{0.2, LevelMedium},
		{0.39, LevelMedium},
		{0.4, LevelHigh},
		{0.59, LevelHigh},
		{0.6, LevelCritical},
		{1.0, LevelCritical},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelForScore(tc.score), "score %v", tc.score)
	}
}

// Severity tiers must be monotonic in the score: walking up the score range
// never produces a less strict tier.
func TestLevelMonotonicity(t *testing.T) {
	rank := map[Level]int{
		LevelNegligible: 0,
		LevelLow:        1,
		LevelMedium:     2,
		LevelHigh:       3,
		LevelCritical:   4,
	}

	prev := rank[LevelForScore(0)]
	for s := 0.0; s <= 1.0; s += 0.01 {
		cur := rank[LevelForScore(s)]
		assert.GreaterOrEqual(t, cur, prev, "score %v", s)
		prev = cur
	}
}

func TestHighProbabilityCatastrophicImpact(t *testing.T) {
	r := New("schedule", "vendor slips delivery", ProbabilityHigh, ImpactCatastrophic)
	require.NotNil(t, r)

	assert.InDelta(t, 0.675, r.Score, 1e-9)
	assert.Equal(t, LevelCritical, r.Level)
	assert.True(t, r.RequiresHumanReview)
	assert.True(t, r.MitigationRequired)
	assert.Equal(t, MitigationNotStarted, r.MitigationStatus)
	assert.NotEmpty(t, r.ID)
}

func TestHumanReviewIndependentOfScore(t *testing.T) {
	// High probability and high impact flags review even though the score
	// sits below the critical threshold.
	r := New("compliance", "audit exposure", ProbabilityHigh, ImpactHigh)
	assert.InDelta(t, 0.525, r.Score, 1e-9)
	assert.Equal(t, LevelHigh, r.Level)
	assert.True(t, r.RequiresHumanReview)

	// Medium probability never flags review, even at catastrophic impact.
	r = New("compliance", "audit exposure", ProbabilityMedium, ImpactCatastrophic)
	assert.False(t, r.RequiresHumanReview)
}

func TestCatastrophicAcceptabilityRequiresImplementedMitigation(t *testing.T) {
	r := New("schedule", "vendor slips delivery", ProbabilityHigh, ImpactCatastrophic)

	assert.False(t, r.IsAcceptable())

	// In progress is enough for ordinary high risks but not for
	// catastrophic impact.
	r.UpdateMitigation(MitigationInProgress, "")
	assert.False(t, r.IsAcceptable())

	r.UpdateMitigation(MitigationImplemented, "residual schedule float consumed")
	assert.True(t, r.IsAcceptable())
	assert.Equal(t, "residual schedule float consumed", r.ResidualRisk)

	r.UpdateMitigation(MitigationVerified, "")
	assert.True(t, r.IsAcceptable())
	// Residual text survives an update that omits it.
	assert.Equal(t, "residual schedule float consumed", r.ResidualRisk)
}

func TestHighLevelAcceptability(t *testing.T) {
	r := New("cost", "material price volatility", ProbabilityHigh, ImpactMedium)
	require.Equal(t, LevelMedium, r.Level)
	assert.True(t, r.IsAcceptable())

	r = New("cost", "material price volatility", ProbabilityAlmostCertain, ImpactMedium)
	require.Equal(t, LevelHigh, r.Level)
	assert.False(t, r.IsAcceptable())

	r.UpdateMitigation(MitigationInProgress, "")
	assert.True(t, r.IsAcceptable())

	r.UpdateMitigation(MitigationNotApplicable, "")
	assert.False(t, r.IsAcceptable())
}
