package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyRegister(t *testing.T) {
	reg := NewRegister()

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, "low", reg.OverallLevel())
	assert.Equal(t, "Proceed", reg.RecommendedAction())
	assert.Empty(t, reg.Unmitigated())
	assert.Empty(t, reg.RequiringReview())
	assert.Empty(t, reg.Top(5))
}

func TestAggregateRuleTable(t *testing.T) {
	mediumRisk := func() *Risk {
		return New("cost", "minor overrun", ProbabilityMedium, ImpactMedium) // 0.25 -> medium
	}

	t.Run("single medium risk", func(t *testing.T) {
		reg := NewRegister()
		reg.Add(mediumRisk())
		assert.Equal(t, "medium", reg.OverallLevel())
		assert.Equal(t, "Proceed with standard risk management", reg.RecommendedAction())
	})

	t.Run("one high risk", func(t *testing.T) {
		reg := NewRegister()
		r := New("schedule", "late delivery", ProbabilityHigh, ImpactHigh) // 0.525 -> high
		require.Equal(t, LevelHigh, r.Level)
		reg.Add(r)
		assert.Equal(t, "medium-high", reg.OverallLevel())
		assert.Equal(t, "Proceed with active risk monitoring", reg.RecommendedAction())
	})

	t.Run("three high risks", func(t *testing.T) {
		reg := NewRegister()
		for i := 0; i < 3; i++ {
			reg.Add(New("schedule", "late delivery", ProbabilityHigh, ImpactHigh))
		}
		assert.Equal(t, "high", reg.OverallLevel())
		assert.Equal(t, "Proceed with caution; ensure mitigation plans", reg.RecommendedAction())
	})

	t.Run("critical risk dominates", func(t *testing.T) {
		reg := NewRegister()
		for i := 0; i < 3; i++ {
			reg.Add(New("schedule", "late delivery", ProbabilityHigh, ImpactHigh))
		}
		crit := New("compliance", "missing certification", ProbabilityAlmostCertain, ImpactCatastrophic)
		require.Equal(t, LevelCritical, crit.Level)
		reg.Add(crit)
		assert.Equal(t, "critical", reg.OverallLevel())
		assert.Equal(t, "Reconsider unless critical risks can be mitigated", reg.RecommendedAction())
	})
}

func TestUnmitigatedAndReviewFilters(t *testing.T) {
	reg := NewRegister()

	needsWork := New("compliance", "missing certification", ProbabilityAlmostCertain, ImpactCatastrophic)
	reg.Add(needsWork)

	handled := New("schedule", "late delivery", ProbabilityHigh, ImpactHigh)
	handled.UpdateMitigation(MitigationInProgress, "")
	reg.Add(handled)

	minor := New("clarity", "terminology drift", ProbabilityRare, ImpactLow)
	reg.Add(minor)

	unmitigated := reg.Unmitigated()
	require.Len(t, unmitigated, 1)
	assert.Equal(t, needsWork.ID, unmitigated[0].ID)

	review := reg.RequiringReview()
	require.Len(t, review, 2)
}

func TestTopOrdersByScore(t *testing.T) {
	reg := NewRegister()

	low := New("clarity", "terminology drift", ProbabilityRare, ImpactLow)
	high := New("schedule", "late delivery", ProbabilityHigh, ImpactCatastrophic)
	mid := New("cost", "overrun", ProbabilityMedium, ImpactMedium)

	reg.Add(low)
	reg.Add(high)
	reg.Add(mid)

	top := reg.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, high.ID, top[0].ID)
	assert.Equal(t, mid.ID, top[1].ID)

	assert.Len(t, reg.Top(10), 3)
	assert.Empty(t, reg.Top(0))
}

func TestCountsByLevelIsACopy(t *testing.T) {
	reg := NewRegister()
	reg.Add(New("cost", "overrun", ProbabilityMedium, ImpactMedium))

	counts := reg.CountsByLevel()
	counts[LevelCritical] = 99

	assert.Equal(t, 0, reg.CountsByLevel()[LevelCritical])
}
