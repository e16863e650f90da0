package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/actors"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/consensus"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/ledger"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/observability/metrics"
)

// scriptedActor plays back a canned turn function.
type scriptedActor struct {
	id   string
	role actors.Role
	fn   func(turn actors.TurnContext) (*actors.TurnOutput, error)
}

func (a *scriptedActor) ID() string        { return a.id }
func (a *scriptedActor) Role() actors.Role { return a.role }

func (a *scriptedActor) Process(_ context.Context, turn actors.TurnContext) (*actors.TurnOutput, error) {
	return a.fn(turn)
}

func proposerActor(id string, fn func(turn actors.TurnContext) (*actors.TurnOutput, error)) *scriptedActor {
	return &scriptedActor{id: id, role: actors.RoleProposer, fn: fn}
}

func challengerActor(id string, fn func(turn actors.TurnContext) (*actors.TurnOutput, error)) *scriptedActor {
	return &scriptedActor{id: id, role: actors.RoleChallenger, fn: fn}
}

// acceptAllDefender responds Accept to every open critique during defend.
func acceptAllDefender(id, proposal string) *scriptedActor {
	return proposerActor(id, func(turn actors.TurnContext) (*actors.TurnOutput, error) {
		out := &actors.TurnOutput{ActorID: id}
		switch turn.Phase {
		case actors.PhasePropose:
			out.Proposal = proposal
		case actors.PhaseDefend:
			for _, ex := range turn.Exchanges {
				if ex.Response != nil {
					continue
				}
				out.Responses = append(out.Responses, ledger.ResponseInput{
					CritiqueID:  ex.Critique.ID,
					Disposition: ledger.DispositionAccept,
					Rationale:   "will incorporate",
					FiledBy:     id,
				})
			}
		}
		return out, nil
	})
}

func newRegistry(t *testing.T, list ...actors.Actor) *actors.Registry {
	t.Helper()
	reg := actors.NewRegistry()
	for _, a := range list {
		require.NoError(t, reg.Register(a))
	}
	return reg
}

func TestSessionCompletesWhenAllCritiquesAccepted(t *testing.T) {
	registry := newRegistry(t,
		acceptAllDefender("proposer-1", "Draft proposal for data migration services."),
		challengerActor("challenger-1", func(turn actors.TurnContext) (*actors.TurnOutput, error) {
			out := &actors.TurnOutput{ActorID: "challenger-1"}
			if turn.Round == 1 {
				out.Critiques = append(out.Critiques, ledger.CritiqueInput{
					TargetRef: "pricing",
					Category:  ledger.CategoryEvidence,
					Severity:  ledger.SeverityMinor,
					Argument:  "pricing assumptions are unsupported",
					Remedy:    "cite the vendor quote",
					FiledBy:   "challenger-1",
				})
			}
			return out, nil
		}),
	)

	collector := metrics.NewCollector(prometheus.NewRegistry())
	session := NewSession(DefaultConfig(), "doc-1", "data migration", registry,
		consensus.New(consensus.DefaultConfig(), nil), WithMetrics(collector))

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateComplete, result.State)
	assert.Equal(t, 1, result.RoundsCompleted)
	assert.True(t, result.Verdict.ConsensusReached)
	assert.Empty(t, result.Failures)
	assert.Contains(t, result.FinalDocument, "Draft proposal for data migration services.")
	assert.Contains(t, result.FinalDocument, "cite the vendor quote")

	// One record per phase: propose, challenge, defend, synthesize.
	require.Len(t, result.Records, 4)
	assert.Equal(t, string(StatePropose), result.Records[0].Phase)
	assert.Equal(t, string(StateChallenge), result.Records[1].Phase)
	assert.Equal(t, string(StateDefend), result.Records[2].Phase)
	assert.Equal(t, string(StateSynthesize), result.Records[3].Phase)
	assert.Equal(t, 100.0, result.Records[2].ResolutionRate)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		collector.SessionOutcomes.WithLabelValues(string(StateComplete))))
}

func TestSessionEscalatesWhenRoundBudgetExhausted(t *testing.T) {
	// Four critiques, three ever resolved: the resolution rate parks at 75%,
	// above the confidence floor but below the consensus threshold, so the
	// session grinds through every round and escalates.
	registry := newRegistry(t,
		proposerActor("proposer-1", func(turn actors.TurnContext) (*actors.TurnOutput, error) {
			out := &actors.TurnOutput{ActorID: "proposer-1"}
			switch {
			case turn.Phase == actors.PhasePropose:
				out.Proposal = "Draft staffing plan."
			case turn.Phase == actors.PhaseDefend && turn.Round == 1:
				for i, ex := range turn.Exchanges {
					if i == 3 {
						break
					}
					out.Responses = append(out.Responses, ledger.ResponseInput{
						CritiqueID:  ex.Critique.ID,
						Disposition: ledger.DispositionAccept,
						Rationale:   "agreed",
						FiledBy:     "proposer-1",
					})
				}
			}
			return out, nil
		}),
		challengerActor("challenger-1", func(turn actors.TurnContext) (*actors.TurnOutput, error) {
			out := &actors.TurnOutput{ActorID: "challenger-1"}
			if turn.Round != 1 {
				return out, nil
			}
			for i := 0; i < 4; i++ {
				out.Critiques = append(out.Critiques, ledger.CritiqueInput{
					TargetRef: fmt.Sprintf("section-%d", i),
					Category:  ledger.CategoryCompleteness,
					Severity:  ledger.SeverityMajor,
					Argument:  fmt.Sprintf("section %d lacks detail", i),
					FiledBy:   "challenger-1",
				})
			}
			return out, nil
		}),
	)

	cfg := Config{MaxRounds: 5, ActorTimeout: time.Second}
	session := NewSession(cfg, "doc-2", "staffing", registry,
		consensus.New(consensus.DefaultConfig(), nil))

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateEscalated, result.State)
	assert.NotEqual(t, StateComplete, result.State)
	assert.Equal(t, 5, result.RoundsCompleted)
	assert.Equal(t, "round budget exceeded without consensus", result.EscalationReason)
	assert.False(t, result.Verdict.ConsensusReached)
	assert.InDelta(t, 75.0, result.Verdict.ResolutionRate, 0.001)

	for _, rec := range result.Records {
		assert.False(t, rec.ConsensusReached)
	}
}

func TestSessionEscalatesWhenNoProposerSucceeds(t *testing.T) {
	registry := newRegistry(t,
		proposerActor("proposer-1", func(actors.TurnContext) (*actors.TurnOutput, error) {
			return nil, errors.New("generation service unavailable")
		}),
		challengerActor("challenger-1", func(actors.TurnContext) (*actors.TurnOutput, error) {
			return &actors.TurnOutput{ActorID: "challenger-1"}, nil
		}),
	)

	session := NewSession(DefaultConfig(), "doc-3", "pricing", registry,
		consensus.New(consensus.DefaultConfig(), nil))

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateEscalated, result.State)
	assert.Contains(t, result.EscalationReason, "no proposing actor produced content")

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "proposer-1", result.Failures[0].ActorID)
	assert.Equal(t, FailureCall, result.Failures[0].Kind)
}

func TestSessionToleratesSingleActorFailure(t *testing.T) {
	registry := newRegistry(t,
		acceptAllDefender("proposer-1", "Draft transition plan."),
		challengerActor("flaky", func(actors.TurnContext) (*actors.TurnOutput, error) {
			return nil, errors.New("timeout talking to provider")
		}),
		challengerActor("steady", func(turn actors.TurnContext) (*actors.TurnOutput, error) {
			out := &actors.TurnOutput{ActorID: "steady"}
			if turn.Round == 1 {
				out.Critiques = append(out.Critiques, ledger.CritiqueInput{
					TargetRef: "timeline",
					Category:  ledger.CategoryFeasibility,
					Severity:  ledger.SeverityMinor,
					Argument:  "timeline is optimistic",
					FiledBy:   "steady",
				})
			}
			return out, nil
		}),
	)

	session := NewSession(DefaultConfig(), "doc-4", "transition", registry,
		consensus.New(consensus.DefaultConfig(), nil))

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	// The flaky challenger degrades to zero contribution; the steady one's
	// critique still makes it through the full exchange.
	assert.Equal(t, StateComplete, result.State)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "flaky", result.Failures[0].ActorID)
	assert.Equal(t, FailureCall, result.Failures[0].Kind)
	require.Len(t, result.Records[1].Critiques, 1)
	assert.Equal(t, "steady", result.Records[1].Critiques[0].FiledBy)
}

func TestSessionRecordsRejectedResolutionAndEscalates(t *testing.T) {
	registry := newRegistry(t,
		proposerActor("proposer-1", func(turn actors.TurnContext) (*actors.TurnOutput, error) {
			out := &actors.TurnOutput{ActorID: "proposer-1"}
			switch turn.Phase {
			case actors.PhasePropose:
				out.Proposal = "Draft compliance matrix."
			case actors.PhaseDefend:
				for _, ex := range turn.Exchanges {
					if ex.Response != nil {
						continue
					}
					// A bare rebuttal cannot resolve a critical critique.
					out.Responses = append(out.Responses, ledger.ResponseInput{
						CritiqueID:  ex.Critique.ID,
						Disposition: ledger.DispositionRebut,
						Rationale:   "disagree",
						FiledBy:     "proposer-1",
					})
				}
			}
			return out, nil
		}),
		challengerActor("challenger-1", func(turn actors.TurnContext) (*actors.TurnOutput, error) {
			out := &actors.TurnOutput{ActorID: "challenger-1"}
			if turn.Round == 1 {
				out.Critiques = append(out.Critiques, ledger.CritiqueInput{
					TargetRef: "flowdown clauses",
					Category:  ledger.CategoryCompliance,
					Severity:  ledger.SeverityCritical,
					Argument:  "mandatory flowdown clauses are missing",
					FiledBy:   "challenger-1",
				})
			}
			return out, nil
		}),
	)

	session := NewSession(DefaultConfig(), "doc-5", "compliance", registry,
		consensus.New(consensus.DefaultConfig(), nil))

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateEscalated, result.State)
	assert.Equal(t, "unresolved critical compliance critique", result.EscalationReason)

	require.NotEmpty(t, result.Failures)
	assert.Equal(t, FailureRejected, result.Failures[0].Kind)
	assert.Contains(t, result.Failures[0].Reason, "invalid resolution")

	// The rejected response was never recorded and the critique is handed to
	// a human as escalated.
	require.Len(t, result.Records[1].Critiques, 1)
	assert.Empty(t, result.Records[2].Responses)
}

func TestSessionCompletesWithNoChallengers(t *testing.T) {
	registry := newRegistry(t, acceptAllDefender("proposer-1", "Uncontested draft."))

	session := NewSession(DefaultConfig(), "doc-6", "uncontested", registry,
		consensus.New(consensus.DefaultConfig(), nil))

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateComplete, result.State)
	assert.Equal(t, 100.0, result.Verdict.ResolutionRate)
	assert.Equal(t, 1, result.RoundsCompleted)
}

func TestSessionFundamentalDisagreementForcesEscalation(t *testing.T) {
	registry := newRegistry(t,
		acceptAllDefender("proposer-1", "Draft under dispute."),
		challengerActor("challenger-1", func(turn actors.TurnContext) (*actors.TurnOutput, error) {
			out := &actors.TurnOutput{ActorID: "challenger-1"}
			if turn.Round == 1 {
				out.Critiques = append(out.Critiques, ledger.CritiqueInput{
					TargetRef: "approach",
					Category:  ledger.CategoryLogic,
					Severity:  ledger.SeverityMajor,
					Argument:  "the approaches are irreconcilable",
					FiledBy:   "challenger-1",
				})
			}
			return out, nil
		}),
	)

	session := NewSession(DefaultConfig(), "doc-7", "disputed", registry,
		consensus.New(consensus.DefaultConfig(), nil))
	session.FlagFundamentalDisagreement()

	result, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateEscalated, result.State)
	assert.Equal(t, "fundamental disagreement flagged", result.EscalationReason)
}

func TestSessionCannotBeReused(t *testing.T) {
	registry := newRegistry(t, acceptAllDefender("proposer-1", "Draft."))
	session := NewSession(DefaultConfig(), "doc-8", "reuse", registry,
		consensus.New(consensus.DefaultConfig(), nil))

	_, err := session.Run(context.Background())
	require.NoError(t, err)

	_, err = session.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionAlreadyStarted)
}
