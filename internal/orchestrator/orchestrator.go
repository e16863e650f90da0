// Package orchestrator drives the bounded adversarial review state machine:
// Propose, Challenge, Defend and Synthesize phases over a fixed round
// budget, with Escalated and Complete as the only terminal states. Each
// phase fans out one task per registered actor and joins them at a barrier
// before any transition; every transition appends an immutable round record
// so the full history is replayable independent of the live ledger.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/actors"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/audit"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/consensus"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/ledger"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/observability/metrics"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/risk"
)

// State names a phase or terminal state of the review session.
type State string

const (
	StatePropose    State = "propose"
	StateChallenge  State = "challenge"
	StateDefend     State = "defend"
	StateSynthesize State = "synthesize"
	StateEscalated  State = "escalated"
	StateComplete   State = "complete"
)

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	return s == StateEscalated || s == StateComplete
}

// Config bounds one review session.
type Config struct {
	MaxRounds      int           `yaml:"max_rounds" json:"max_rounds"`
	ActorTimeout   time.Duration `yaml:"actor_timeout" json:"actor_timeout"`
	MaxParallelism int           `yaml:"max_parallelism" json:"max_parallelism"`
}

// DefaultConfig returns the standard session bounds.
func DefaultConfig() Config {
	return Config{
		MaxRounds:    5,
		ActorTimeout: 120 * time.Second,
	}
}

// Result is the terminal report of a session. Partial results are never
// discarded: the round-record trail and failure diagnostics are present
// even when the session escalated.
type Result struct {
	SessionID        string              `json:"session_id"`
	DocumentID       string              `json:"document_id"`
	State            State               `json:"state"`
	FinalDocument    string              `json:"final_document,omitempty"`
	RoundsCompleted  int                 `json:"rounds_completed"`
	Verdict          consensus.Verdict   `json:"verdict"`
	EscalationReason string              `json:"escalation_reason,omitempty"`
	Failures         []ActorFailure      `json:"failures,omitempty"`
	Records          []audit.RoundRecord `json:"records"`
	Duration         time.Duration       `json:"duration"`
}

// Session owns one document's review lifecycle: its ledger, risk register
// and round-record trail are exclusive to the session and discarded or
// archived once a terminal state is reached. Different documents' sessions
// share no mutable state and may run fully in parallel.
type Session struct {
	id         string
	documentID string
	topic      string
	cfg        Config

	registry  *actors.Registry
	evaluator *consensus.Evaluator
	ledger    *ledger.Ledger
	register  *risk.Register
	trail     *audit.Trail
	collector *metrics.Collector
	logger    *logrus.Entry

	mu           sync.Mutex
	state        State
	round        int
	content      string
	started      bool
	disagreement bool
	failures     []ActorFailure
	lastVerdict  consensus.Verdict
}

// Option customizes a session at construction.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Session) {
		s.logger = logger.WithFields(logrus.Fields{
			"component": "orchestrator",
			"session":   s.id,
		})
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Session) { s.collector = c }
}

// WithInitialContent seeds the session with content that already exists,
// letting the propose phase pass even if every proposer fails.
func WithInitialContent(content string) Option {
	return func(s *Session) { s.content = content }
}

// NewSession creates a review session for one document.
func NewSession(cfg Config, documentID, topic string, registry *actors.Registry, evaluator *consensus.Evaluator, opts ...Option) *Session {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultConfig().MaxRounds
	}
	if cfg.ActorTimeout <= 0 {
		cfg.ActorTimeout = DefaultConfig().ActorTimeout
	}

	s := &Session{
		id:         uuid.New().String(),
		documentID: documentID,
		topic:      topic,
		cfg:        cfg,
		registry:   registry,
		evaluator:  evaluator,
		ledger:     ledger.New(documentID),
		register:   risk.NewRegister(),
		state:      StatePropose,
	}
	s.trail = audit.NewTrail(s.id)
	s.logger = logrus.StandardLogger().WithFields(logrus.Fields{
		"component": "orchestrator",
		"session":   s.id,
	})

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Risks returns the session's risk register.
func (s *Session) Risks() *risk.Register { return s.register }

// Trail returns the session's round-record trail.
func (s *Session) Trail() *audit.Trail { return s.trail }

// FlagFundamentalDisagreement forces escalation at the next evaluation.
func (s *Session) FlagFundamentalDisagreement() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disagreement = true
}

// Run executes the state machine to a terminal state. The returned Result
// is always terminal (Complete or Escalated) with the full audit trail;
// Run itself only errors when the session is reused or misconfigured.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, ErrSessionAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if s.registry == nil || s.evaluator == nil {
		return nil, fmt.Errorf("session requires a registry and an evaluator")
	}

	start := time.Now()
	if err := s.ledger.BeginRound(1); err != nil {
		return nil, err
	}
	s.round = 1

	for !s.state.Terminal() {
		if err := ctx.Err(); err != nil {
			s.escalate(fmt.Sprintf("context cancelled during %s: %v", s.state, err))
			break
		}

		phase := s.state
		phaseStart := time.Now()
		switch phase {
		case StatePropose:
			s.runPropose(ctx)
		case StateChallenge:
			s.runChallenge(ctx)
		case StateDefend:
			s.runDefend(ctx)
		case StateSynthesize:
			s.runSynthesize()
		}
		if s.collector != nil {
			s.collector.PhaseDuration.WithLabelValues(string(phase)).
				Observe(time.Since(phaseStart).Seconds())
		}
	}

	if s.collector != nil {
		s.collector.SessionRounds.Observe(float64(s.round))
		s.collector.SessionOutcomes.WithLabelValues(string(s.state)).Inc()
	}

	result := &Result{
		SessionID:        s.id,
		DocumentID:       s.documentID,
		State:            s.state,
		FinalDocument:    s.content,
		RoundsCompleted:  s.round,
		Verdict:          s.lastVerdict,
		EscalationReason: s.escalationReason(),
		Failures:         append([]ActorFailure(nil), s.failures...),
		Records:          s.trail.Records(),
		Duration:         time.Since(start),
	}

	s.logger.WithFields(logrus.Fields{
		"state":    result.State,
		"rounds":   result.RoundsCompleted,
		"failures": len(result.Failures),
		"duration": result.Duration,
	}).Info("review session reached terminal state")

	return result, nil
}

// runPropose collects proposals from all proposing actors. The phase fails
// the session only when no proposer succeeded and no prior content exists.
func (s *Session) runPropose(ctx context.Context) {
	turn := s.snapshotTurn()
	outcomes := s.dispatch(ctx, s.registry.Proposers(), actors.PhasePropose, turn)

	proposed := false
	for _, o := range outcomes {
		if o.failure != nil {
			s.recordFailure(*o.failure)
			continue
		}
		s.absorbOutput(o.output)
		if o.output.Proposal != "" && !proposed {
			s.content = o.output.Proposal
			proposed = true
		}
	}

	if !proposed && s.content == "" {
		err := &ValidationError{Reason: "no proposing actor produced content"}
		s.logger.WithError(err).Error("propose phase failed")
		s.appendRecord(StatePropose)
		s.escalate(err.Error())
		return
	}

	s.appendRecord(StatePropose)
	s.state = StateChallenge
}

// runChallenge collects critiques from all challenging actors and files
// them against the current round.
func (s *Session) runChallenge(ctx context.Context) {
	turn := s.snapshotTurn()
	outcomes := s.dispatch(ctx, s.registry.Challengers(), actors.PhaseChallenge, turn)

	for _, o := range outcomes {
		if o.failure != nil {
			s.recordFailure(*o.failure)
			continue
		}
		s.absorbOutput(o.output)
		for _, in := range o.output.Critiques {
			filed, err := s.ledger.FileCritique(in)
			if err != nil {
				s.recordFailure(ActorFailure{
					ActorID: o.actorID,
					Phase:   StateChallenge,
					Round:   s.round,
					Kind:    FailureRejected,
					Reason:  err.Error(),
				})
				continue
			}
			if s.collector != nil {
				s.collector.CritiquesFiled.WithLabelValues(string(filed.Severity)).Inc()
			}
		}
	}

	s.appendRecord(StateChallenge)
	s.state = StateDefend
}

// runDefend collects responses from proposing actors, consults the
// evaluator, and picks the next phase or terminal state.
func (s *Session) runDefend(ctx context.Context) {
	turn := s.snapshotTurn()
	outcomes := s.dispatch(ctx, s.registry.Proposers(), actors.PhaseDefend, turn)

	for _, o := range outcomes {
		if o.failure != nil {
			s.recordFailure(*o.failure)
			continue
		}
		s.absorbOutput(o.output)
		for _, in := range o.output.Responses {
			filed, err := s.ledger.FileResponse(in)
			if err != nil {
				// Invalid resolutions are rejected at the ledger boundary;
				// the critique stays open and the session continues.
				s.recordFailure(ActorFailure{
					ActorID: o.actorID,
					Phase:   StateDefend,
					Round:   s.round,
					Kind:    FailureRejected,
					Reason:  err.Error(),
				})
				continue
			}
			if s.collector != nil {
				s.collector.ResponsesFiled.WithLabelValues(string(filed.Disposition)).Inc()
			}
		}
	}

	verdict := s.evaluator.Evaluate(s.ledger.Critiques(), s.disagreement)
	s.lastVerdict = verdict
	s.appendRecord(StateDefend)

	switch {
	case verdict.ConsensusReached:
		s.state = StateSynthesize
	case verdict.ShouldEscalate:
		s.escalate(verdict.EscalationReason)
	case s.round >= s.cfg.MaxRounds:
		// Exhausting the round budget is a first-class transition, not an
		// error.
		s.escalate("round budget exceeded without consensus")
	default:
		next := s.round + 1
		if err := s.ledger.BeginRound(next); err != nil {
			s.escalate(fmt.Sprintf("failed to advance round: %v", err))
			return
		}
		s.round = next
		s.state = StateChallenge
	}
}

// runSynthesize assembles the final document from accepted and partially
// accepted responses, then completes the session.
func (s *Session) runSynthesize() {
	var notes []string
	for ex := range s.ledger.Exchanges() {
		if ex.Response == nil {
			continue
		}
		switch ex.Response.Disposition {
		case ledger.DispositionAccept, ledger.DispositionPartialAccept:
			note := ex.Critique.Remedy
			if note == "" {
				note = ex.Response.Rationale
			}
			notes = append(notes, fmt.Sprintf("- [%s] %s", ex.Critique.TargetRef, note))
		}
	}

	var b strings.Builder
	b.WriteString(s.content)
	if len(notes) > 0 {
		b.WriteString("\n\n## Incorporated revisions\n")
		b.WriteString(strings.Join(notes, "\n"))
		b.WriteString("\n")
	}
	s.content = b.String()

	s.appendRecord(StateSynthesize)
	s.state = StateComplete
}

// escalate transitions to the Escalated terminal state, escalating any
// still-blocking critiques in the ledger for the human reviewer.
func (s *Session) escalate(reason string) {
	s.mu.Lock()
	s.lastVerdict.EscalationReason = reason
	s.mu.Unlock()

	for _, c := range s.ledger.OpenCritiques() {
		if c.Severity == ledger.SeverityCritical {
			if err := s.ledger.Escalate(c.ID); err != nil {
				s.logger.WithError(err).Warn("failed to mark critique escalated")
			}
		}
	}

	s.appendRecord(StateEscalated)
	s.state = StateEscalated
}

func (s *Session) escalationReason() string {
	if s.state != StateEscalated {
		return ""
	}
	return s.lastVerdict.EscalationReason
}

// snapshotTurn builds the read-only context shared by all actors in a
// phase. Actors receive copies; they never touch session state.
func (s *Session) snapshotTurn() actors.TurnContext {
	return actors.TurnContext{
		SessionID:  s.id,
		DocumentID: s.documentID,
		Topic:      s.topic,
		Round:      s.round,
		Content:    s.content,
		Exchanges:  s.ledger.ExchangeList(),
	}
}

// absorbOutput folds actor side products (risks, token usage) into the
// session.
func (s *Session) absorbOutput(out *actors.TurnOutput) {
	if out == nil {
		return
	}
	for _, r := range out.Risks {
		s.register.Add(r)
	}
	if s.collector != nil && out.Usage > 0 {
		s.collector.TokensConsumed.Add(float64(out.Usage))
	}
}

func (s *Session) recordFailure(f ActorFailure) {
	s.failures = append(s.failures, f)
	if s.collector != nil {
		s.collector.ActorFailures.WithLabelValues(string(f.Kind)).Inc()
	}
	s.logger.WithFields(logrus.Fields{
		"actor": f.ActorID,
		"phase": f.Phase,
		"round": f.Round,
		"kind":  f.Kind,
	}).Warn(f.Reason)
}

// appendRecord snapshots the current round into the immutable trail before
// the next phase begins.
func (s *Session) appendRecord(phase State) {
	var critiques []*ledger.Critique
	for _, c := range s.ledger.Critiques() {
		if c.Round == s.round {
			critiques = append(critiques, c)
		}
	}
	var responses []*ledger.Response
	for _, r := range s.ledger.Responses() {
		if r.Round == s.round {
			responses = append(responses, r)
		}
	}

	s.trail.Append(audit.RoundRecord{
		RoundNumber:      s.round,
		Phase:            string(phase),
		Timestamp:        time.Now(),
		Critiques:        critiques,
		Responses:        responses,
		ResolutionRate:   consensus.ResolutionRate(s.ledger.Critiques()),
		ConsensusReached: s.lastVerdict.ConsensusReached,
	})
}
