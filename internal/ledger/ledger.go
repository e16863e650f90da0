package ledger

import (
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// minRebutEvidenceLen is the minimum substance, in non-space characters,
// required for evidence backing a rebuttal of a critical critique.
const minRebutEvidenceLen = 20

// CritiqueInput carries the caller-supplied fields of a new critique.
type CritiqueInput struct {
	TargetRef string
	Category  Category
	Severity  Severity
	Argument  string
	Evidence  string
	Remedy    string
	FiledBy   string
}

// ResponseInput carries the caller-supplied fields of a new response.
type ResponseInput struct {
	CritiqueID   string
	Disposition  Disposition
	Rationale    string
	Evidence     string
	ResidualRisk string
	FiledBy      string
}

// Ledger stores the critiques and responses for one proposal. All appends
// are serialized under a single writer lock so aggregates are always
// computed against a consistent snapshot.
type Ledger struct {
	mu           sync.Mutex
	documentID   string
	currentRound int
	critiques    []*Critique
	byID         map[string]*Critique
	responses    []*Response
	latest       map[string]*Response       // critique ID -> most recent response
	perRound     map[string]map[int]bool    // critique ID -> rounds with a response
}

// New creates an empty ledger for the given proposal document.
func New(documentID string) *Ledger {
	return &Ledger{
		documentID: documentID,
		byID:       make(map[string]*Critique),
		latest:     make(map[string]*Response),
		perRound:   make(map[string]map[int]bool),
	}
}

// DocumentID returns the proposal document this ledger belongs to.
func (l *Ledger) DocumentID() string {
	return l.documentID
}

// BeginRound advances the ledger to the given round. Rounds are strictly
// increasing per document.
func (l *Ledger) BeginRound(round int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if round <= l.currentRound {
		return fmt.Errorf("round %d is not after current round %d", round, l.currentRound)
	}
	l.currentRound = round
	return nil
}

// CurrentRound returns the round the ledger is scoped to.
func (l *Ledger) CurrentRound() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentRound
}

// FileCritique appends a new open critique scoped to the current round.
func (l *Ledger) FileCritique(in CritiqueInput) (*Critique, error) {
	if strings.TrimSpace(in.Argument) == "" {
		return nil, fmt.Errorf("critique argument is required")
	}
	if !ValidCategory(in.Category) {
		return nil, fmt.Errorf("unknown critique category %q", in.Category)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c := &Critique{
		ID:        uuid.New().String(),
		Round:     l.currentRound,
		TargetRef: in.TargetRef,
		Category:  in.Category,
		Severity:  in.Severity,
		Status:    StatusOpen,
		Argument:  in.Argument,
		Evidence:  in.Evidence,
		Remedy:    in.Remedy,
		FiledBy:   in.FiledBy,
		FiledAt:   time.Now(),
	}

	l.critiques = append(l.critiques, c)
	l.byID[c.ID] = c
	return c, nil
}

// FileResponse appends a response to an existing critique, validating the
// critical-resolution invariant at the ledger boundary. An invalid response
// is rejected and not recorded.
func (l *Ledger) FileResponse(in ResponseInput) (*Response, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.byID[in.CritiqueID]
	if !ok {
		return nil, fmt.Errorf("response references unknown critique %q", in.CritiqueID)
	}

	rounds := l.perRound[c.ID]
	if rounds[l.currentRound] {
		return nil, fmt.Errorf("critique %s already has a response in round %d",
			c.ID, l.currentRound)
	}

	resolves, err := resolvesCritique(c, in)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		ID:           uuid.New().String(),
		CritiqueID:   c.ID,
		Round:        l.currentRound,
		Disposition:  in.Disposition,
		Rationale:    in.Rationale,
		Evidence:     in.Evidence,
		ResidualRisk: in.ResidualRisk,
		FiledBy:      in.FiledBy,
		FiledAt:      time.Now(),
	}

	l.responses = append(l.responses, resp)
	l.latest[c.ID] = resp
	if rounds == nil {
		rounds = make(map[int]bool)
		l.perRound[c.ID] = rounds
	}
	rounds[l.currentRound] = true

	if resolves {
		c.Status = StatusResolved
	}
	return resp, nil
}

// resolvesCritique decides whether the response moves the critique to
// Resolved, returning InvalidResolutionError for dispositions that are
// disallowed against critical critiques.
func resolvesCritique(c *Critique, in ResponseInput) (bool, error) {
	if c.Severity != SeverityCritical {
		switch in.Disposition {
		case DispositionDefer:
			return false, nil
		default:
			return true, nil
		}
	}

	switch in.Disposition {
	case DispositionAccept:
		return true, nil
	case DispositionRebut:
		if len(strings.Join(strings.Fields(in.Evidence), "")) < minRebutEvidenceLen {
			return false, &InvalidResolutionError{
				CritiqueID:  c.ID,
				Disposition: in.Disposition,
				Reason:      "rebuttal of a critical critique requires substantive evidence",
			}
		}
		return true, nil
	case DispositionAcknowledge:
		if strings.TrimSpace(in.ResidualRisk) == "" {
			return false, &InvalidResolutionError{
				CritiqueID:  c.ID,
				Disposition: in.Disposition,
				Reason:      "acknowledging a critical critique requires a stated residual risk",
			}
		}
		return true, nil
	case DispositionPartialAccept, DispositionDefer:
		// Recorded, but a critical critique stays open until fully addressed.
		return false, nil
	default:
		return false, fmt.Errorf("unknown disposition %q", in.Disposition)
	}
}

// Escalate marks a critique as escalated to human review.
func (l *Ledger) Escalate(critiqueID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.byID[critiqueID]
	if !ok {
		return fmt.Errorf("unknown critique %q", critiqueID)
	}
	c.Status = StatusEscalated
	return nil
}

// Exchanges returns a lazy, finite, restartable sequence of exchanges over a
// consistent snapshot taken when Exchanges is called. Each range over the
// sequence replays the same snapshot.
func (l *Ledger) Exchanges() iter.Seq[Exchange] {
	snapshot := l.ExchangeList()
	return func(yield func(Exchange) bool) {
		for _, ex := range snapshot {
			if !yield(ex) {
				return
			}
		}
	}
}

// ExchangeList returns a snapshot slice of all exchanges in filing order.
func (l *Ledger) ExchangeList() []Exchange {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Exchange, 0, len(l.critiques))
	for _, c := range l.critiques {
		cp := *c
		ex := Exchange{Critique: &cp}
		if resp, ok := l.latest[c.ID]; ok {
			rp := *resp
			ex.Response = &rp
		}
		out = append(out, ex)
	}
	return out
}

// Critiques returns a snapshot of all critiques in filing order.
func (l *Ledger) Critiques() []*Critique {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Critique, 0, len(l.critiques))
	for _, c := range l.critiques {
		cp := *c
		out = append(out, &cp)
	}
	return out
}

// Responses returns a snapshot of all responses in filing order.
func (l *Ledger) Responses() []*Response {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Response, 0, len(l.responses))
	for _, r := range l.responses {
		rp := *r
		out = append(out, &rp)
	}
	return out
}

// OpenCritiques returns critiques that are still open, in filing order.
func (l *Ledger) OpenCritiques() []*Critique {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Critique
	for _, c := range l.critiques {
		if c.Status == StatusOpen {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}

// Summary derives severity counts and the blocking set on demand.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{
		CountsBySeverity: make(map[Severity]int),
	}
	for _, c := range l.critiques {
		s.Total++
		s.CountsBySeverity[c.Severity]++
		if c.Status == StatusResolved {
			s.Resolved++
		}
		if c.Severity == SeverityCritical && c.Status != StatusResolved {
			cp := *c
			s.Blocking = append(s.Blocking, &cp)
		}
	}
	return s
}
