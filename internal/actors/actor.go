package actors

import (
	"context"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/ledger"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/risk"
)

// Role identifies which side of the exchange an actor plays.
type Role string

const (
	RoleProposer   Role = "proposer"
	RoleChallenger Role = "challenger"
)

// Phase names the orchestration phase an actor is invoked in. Mirrored here
// so the actors package does not depend on the orchestrator.
type Phase string

const (
	PhasePropose   Phase = "propose"
	PhaseChallenge Phase = "challenge"
	PhaseDefend    Phase = "defend"
)

// TurnContext is the read-only snapshot an actor works from. Actors never
// share mutable state; they see only the document content, the round number
// and a copy of the exchanges so far.
type TurnContext struct {
	SessionID  string
	DocumentID string
	Topic      string
	Round      int
	Phase      Phase
	Content    string
	Exchanges  []ledger.Exchange
}

// TurnOutput is everything one actor contributed in one phase.
type TurnOutput struct {
	ActorID   string
	Proposal  string
	Critiques []ledger.CritiqueInput
	Responses []ledger.ResponseInput
	Risks     []*risk.Risk
	Usage     int // total tokens consumed by the call
}

// Actor is the single capability interface every debate participant
// implements.
type Actor interface {
	ID() string
	Role() Role
	Process(ctx context.Context, turn TurnContext) (*TurnOutput, error)
}
