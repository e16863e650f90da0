package actors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/ledger"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/llm"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/risk"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/rules"
)

// Proposer drafts proposal content and defends it against filed critiques.
// It consults the domain rule engine before drafting to seed risk candidates;
// rule findings are advisory and a rule engine failure never fails the turn.
type Proposer struct {
	id        string
	generator llm.Generator
	rules     rules.Engine
	genCfg    llm.GenerateConfig
	logger    *logrus.Entry
}

// NewProposer creates a proposer. The rule engine may be nil.
func NewProposer(id string, gen llm.Generator, engine rules.Engine, cfg llm.GenerateConfig, logger *logrus.Logger) *Proposer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Proposer{
		id:        id,
		generator: gen,
		rules:     engine,
		genCfg:    cfg,
		logger:    logger.WithFields(logrus.Fields{"actor": id, "role": RoleProposer}),
	}
}

func (p *Proposer) ID() string { return p.id }

func (p *Proposer) Role() Role { return RoleProposer }

// Process drafts content in the propose phase and files responses in the
// defend phase.
func (p *Proposer) Process(ctx context.Context, turn TurnContext) (*TurnOutput, error) {
	switch turn.Phase {
	case PhasePropose:
		return p.propose(ctx, turn)
	case PhaseDefend:
		return p.defend(ctx, turn)
	default:
		return nil, fmt.Errorf("proposer has no work in phase %q", turn.Phase)
	}
}

func (p *Proposer) propose(ctx context.Context, turn TurnContext) (*TurnOutput, error) {
	out := &TurnOutput{ActorID: p.id}

	var advisories []rules.Finding
	if p.rules != nil {
		findings, err := p.rules.Check(ctx, rules.CheckRequest{Content: turn.Content})
		if err != nil {
			p.logger.WithError(err).Warn("rule engine check failed; continuing without advisories")
		} else {
			advisories = findings
			out.Risks = risksFromFindings(findings)
		}
	}

	resp, err := p.generator.Generate(ctx, &llm.GenerateRequest{
		SystemPrompt: proposeSystemPrompt,
		UserPrompt:   buildProposePrompt(turn, advisories),
		Config:       p.genCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("proposer generation failed: %w", err)
	}
	out.Usage = resp.Usage.TotalTokens
	if !resp.Success {
		return nil, fmt.Errorf("proposer generation unsuccessful: %s", resp.Error)
	}

	decoded, err := Decode(resp.Content)
	if err != nil {
		prose := strings.TrimSpace(resp.Content)
		if !errors.Is(err, ErrNoStructuredContent) || prose == "" {
			return nil, fmt.Errorf("proposer output: %w", err)
		}
		// The model wrote prose without the heading; take it as-is.
		decoded = &DecodeResult{Proposal: prose}
	}
	if decoded.Proposal == "" {
		decoded.Proposal = strings.TrimSpace(resp.Content)
	}
	out.Proposal = decoded.Proposal
	return out, nil
}

func (p *Proposer) defend(ctx context.Context, turn TurnContext) (*TurnOutput, error) {
	out := &TurnOutput{ActorID: p.id}

	open := openExchanges(turn.Exchanges)
	if len(open) == 0 {
		return out, nil
	}

	resp, err := p.generator.Generate(ctx, &llm.GenerateRequest{
		SystemPrompt: defendSystemPrompt,
		UserPrompt:   buildDefendPrompt(turn, open),
		Config:       p.genCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("defense generation failed: %w", err)
	}
	out.Usage = resp.Usage.TotalTokens
	if !resp.Success {
		return nil, fmt.Errorf("defense generation unsuccessful: %s", resp.Error)
	}

	decoded, err := Decode(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("defense output: %w", err)
	}
	for i := range decoded.Responses {
		decoded.Responses[i].FiledBy = p.id
	}
	out.Responses = decoded.Responses
	return out, nil
}

// openExchanges filters the snapshot down to critiques still awaiting
// resolution.
func openExchanges(exchanges []ledger.Exchange) []ledger.Exchange {
	var open []ledger.Exchange
	for _, ex := range exchanges {
		if ex.Critique.Status == ledger.StatusOpen {
			open = append(open, ex)
		}
	}
	return open
}

// risksFromFindings converts flagged advisory findings into scored risk
// candidates for the session register.
func risksFromFindings(findings []rules.Finding) []*risk.Risk {
	var out []*risk.Risk
	for _, f := range findings {
		if f.Status == rules.StatusPass || f.Status == rules.StatusUnknown {
			continue
		}

		impact := risk.ImpactMedium
		switch strings.ToLower(f.RiskLevel) {
		case "critical":
			impact = risk.ImpactCatastrophic
		case "high":
			impact = risk.ImpactHigh
		case "low":
			impact = risk.ImpactLow
		}

		description := f.RuleID
		if len(f.Findings) > 0 {
			description = f.Findings[0]
		}

		r := risk.New("compliance", description, risk.ProbabilityMedium, impact)
		if len(f.Recommendations) > 0 {
			r.SuggestedMitigation = f.Recommendations[0]
		}
		out = append(out, r)
	}
	return out
}
