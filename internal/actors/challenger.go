package actors

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/llm"
)

// Challenger files structured critiques against the current proposal
// content. A challenger may carry a focus, such as compliance or
// feasibility, which shapes its prompt.
type Challenger struct {
	id        string
	focus     string
	generator llm.Generator
	genCfg    llm.GenerateConfig
	logger    *logrus.Entry
}

// NewChallenger creates a challenger with an optional focus area.
func NewChallenger(id, focus string, gen llm.Generator, cfg llm.GenerateConfig, logger *logrus.Logger) *Challenger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Challenger{
		id:        id,
		focus:     focus,
		generator: gen,
		genCfg:    cfg,
		logger:    logger.WithFields(logrus.Fields{"actor": id, "role": RoleChallenger}),
	}
}

func (c *Challenger) ID() string { return c.id }

func (c *Challenger) Role() Role { return RoleChallenger }

// Process critiques the proposal content. Only meaningful in the challenge
// phase.
func (c *Challenger) Process(ctx context.Context, turn TurnContext) (*TurnOutput, error) {
	if turn.Phase != PhaseChallenge {
		return nil, fmt.Errorf("challenger has no work in phase %q", turn.Phase)
	}

	out := &TurnOutput{ActorID: c.id}

	resp, err := c.generator.Generate(ctx, &llm.GenerateRequest{
		SystemPrompt: challengeSystemPrompt,
		UserPrompt:   buildChallengePrompt(turn, c.focus),
		Config:       c.genCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("challenge generation failed: %w", err)
	}
	out.Usage = resp.Usage.TotalTokens
	if !resp.Success {
		return nil, fmt.Errorf("challenge generation unsuccessful: %s", resp.Error)
	}

	decoded, err := Decode(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("challenge output: %w", err)
	}
	for i := range decoded.Critiques {
		decoded.Critiques[i].FiledBy = c.id
	}
	out.Critiques = decoded.Critiques

	c.logger.WithFields(logrus.Fields{
		"round":     turn.Round,
		"critiques": len(out.Critiques),
	}).Debug("challenge turn completed")

	return out, nil
}
