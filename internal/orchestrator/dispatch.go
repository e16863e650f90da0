package orchestrator

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/actors"
)

// outcome is the result of one actor's turn in one phase.
type outcome struct {
	actorID string
	output  *actors.TurnOutput
	failure *ActorFailure
}

// dispatch fans out one task per actor, joins them at a barrier, and
// returns every outcome. Actor failures are captured as values, never
// propagated: a failed actor contributes nothing this round while the
// phase proceeds. Each task carries its own timeout derived from the
// phase context.
func (s *Session) dispatch(ctx context.Context, group []actors.Actor, phase actors.Phase, turn actors.TurnContext) []outcome {
	outcomes := make([]outcome, len(group))

	var g errgroup.Group
	if s.cfg.MaxParallelism > 0 {
		g.SetLimit(s.cfg.MaxParallelism)
	}

	var mu sync.Mutex
	for i, actor := range group {
		g.Go(func() error {
			actorCtx, cancel := context.WithTimeout(ctx, s.cfg.ActorTimeout)
			defer cancel()

			actorTurn := turn
			actorTurn.Phase = phase

			out, err := actor.Process(actorCtx, actorTurn)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				kind := FailureCall
				if errors.Is(err, actors.ErrNoStructuredContent) {
					kind = FailureParse
				}
				outcomes[i] = outcome{
					actorID: actor.ID(),
					failure: &ActorFailure{
						ActorID: actor.ID(),
						Phase:   s.state,
						Round:   s.round,
						Kind:    kind,
						Reason:  err.Error(),
					},
				}
				return nil
			}

			outcomes[i] = outcome{actorID: actor.ID(), output: out}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // tasks never return errors; failures are values

	return outcomes
}
