package actors

import (
	"fmt"
	"strings"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/ledger"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/rules"
)

const proposeSystemPrompt = `You draft competitive proposal content. Output the draft under a
PROPOSAL heading. Be concrete: named staff roles, dates, and cited
compliance treatments beat generalities.`

const challengeSystemPrompt = `You are an adversarial proposal reviewer. File critiques using
exactly this record format, one record per critique, separated by ---:

CRITIQUES
Target: <section reference>
Category: <logic|evidence|completeness|risk|compliance|feasibility|clarity|competitive>
Severity: <critical|major|minor|observation>
Argument: <why this is a problem>
Evidence: <where in the content>
Remedy: <what would fix it>
---`

const defendSystemPrompt = `You defend proposal content against filed critiques. For each critique,
respond using exactly this record format, separated by ---:

RESPONSES
Critique: <critique id>
Disposition: <accept|rebut|acknowledge|partial_accept|defer>
Rationale: <why>
Evidence: <supporting material, required when rebutting a critical critique>
ResidualRisk: <remaining exposure, required when acknowledging a critical critique>
---`

func buildProposePrompt(turn TurnContext, advisories []rules.Finding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\nRound: %d\n\n", turn.Topic, turn.Round)

	if turn.Content != "" {
		b.WriteString("Current draft to revise:\n")
		b.WriteString(turn.Content)
		b.WriteString("\n\n")
	}

	flagged := 0
	for _, f := range advisories {
		if f.Status == rules.StatusPass || f.Status == rules.StatusUnknown {
			continue
		}
		if flagged == 0 {
			b.WriteString("Advisory compliance findings to address in the draft:\n")
		}
		flagged++
		for _, finding := range f.Findings {
			fmt.Fprintf(&b, "- [%s] %s\n", f.RuleID, finding)
		}
		for _, rec := range f.Recommendations {
			fmt.Fprintf(&b, "  recommendation: %s\n", rec)
		}
	}
	if flagged > 0 {
		b.WriteString("\n")
	}

	b.WriteString("Write the proposal content under a PROPOSAL heading.\n")
	return b.String()
}

func buildChallengePrompt(turn TurnContext, focus string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\nRound: %d\n", turn.Topic, turn.Round)
	if focus != "" {
		fmt.Fprintf(&b, "Your review focus: %s\n", focus)
	}
	b.WriteString("\nContent under review:\n")
	b.WriteString(turn.Content)
	b.WriteString("\n\nFile your critiques now.\n")
	return b.String()
}

func buildDefendPrompt(turn TurnContext, open []ledger.Exchange) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\nRound: %d\n\n", turn.Topic, turn.Round)
	b.WriteString("Content under review:\n")
	b.WriteString(turn.Content)
	b.WriteString("\n\nOpen critiques to address:\n")

	for _, ex := range open {
		c := ex.Critique
		fmt.Fprintf(&b, "Critique: %s\nSeverity: %s\nCategory: %s\nTarget: %s\nArgument: %s\n",
			c.ID, c.Severity, c.Category, c.TargetRef, c.Argument)
		if c.Remedy != "" {
			fmt.Fprintf(&b, "Suggested remedy: %s\n", c.Remedy)
		}
		b.WriteString("---\n")
	}

	b.WriteString("\nFile one response per critique now.\n")
	return b.String()
}
