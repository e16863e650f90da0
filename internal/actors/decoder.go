// Package actors implements the proposing and defending proposer and the
// challenging critics that drive an adversarial review session. Each actor
// is a value implementing a single capability interface; the orchestrator
// holds a closed list of them and never a type hierarchy.
package actors

import (
	"errors"
	"strings"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/ledger"
)

// ErrNoStructuredContent signals that the model output contained nothing
// decodable. Callers treat it as a parse failure: the actor contributes
// nothing this round and the round continues.
var ErrNoStructuredContent = errors.New("no structured content in model output")

// Decoder defaults. Missing fields are defaulted rather than failed.
const (
	defaultTarget   = "document"
	defaultCategory = ledger.CategoryLogic
	defaultSeverity = ledger.SeverityMinor
	defaultHeading  = "PROPOSAL"
	critiqueHeading = "CRITIQUES"
	responseHeading = "RESPONSES"
	recordSeparator = "---"
)

// DecodeResult holds everything extracted from one model reply.
type DecodeResult struct {
	Proposal  string
	Critiques []ledger.CritiqueInput
	Responses []ledger.ResponseInput
}

// Decode best-effort parses free model text against the section grammar
// (PROPOSAL / CRITIQUES / RESPONSES with key-value records separated by
// ---). It returns ErrNoStructuredContent when nothing at all was decoded;
// it never fails on partially well-formed records.
func Decode(text string) (*DecodeResult, error) {
	res := &DecodeResult{}

	var proposal []string
	section := ""
	var curCrit *ledger.CritiqueInput
	var curResp *ledger.ResponseInput

	flush := func() {
		if curCrit != nil && strings.TrimSpace(curCrit.Argument) != "" {
			res.Critiques = append(res.Critiques, normalizeCritique(*curCrit))
		}
		if curResp != nil && curResp.CritiqueID != "" {
			res.Responses = append(res.Responses, normalizeResponse(*curResp))
		}
		curCrit = nil
		curResp = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		switch strings.ToUpper(line) {
		case defaultHeading:
			flush()
			section = "proposal"
			continue
		case critiqueHeading:
			flush()
			section = "critique"
			continue
		case responseHeading:
			flush()
			section = "response"
			continue
		}

		if line == recordSeparator {
			flush()
			continue
		}

		switch section {
		case "proposal":
			proposal = append(proposal, raw)
		case "critique":
			if line == "" {
				continue
			}
			if curCrit == nil {
				curCrit = &ledger.CritiqueInput{}
			}
			decodeCritiqueLine(line, curCrit)
		case "response":
			if line == "" {
				continue
			}
			if curResp == nil {
				curResp = &ledger.ResponseInput{}
			}
			decodeResponseLine(line, curResp)
		}
	}
	flush()

	res.Proposal = strings.TrimSpace(strings.Join(proposal, "\n"))

	if res.Proposal == "" && len(res.Critiques) == 0 && len(res.Responses) == 0 {
		return nil, ErrNoStructuredContent
	}
	return res, nil
}

func decodeCritiqueLine(line string, c *ledger.CritiqueInput) {
	if v, ok := extractField(line, "Target:"); ok {
		c.TargetRef = v
	} else if v, ok := extractField(line, "Category:"); ok {
		c.Category = ledger.Category(strings.ToLower(v))
	} else if v, ok := extractField(line, "Severity:"); ok {
		c.Severity = ledger.Severity(strings.ToLower(v))
	} else if v, ok := extractField(line, "Argument:"); ok {
		c.Argument = v
	} else if v, ok := extractField(line, "Evidence:"); ok {
		c.Evidence = v
	} else if v, ok := extractField(line, "Remedy:"); ok {
		c.Remedy = v
	} else if c.Argument != "" {
		// Continuation of a multi-line argument.
		c.Argument += " " + line
	}
}

func decodeResponseLine(line string, r *ledger.ResponseInput) {
	if v, ok := extractField(line, "Critique:"); ok {
		r.CritiqueID = v
	} else if v, ok := extractField(line, "Disposition:"); ok {
		r.Disposition = ledger.Disposition(strings.ToLower(strings.ReplaceAll(v, " ", "_")))
	} else if v, ok := extractField(line, "Rationale:"); ok {
		r.Rationale = v
	} else if v, ok := extractField(line, "Evidence:"); ok {
		r.Evidence = v
	} else if v, ok := extractField(line, "ResidualRisk:"); ok {
		r.ResidualRisk = v
	} else if r.Rationale != "" {
		r.Rationale += " " + line
	}
}

// normalizeCritique fills defaults for missing or unknown fields.
func normalizeCritique(c ledger.CritiqueInput) ledger.CritiqueInput {
	if c.TargetRef == "" {
		c.TargetRef = defaultTarget
	}
	if !ledger.ValidCategory(c.Category) {
		c.Category = defaultCategory
	}
	switch c.Severity {
	case ledger.SeverityCritical, ledger.SeverityMajor, ledger.SeverityMinor, ledger.SeverityObservation:
	default:
		c.Severity = defaultSeverity
	}
	return c
}

// normalizeResponse fills defaults for missing or unknown fields.
func normalizeResponse(r ledger.ResponseInput) ledger.ResponseInput {
	switch r.Disposition {
	case ledger.DispositionAccept, ledger.DispositionRebut, ledger.DispositionAcknowledge,
		ledger.DispositionPartialAccept, ledger.DispositionDefer:
	default:
		r.Disposition = ledger.DispositionAcknowledge
	}
	if r.Rationale == "" {
		r.Rationale = "no rationale provided"
	}
	return r
}

// extractField returns the value after the given prefix, case-insensitively.
func extractField(line, prefix string) (string, bool) {
	if len(line) < len(prefix) {
		return "", false
	}
	if !strings.EqualFold(line[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(prefix):]), true
}
