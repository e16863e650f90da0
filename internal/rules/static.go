package rules

import (
	"context"
	"strings"
)

// KeywordRule flags content that names a regulated topic without also
// naming the expected treatment for it.
type KeywordRule struct {
	ID       string
	Triggers []string // any of these present fires the rule
	Expects  []string // any of these present satisfies it
	// RiskLevel reported when the rule fires unsatisfied.
	RiskLevel      string
	Finding        string
	Recommendation string
}

// StaticEngine evaluates a fixed keyword rule table in-process, for offline
// use and tests. Remote engines implement the same interface over HTTP.
type StaticEngine struct {
	rules []KeywordRule
}

// NewStaticEngine creates an engine over the given rule table. With no rules
// it falls back to the default procurement checklist.
func NewStaticEngine(rules []KeywordRule) *StaticEngine {
	if len(rules) == 0 {
		rules = DefaultProcurementRules()
	}
	return &StaticEngine{rules: rules}
}

// DefaultProcurementRules returns a small built-in checklist covering the
// most common procurement compliance gaps.
func DefaultProcurementRules() []KeywordRule {
	return []KeywordRule{
		{
			ID:             "CYBER-52.204-21",
			Triggers:       []string{"federal contract information", "fci", "government data"},
			Expects:        []string{"52.204-21", "basic safeguarding", "nist 800-171"},
			RiskLevel:      "high",
			Finding:        "content handles government data without citing basic safeguarding controls",
			Recommendation: "reference FAR 52.204-21 safeguarding controls or NIST 800-171 alignment",
		},
		{
			ID:             "LABOR-SCA",
			Triggers:       []string{"service employees", "hourly staff", "labor categories"},
			Expects:        []string{"service contract act", "wage determination", "sca"},
			RiskLevel:      "medium",
			Finding:        "labor discussion does not address Service Contract Act coverage",
			Recommendation: "state the applicable wage determination and SCA compliance approach",
		},
		{
			ID:             "SUBK-LIMITS",
			Triggers:       []string{"subcontract", "teaming partner", "teammate"},
			Expects:        []string{"limitations on subcontracting", "52.219-14", "workshare"},
			RiskLevel:      "medium",
			Finding:        "subcontracting is proposed without addressing workshare limits",
			Recommendation: "document prime workshare against the limitations on subcontracting clause",
		},
		{
			ID:             "OCI-DISCLOSURE",
			Triggers:       []string{"incumbent", "prior task order", "current contract"},
			Expects:        []string{"organizational conflict", "oci", "mitigation plan"},
			RiskLevel:      "high",
			Finding:        "incumbency is claimed without an organizational conflict of interest statement",
			Recommendation: "add an OCI analysis or mitigation plan for the incumbent position",
		},
	}
}

// Check evaluates the content against every rule. Rules whose triggers do
// not appear report a pass with no findings.
func (e *StaticEngine) Check(ctx context.Context, req CheckRequest) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := strings.ToLower(req.Content)
	out := make([]Finding, 0, len(e.rules))

	for _, rule := range e.rules {
		f := Finding{RuleID: rule.ID, Status: StatusPass, RiskLevel: "low"}

		if containsAny(content, rule.Triggers) && !containsAny(content, rule.Expects) {
			f.Status = StatusFlag
			f.RiskLevel = rule.RiskLevel
			f.Findings = []string{rule.Finding}
			f.Recommendations = []string{rule.Recommendation}
		}
		out = append(out, f)
	}

	return out, nil
}

func containsAny(content string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(content, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
