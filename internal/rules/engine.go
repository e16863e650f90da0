// Package rules checks proposal content against domain rule tables, such as
// procurement regulation keyword checklists. Findings are advisory: the
// proposer uses them to seed risk and critique candidates, never as an
// authoritative verdict.
package rules

import "context"

// Status of a single rule evaluation.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFlag    Status = "flag"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// CheckRequest asks the engine to evaluate content against its rule set.
// Facts carry structured context (agency, contract vehicle, set-aside, ...)
// that rules may condition on.
type CheckRequest struct {
	Content string            `json:"content"`
	Facts   map[string]string `json:"facts,omitempty"`
}

// Finding is one rule's verdict on the content.
type Finding struct {
	RuleID          string   `json:"rule_id"`
	Status          Status   `json:"status"`
	RiskLevel       string   `json:"risk_level"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
}

// Engine evaluates content against a rule set.
type Engine interface {
	Check(ctx context.Context, req CheckRequest) ([]Finding, error)
}
