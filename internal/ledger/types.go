// Package ledger is the append-only store of challenge records and their
// resolutions for a single proposal under review. Critiques are immutable
// once filed except for their status; responses are validated at the ledger
// boundary so an invalid resolution of a critical critique is never recorded.
package ledger

import (
	"fmt"
	"time"
)

// Category tags the aspect of the proposal a critique targets.
type Category string

const (
	CategoryLogic        Category = "logic"
	CategoryEvidence     Category = "evidence"
	CategoryCompleteness Category = "completeness"
	CategoryRisk         Category = "risk"
	CategoryCompliance   Category = "compliance"
	CategoryFeasibility  Category = "feasibility"
	CategoryClarity      Category = "clarity"
	CategoryCompetitive  Category = "competitive"
)

// Categories lists all valid critique categories.
func Categories() []Category {
	return []Category{
		CategoryLogic, CategoryEvidence, CategoryCompleteness, CategoryRisk,
		CategoryCompliance, CategoryFeasibility, CategoryClarity, CategoryCompetitive,
	}
}

// ValidCategory reports whether c is one of the fixed tag set.
func ValidCategory(c Category) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Severity grades how serious a critique is.
type Severity string

const (
	SeverityCritical    Severity = "critical"
	SeverityMajor       Severity = "major"
	SeverityMinor       Severity = "minor"
	SeverityObservation Severity = "observation"
)

// Status tracks the lifecycle of a critique.
type Status string

const (
	StatusOpen      Status = "open"
	StatusResolved  Status = "resolved"
	StatusEscalated Status = "escalated"
)

// Disposition is the proposer's stance toward a critique.
type Disposition string

const (
	DispositionAccept        Disposition = "accept"
	DispositionRebut         Disposition = "rebut"
	DispositionAcknowledge   Disposition = "acknowledge"
	DispositionPartialAccept Disposition = "partial_accept"
	DispositionDefer         Disposition = "defer"
)

// Critique is a structured challenge filed against a specific piece of
// proposed content. Owned by the round that created it; immutable once
// written except for Status.
type Critique struct {
	ID        string    `json:"id"`
	Round     int       `json:"round"`
	TargetRef string    `json:"target_ref"`
	Category  Category  `json:"category"`
	Severity  Severity  `json:"severity"`
	Status    Status    `json:"status"`
	Argument  string    `json:"argument"`
	Evidence  string    `json:"evidence,omitempty"`
	Remedy    string    `json:"suggested_remedy,omitempty"`
	FiledBy   string    `json:"filed_by,omitempty"`
	FiledAt   time.Time `json:"filed_at"`
}

// Response records a proposer's disposition toward one critique.
type Response struct {
	ID           string      `json:"id"`
	CritiqueID   string      `json:"critique_id"`
	Round        int         `json:"round"`
	Disposition  Disposition `json:"disposition"`
	Rationale    string      `json:"rationale"`
	Evidence     string      `json:"evidence,omitempty"`
	ResidualRisk string      `json:"residual_risk,omitempty"`
	FiledBy      string      `json:"filed_by,omitempty"`
	FiledAt      time.Time   `json:"filed_at"`
}

// Exchange pairs a critique with its latest response, if any.
type Exchange struct {
	Critique *Critique `json:"critique"`
	Response *Response `json:"response,omitempty"`
}

// IsResolved reports whether a response is present for the critique.
func (e Exchange) IsResolved() bool {
	return e.Response != nil
}

// Outcome returns the response disposition when resolved, empty otherwise.
func (e Exchange) Outcome() Disposition {
	if e.Response == nil {
		return ""
	}
	return e.Response.Disposition
}

// Summary holds on-demand aggregates over the ledger.
type Summary struct {
	Total            int              `json:"total"`
	Resolved         int              `json:"resolved"`
	CountsBySeverity map[Severity]int `json:"counts_by_severity"`
	// Blocking lists unresolved critical critiques. Consensus is impossible
	// while this set is non-empty.
	Blocking []*Critique `json:"blocking"`
}

// InvalidResolutionError rejects a response that would resolve a critical
// critique through a disallowed disposition.
type InvalidResolutionError struct {
	CritiqueID  string
	Disposition Disposition
	Reason      string
}

func (e *InvalidResolutionError) Error() string {
	return fmt.Sprintf("invalid resolution of critical critique %s via %s: %s",
		e.CritiqueID, e.Disposition, e.Reason)
}
