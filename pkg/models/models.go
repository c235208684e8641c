// Package models defines the shared domain types for the AI-Mammoth analysis
// service: the input bundle, per-stage results, and the aggregate report
// returned to API consumers.
package models

import (
	"strings"
	"time"
)

// ── Analysis Input ───────────────────────────────────────────

// AnalysisBundle is the immutable input for one orchestration run.
// AnalyzeSecurity is a tri-state: nil means the caller did not choose and
// the configured default applies.
type AnalysisBundle struct {
	Requirements    string `json:"requirements"`
	Code            string `json:"code"`
	TestCases       string `json:"test_cases"`
	Documentation   string `json:"documentation"`
	AnalyzeSecurity *bool  `json:"analyze_security,omitempty"`
}

// IsEmpty reports whether the bundle carries no analyzable material at all.
func (b *AnalysisBundle) IsEmpty() bool {
	return strings.TrimSpace(b.Requirements) == "" &&
		strings.TrimSpace(b.Code) == "" &&
		strings.TrimSpace(b.TestCases) == "" &&
		strings.TrimSpace(b.Documentation) == ""
}

// ── Severity ─────────────────────────────────────────────────

type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// ── Report Building Blocks ───────────────────────────────────

// Bug is one confirmed mismatch between requirements and implementation.
type Bug struct {
	Description     string   `json:"description"`
	Cause           string   `json:"cause,omitempty"`
	Severity        Severity `json:"severity"`
	Location        string   `json:"location,omitempty"`
	Impact          string   `json:"impact,omitempty"`
	Recommendations string   `json:"recommendations,omitempty"`
}

// Recommendation is an improvement suggestion that is not a bug.
type Recommendation struct {
	Text     string `json:"text"`
	Priority string `json:"priority,omitempty"`
	Type     string `json:"type,omitempty"`
}

// SecurityFinding is one vulnerability surfaced by the security stage.
type SecurityFinding struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
	CodeSnippet string   `json:"code_snippet,omitempty"`
	Mitigation  string   `json:"mitigation,omitempty"`
	CWEID       string   `json:"cwe_id,omitempty"`
}

// ── Stage Diagnostics ────────────────────────────────────────

// StageStatus describes how a single pipeline stage concluded.
type StageStatus string

const (
	// StageOK means the stage returned clean structured data.
	StageOK StageStatus = "ok"
	// StageDegraded means the stage returned usable prose instead of the
	// requested structured form.
	StageDegraded StageStatus = "degraded"
	// StageFailed means the stage produced nothing usable.
	StageFailed StageStatus = "failed"
)

// StageResult is the append-only record of one pipeline stage.
type StageResult struct {
	Stage    string        `json:"stage"`
	Status   StageStatus   `json:"status"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ms"`
	Attempts int           `json:"attempts"`
}

// Succeeded reports whether the stage produced structured output.
func (r StageResult) Succeeded() bool { return r.Status == StageOK }

// Usable reports whether downstream stages can read anything from this one.
func (r StageResult) Usable() bool { return r.Status != StageFailed }

// ── Aggregate Report ─────────────────────────────────────────

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
)

// AggregateReport is the final output of one orchestration run. It is always
// fully populated: a run where every stage failed still yields a report whose
// narrative says the analysis could not be completed.
type AggregateReport struct {
	RunID            string            `json:"run_id"`
	FinalReport      string            `json:"final_report"`
	BugsCount        int               `json:"bugs_count"`
	BugsExplanations string            `json:"bugs_explanations,omitempty"`
	DetailedBugs     []Bug             `json:"detailed_bugs"`
	Recommendations  []Recommendation  `json:"recommendations,omitempty"`
	SecurityFindings []SecurityFinding `json:"security_findings,omitempty"`
	Stages           []StageResult     `json:"stages"`
	StartedAt        time.Time         `json:"started_at"`
	Elapsed          time.Duration     `json:"elapsed_ms"`
}

// Degraded reports whether any stage fell back to prose or failed outright.
func (r *AggregateReport) Degraded() bool {
	for _, s := range r.Stages {
		if s.Status != StageOK {
			return true
		}
	}
	return false
}

// AnalysisRun is the stored record of a run, kept in the run history store.
type AnalysisRun struct {
	ID         string           `json:"id"`
	Status     RunStatus        `json:"status"`
	Bundle     *AnalysisBundle  `json:"bundle,omitempty"`
	Report     *AggregateReport `json:"report,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}
