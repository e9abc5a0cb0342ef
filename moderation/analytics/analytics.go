// Package analytics derives statistics from moderation history. Every
// computation is a deterministic pure function of the record sets passed in,
// with no hidden state, so formulas stay independently testable.
package analytics

import (
	"time"

	"github.com/warden-mod/warden/moderation"
)

type Stats struct {
	Total      int `json:"total"`
	ByStatus   map[moderation.ReportStatus]int `json:"byStatus"`
	BySeverity map[moderation.Severity]int     `json:"bySeverity"`
	ByType     map[string]int                  `json:"byType"`
	ByCategory map[string]int                  `json:"byCategory"`

	EscalationRate float64 `json:"escalationRate"`
	RejectionRate  float64 `json:"rejectionRate"`
	// Mean of workflow.completedAt - report.createdAt over resolved reports
	// only; unresolved reports are excluded, not counted as zero.
	AverageResolutionTime time.Duration `json:"averageResolutionTime"`
	ResolvedCount         int           `json:"resolvedCount"`
	DecisionCount         int           `json:"decisionCount"`
	AppealCount           int           `json:"appealCount"`
}

// Compute rolls up stats over the given reports and their workflows.
// Workflows are matched to reports by report id.
func Compute(reports []*moderation.Report, workflows []*moderation.ReviewWorkflow, decisions []*moderation.Decision, appeals []*moderation.Appeal) *Stats {
	st := &Stats{
		ByStatus:   make(map[moderation.ReportStatus]int),
		BySeverity: make(map[moderation.Severity]int),
		ByType:     make(map[string]int),
		ByCategory: make(map[string]int),
	}

	byReport := make(map[string]*moderation.ReviewWorkflow, len(workflows))
	for _, w := range workflows {
		byReport[w.ReportID] = w
	}

	var escalated, rejected int
	var resolutionTotal time.Duration
	for _, r := range reports {
		st.Total++
		st.ByStatus[r.Status]++
		st.BySeverity[r.Severity]++
		if r.Type != "" {
			st.ByType[r.Type]++
		}
		if r.Category != "" {
			st.ByCategory[r.Category]++
		}
		if r.Escalated || r.Status == moderation.ReportEscalated {
			escalated++
		}
		if r.Status == moderation.ReportRejected {
			rejected++
		}
		if r.Status == moderation.ReportResolved {
			if w := byReport[r.ID]; w != nil && w.CompletedAt != nil {
				resolutionTotal += w.CompletedAt.Sub(r.CreatedAt)
				st.ResolvedCount++
			}
		}
	}

	if st.Total > 0 {
		st.EscalationRate = float64(escalated) / float64(st.Total)
		st.RejectionRate = float64(rejected) / float64(st.Total)
	}
	if st.ResolvedCount > 0 {
		st.AverageResolutionTime = resolutionTotal / time.Duration(st.ResolvedCount)
	}
	st.DecisionCount = len(decisions)
	st.AppealCount = len(appeals)
	return st
}

// ReputationScore computes a reporter's trust metric in [0,100] from all of
// their reports:
//
//	base    = approved/total * 100
//	penalty = rejected/total * 30
//	bonus   = escalated/total * 10, plus a flat +10 once total >= 10
//
// A reporter with zero reports gets a neutral 50.
func ReputationScore(reports []*moderation.Report) float64 {
	total := len(reports)
	if total == 0 {
		return 50
	}
	var approved, rejected, escalated int
	for _, r := range reports {
		switch r.Status {
		case moderation.ReportResolved:
			approved++
		case moderation.ReportRejected:
			rejected++
		}
		if r.Escalated || r.Status == moderation.ReportEscalated {
			escalated++
		}
	}
	n := float64(total)
	score := float64(approved)/n*100 - float64(rejected)/n*30 + float64(escalated)/n*10
	if total >= 10 {
		score += 10
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ModeratorWorkload counts open assignments per moderator: reports currently
// assigned and not in a terminal status. Feeds workload-aware assignment.
func ModeratorWorkload(reports []*moderation.Report) map[string]int {
	out := make(map[string]int)
	for _, r := range reports {
		if r.AssignedTo == "" {
			continue
		}
		if r.Status == moderation.ReportResolved || r.Status == moderation.ReportRejected {
			continue
		}
		out[r.AssignedTo]++
	}
	return out
}
