// Package workflow drives the per-report review state machine. Transitions
// are driven exclusively by the five reviewer actions; completed and rejected
// are terminal, while waiting_for_info and escalated can resume into
// in_progress via further reviewer action.
package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warden-mod/warden/moderation"
)

// The five reviewer actions.
const (
	ActionApprove         = "approve"
	ActionReject          = "reject"
	ActionEscalate        = "escalate"
	ActionRequestMoreInfo = "request_more_info"
	ActionReassign        = "reassign"
)

func ValidAction(action string) bool {
	switch action {
	case ActionApprove, ActionReject, ActionEscalate, ActionRequestMoreInfo, ActionReassign:
		return true
	}
	return false
}

// GenerateSteps builds the advisory step list for a report. Base steps are
// initial_review, content_analysis, decision; high/critical severity or an
// already-escalated report appends escalation_review. The step list never
// affects transition legality.
func GenerateSteps(severity moderation.Severity, escalated bool) []moderation.WorkflowStep {
	steps := []moderation.WorkflowStep{
		{Name: "initial_review", Status: moderation.StepPending},
		{Name: "content_analysis", Status: moderation.StepPending},
		{Name: "decision", Status: moderation.StepPending},
	}
	if severity.Rank() >= moderation.SeverityHigh.Rank() || escalated {
		steps = append(steps, moderation.WorkflowStep{Name: "escalation_review", Status: moderation.StepPending})
	}
	return steps
}

// New creates a workflow for a report, in pending state.
func New(reportID string, severity moderation.Severity, escalated bool, priority moderation.Priority, now time.Time) *moderation.ReviewWorkflow {
	return &moderation.ReviewWorkflow{
		ID:        uuid.NewString(),
		ReportID:  reportID,
		Status:    moderation.WorkflowPending,
		Priority:  priority,
		Type:      "report_review",
		Steps:     GenerateSteps(severity, escalated),
		History:   []moderation.HistoryEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Outcome describes the side effects the orchestrator must apply after a
// successful transition.
type Outcome struct {
	// New workflow status after the transition.
	Status moderation.WorkflowStatus
	// Report status to apply, empty if unchanged.
	ReportStatus moderation.ReportStatus
	// True when a Decision must be recorded (approve only).
	RecordDecision bool
	// True when the assignee was cleared and re-assignment is required.
	Unassigned bool
}

// Apply validates and performs one reviewer action, mutating the workflow in
// place and appending to its history. Terminal workflows reject every action
// and are left unchanged.
func Apply(w *moderation.ReviewWorkflow, action, performedBy, notes string, now time.Time) (*Outcome, error) {
	if !ValidAction(action) {
		return nil, fmt.Errorf("%w: %q", moderation.ErrUnknownAction, action)
	}
	if w.Status.Terminal() {
		return nil, fmt.Errorf("%w: workflow %s is %s, action %q not allowed", moderation.ErrTerminalWorkflow, w.ID, w.Status, action)
	}

	out := &Outcome{}
	switch action {
	case ActionApprove:
		w.Status = moderation.WorkflowCompleted
		w.CompletedAt = &now
		completeSteps(w)
		out.ReportStatus = moderation.ReportResolved
		out.RecordDecision = true
	case ActionReject:
		w.Status = moderation.WorkflowRejected
		w.CompletedAt = &now
		out.ReportStatus = moderation.ReportRejected
	case ActionEscalate:
		w.Status = moderation.WorkflowEscalated
		// clear assignee to force re-assignment
		w.AssignedTo = ""
		out.ReportStatus = moderation.ReportEscalated
		out.Unassigned = true
	case ActionRequestMoreInfo:
		w.Status = moderation.WorkflowWaitingForInfo
	case ActionReassign:
		w.AssignedTo = performedBy
		if w.Status == moderation.WorkflowWaitingForInfo || w.Status == moderation.WorkflowEscalated {
			w.Status = moderation.WorkflowInProgress
			out.ReportStatus = moderation.ReportUnderReview
		}
	}

	w.History = append(w.History, moderation.HistoryEntry{
		Action:      action,
		Timestamp:   now,
		PerformedBy: performedBy,
		Notes:       notes,
	})
	w.UpdatedAt = now
	out.Status = w.Status
	return out, nil
}

// Start moves a pending or escalated workflow to in_progress on assignment.
func Start(w *moderation.ReviewWorkflow, moderatorID string, now time.Time) {
	w.AssignedTo = moderatorID
	if w.Status == moderation.WorkflowPending || w.Status == moderation.WorkflowEscalated {
		w.Status = moderation.WorkflowInProgress
	}
	w.History = append(w.History, moderation.HistoryEntry{
		Action:      "assign",
		Timestamp:   now,
		PerformedBy: moderatorID,
	})
	w.UpdatedAt = now
}

func completeSteps(w *moderation.ReviewWorkflow) {
	for i := range w.Steps {
		if w.Steps[i].Status == moderation.StepPending {
			w.Steps[i].Status = moderation.StepCompleted
		}
	}
	w.CurrentStep = len(w.Steps)
}
