// Package store is the durable repository for the moderation pipeline's
// records: analyses, reports, workflows, decisions, appeals, and emitted
// events. The pipeline's invariants (1:1 report to workflow, queue ordering)
// must hold regardless of which backing implementation is used.
package store

import (
	"context"
	"time"

	"github.com/warden-mod/warden/moderation"
)

// ReportQuery filters ListReports. Zero values mean "any".
type ReportQuery struct {
	Status      moderation.ReportStatus
	ContentID   string
	ContentType moderation.ContentType
	ReporterID  string
	AssignedTo  string
	Since       time.Time
	Until       time.Time
}

// EventRecord is the persisted form of an emitted pipeline event, retained
// for audit and analytics.
type EventRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store interface {
	PutAnalysis(ctx context.Context, a *moderation.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*moderation.Analysis, error)
	// LatestAnalysisByContent returns the most recent analysis for a content
	// key, or ErrNotFound.
	LatestAnalysisByContent(ctx context.Context, contentID string, ct moderation.ContentType) (*moderation.Analysis, error)

	PutReport(ctx context.Context, r *moderation.Report) error
	GetReport(ctx context.Context, id string) (*moderation.Report, error)
	ListReports(ctx context.Context, q ReportQuery) ([]*moderation.Report, error)
	// ReportsByContent returns all reports for a content key, oldest first.
	ReportsByContent(ctx context.Context, contentID string, ct moderation.ContentType) ([]*moderation.Report, error)

	PutWorkflow(ctx context.Context, w *moderation.ReviewWorkflow) error
	GetWorkflow(ctx context.Context, id string) (*moderation.ReviewWorkflow, error)
	GetWorkflowByReport(ctx context.Context, reportID string) (*moderation.ReviewWorkflow, error)
	ListWorkflows(ctx context.Context, since, until time.Time) ([]*moderation.ReviewWorkflow, error)

	PutDecision(ctx context.Context, d *moderation.Decision) error
	GetDecision(ctx context.Context, id string) (*moderation.Decision, error)
	DecisionsByContent(ctx context.Context, contentID string) ([]*moderation.Decision, error)
	ListDecisions(ctx context.Context, since, until time.Time) ([]*moderation.Decision, error)

	PutAppeal(ctx context.Context, a *moderation.Appeal) error
	GetAppeal(ctx context.Context, id string) (*moderation.Appeal, error)
	ListAppeals(ctx context.Context, since, until time.Time) ([]*moderation.Appeal, error)

	AppendEvent(ctx context.Context, ev *EventRecord) error
	ListEvents(ctx context.Context, since, until time.Time) ([]*EventRecord, error)
}

// inRange treats zero bounds as open.
func inRange(t, since, until time.Time) bool {
	if !since.IsZero() && t.Before(since) {
		return false
	}
	if !until.IsZero() && t.After(until) {
		return false
	}
	return true
}
