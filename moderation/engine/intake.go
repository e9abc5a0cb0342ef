package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/event"
	"github.com/warden-mod/warden/moderation/notifier"
	"github.com/warden-mod/warden/moderation/store"
	"github.com/warden-mod/warden/moderation/workflow"
)

// ReportInput is the submission payload for a user report.
type ReportInput struct {
	ContentID   string                 `json:"contentId"`
	Content     string                 `json:"content"`
	ContentType moderation.ContentType `json:"contentType"`
	ReporterID  string                 `json:"reporterId"`
	Reason      string                 `json:"reason"`
	Type        string                 `json:"type"`
	Severity    moderation.Severity    `json:"severity,omitempty"`
	Category    string                 `json:"category,omitempty"`
	Evidence    []string               `json:"evidence,omitempty"`
}

func (in *ReportInput) validate() error {
	if in.ContentID == "" && in.Content == "" {
		return moderation.MissingFieldError("content")
	}
	if in.ContentType == "" {
		return moderation.MissingFieldError("contentType")
	}
	if in.ReporterID == "" {
		return moderation.MissingFieldError("reporterId")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return moderation.MissingFieldError("reason")
	}
	return nil
}

// SubmitReport validates and records a user report, links duplicates on the
// same content, applies the auto-escalation threshold, creates the 1:1
// review workflow, queues the report for review, and (optionally)
// auto-assigns a moderator. Validation failures are synchronous and create
// no partial state.
func (e *Engine) SubmitReport(ctx context.Context, in ReportInput) (*moderation.Report, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	e.lk.Lock()
	defer e.lk.Unlock()
	cfg := e.cfg
	if !cfg.Enabled {
		return nil, moderation.ErrDisabled
	}

	now := e.now()
	contentID := in.ContentID
	if contentID == "" {
		contentID = newID()
	}
	severity := in.Severity
	if severity == "" {
		severity = moderation.SeverityMedium
	}

	r := &moderation.Report{
		ID:          newID(),
		ContentID:   contentID,
		ContentType: in.ContentType,
		ReporterID:  in.ReporterID,
		Reason:      in.Reason,
		Type:        in.Type,
		Severity:    severity,
		Category:    in.Category,
		Status:      moderation.ReportPending,
		Priority:    priorityForSeverity(severity),
		Evidence:    in.Evidence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// duplicate detection: existing non-rejected reports on the same content
	existing, err := e.Store.ReportsByContent(ctx, contentID, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("searching related reports: %w", err)
	}
	var related []*moderation.Report
	for _, prev := range existing {
		if prev.Status != moderation.ReportRejected {
			related = append(related, prev)
		}
	}

	escalateAll := false
	if len(related) > 0 {
		primary := related[0]
		if primary.PrimaryReport != "" {
			// walk back to the true primary if this was itself a duplicate
			if p, err := e.Store.GetReport(ctx, primary.PrimaryReport); err == nil {
				primary = p
			}
		}
		r.PrimaryReport = primary.ID
		r.RelatedReports = []string{primary.ID}
		primary.RelatedReports = append(primary.RelatedReports, r.ID)
		primary.UpdatedAt = now
		if len(related)+1 >= cfg.escalationThreshold() {
			escalateAll = true
		}
		if escalateAll {
			// automatic severity escalation, distinct from the reviewer
			// escalate action: Escalated stays false
			r.Severity = moderation.SeverityHigh
			r.Priority = moderation.PriorityHigh
			for _, lr := range related {
				lr.Severity = moderation.SeverityHigh
				lr.Priority = moderation.PriorityHigh
				lr.UpdatedAt = now
				if err := e.Store.PutReport(ctx, lr); err != nil {
					return nil, fmt.Errorf("updating related report: %w", err)
				}
				e.Queue.PromoteContent(lr.ContentID, moderation.PriorityHigh)
			}
		}
		// the walked-back primary is not always in related; save it either way
		if err := e.Store.PutReport(ctx, primary); err != nil {
			return nil, fmt.Errorf("updating primary report: %w", err)
		}
	}

	// attach the latest analysis if one exists; analyze inline when raw
	// content was submitted with the report
	if in.Content != "" {
		e.lk.Unlock()
		a, aerr := e.AnalyzeContent(ctx, contentID, in.Content, in.ContentType)
		e.lk.Lock()
		if aerr == nil {
			r.AnalysisID = a.ID
		}
	} else if a, err := e.Store.LatestAnalysisByContent(ctx, contentID, in.ContentType); err == nil {
		r.AnalysisID = a.ID
	}

	// 1:1 workflow, created synchronously
	wf := workflow.New(r.ID, r.Severity, r.Escalated, r.Priority, now)
	r.WorkflowID = wf.ID
	if err := e.Store.PutWorkflow(ctx, wf); err != nil {
		return nil, fmt.Errorf("creating workflow: %w", err)
	}
	if err := e.Store.PutReport(ctx, r); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}

	item := &moderation.QueueItem{
		ID:          newID(),
		ContentID:   r.ContentID,
		ContentType: r.ContentType,
		AnalysisID:  r.AnalysisID,
		ReportID:    r.ID,
		WorkflowID:  wf.ID,
		Priority:    r.Priority,
		Status:      moderation.QueueItemPending,
		CreatedAt:   now,
	}
	if err := e.Queue.Push(item); err != nil {
		// an item for this content is already queued (earlier report)
		e.Logger.Debug("content already queued", "contentID", r.ContentID)
	} else if cfg.AutoAssign && len(cfg.Moderators) > 0 {
		if m := e.Assigner.Next(cfg.Moderators, item); m != "" {
			if _, _, err := e.Queue.Assign(item.ID, m, now); err == nil {
				workflow.Start(wf, m, now)
				r.AssignedTo = m
				r.Status = moderation.ReportUnderReview
				r.UpdatedAt = now
				if err := e.Store.PutWorkflow(ctx, wf); err != nil {
					return nil, err
				}
				if err := e.Store.PutReport(ctx, r); err != nil {
					return nil, err
				}
			}
		}
	}

	reportCount.WithLabelValues(string(r.Severity)).Inc()
	e.publish(ctx, &event.ReportSubmitted{Report: *r})
	if escalateAll {
		e.publish(ctx, &event.ReportEscalated{Report: *r, Automatic: true, Reason: "duplicate report threshold reached"})
		e.notify(notifier.EventEscalation, r.ContentID, fmt.Sprintf("content %s reported %d times, auto-escalated to high", r.ContentID, len(related)+1))
	}
	e.notify(notifier.EventReport, r.ID, fmt.Sprintf("new %s report on content %s: %s", r.Type, r.ContentID, r.Reason))
	return r, nil
}

// ReportPatch is the narrow set of reviewer-editable report fields.
type ReportPatch struct {
	RecommendedAction moderation.Action `json:"recommendedAction,omitempty"`
	ResolutionNote    string            `json:"resolutionNote,omitempty"`
	Category          string            `json:"category,omitempty"`
}

// UpdateReport applies a reviewer patch to a report.
func (e *Engine) UpdateReport(ctx context.Context, id string, patch ReportPatch) (*moderation.Report, error) {
	e.lk.Lock()
	defer e.lk.Unlock()
	r, err := e.Store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.RecommendedAction != "" {
		r.RecommendedAction = patch.RecommendedAction
	}
	if patch.ResolutionNote != "" {
		r.ResolutionNotes = append(r.ResolutionNotes, patch.ResolutionNote)
	}
	if patch.Category != "" {
		r.Category = patch.Category
	}
	r.UpdatedAt = e.now()
	if err := e.Store.PutReport(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetReport fetches one report by id.
func (e *Engine) GetReport(ctx context.Context, id string) (*moderation.Report, error) {
	return e.Store.GetReport(ctx, id)
}

// ListReports queries reports.
func (e *Engine) ListReports(ctx context.Context, q store.ReportQuery) ([]*moderation.Report, error) {
	return e.Store.ListReports(ctx, q)
}
