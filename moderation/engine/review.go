package engine

import (
	"context"
	"fmt"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/event"
	"github.com/warden-mod/warden/moderation/notifier"
	"github.com/warden-mod/warden/moderation/workflow"
)

// ProcessReviewAction applies one of the five reviewer actions to a
// workflow, under the engine lock, and carries out the resulting side
// effects: report status, decision recording, queue removal or escalation,
// notifications, events, and audit entries.
func (e *Engine) ProcessReviewAction(ctx context.Context, workflowID, action, performedBy, notes string) (*moderation.ReviewWorkflow, error) {
	e.lk.Lock()
	defer e.lk.Unlock()

	wf, err := e.Store.GetWorkflow(ctx, workflowID)
	if err != nil {
		reviewActionCount.WithLabelValues(action, "not_found").Inc()
		return nil, err
	}
	r, err := e.Store.GetReport(ctx, wf.ReportID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	out, err := workflow.Apply(wf, action, performedBy, notes, now)
	if err != nil {
		reviewActionCount.WithLabelValues(action, "rejected").Inc()
		return nil, err
	}

	if out.ReportStatus != "" {
		r.Status = out.ReportStatus
	}
	if action == workflow.ActionEscalate {
		r.Escalated = true
		r.AssignedTo = ""
	}
	if action == workflow.ActionReassign {
		r.AssignedTo = wf.AssignedTo
		// the workflow is authoritative here: move the queue assignment with it
		if item, ok := e.queueItemForContent(r.ContentID); ok {
			if _, err := e.Queue.Unassign(item.ID); err == nil {
				if _, _, err := e.Queue.Assign(item.ID, wf.AssignedTo, now); err != nil {
					e.Logger.Warn("assigning queue item", "contentID", r.ContentID, "err", err)
				}
			}
		}
	}
	if notes != "" {
		r.ResolutionNotes = append(r.ResolutionNotes, notes)
	}
	r.UpdatedAt = now

	if out.RecordDecision {
		decisionAction := r.RecommendedAction
		if decisionAction == "" {
			decisionAction = moderation.ActionRemove
		}
		d, derr := e.Ledger.RecordDecision(ctx, r.ContentID, decisionAction, r.Reason, 1.0, performedBy, "")
		if derr != nil {
			return nil, fmt.Errorf("recording decision: %w", derr)
		}
		e.Queue.RemoveByContent(r.ContentID)
		e.publish(ctx, &event.DecisionMade{Decision: *d})
		e.Audit.LogAction(ctx, "decision_recorded", map[string]any{
			"decisionID": d.ID, "contentID": d.ContentID, "action": string(d.Action), "moderatorId": performedBy,
		})
		e.notify(notifier.EventResolution, r.ContentID, fmt.Sprintf("report %s resolved: %s", r.ID, decisionAction))
	}

	switch action {
	case workflow.ActionReject:
		e.Queue.RemoveByContent(r.ContentID)
	case workflow.ActionEscalate:
		if item, ok := e.queueItemForContent(r.ContentID); ok {
			if _, err := e.Queue.Escalate(item.ID, notes); err != nil {
				e.Logger.Warn("escalating queue item", "contentID", r.ContentID, "err", err)
			}
			if out.Unassigned {
				// the item re-enters the assignable pool with the workflow
				if _, err := e.Queue.Unassign(item.ID); err != nil {
					e.Logger.Warn("unassigning queue item", "contentID", r.ContentID, "err", err)
				}
			}
		}
		e.publish(ctx, &event.ReportEscalated{Report: *r, Automatic: false, Reason: notes})
		e.notify(notifier.EventEscalation, r.ID, fmt.Sprintf("report %s escalated by %s: %s", r.ID, performedBy, notes))
	case workflow.ActionRequestMoreInfo:
		e.notify(notifier.EventReport, r.ReporterID, fmt.Sprintf("more information requested on your report %s", r.ID))
	}

	if err := e.Store.PutWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	if err := e.Store.PutReport(ctx, r); err != nil {
		return nil, err
	}

	reviewActionCount.WithLabelValues(action, "ok").Inc()
	e.publish(ctx, &event.WorkflowTransitioned{Workflow: *wf, Action: action, By: performedBy})
	return wf, nil
}

// GetWorkflow fetches one workflow by id.
func (e *Engine) GetWorkflow(ctx context.Context, id string) (*moderation.ReviewWorkflow, error) {
	return e.Store.GetWorkflow(ctx, id)
}

func (e *Engine) queueItemForContent(contentID string) (*moderation.QueueItem, bool) {
	for _, item := range e.Queue.List() {
		if item.ContentID == contentID {
			return item, true
		}
	}
	return nil, false
}

// GetQueueItem fetches a queue item by id.
func (e *Engine) GetQueueItem(ctx context.Context, id string) (*moderation.QueueItem, error) {
	return e.Queue.Get(id)
}

// ListQueue returns the queue in review order.
func (e *Engine) ListQueue(ctx context.Context) []*moderation.QueueItem {
	return e.Queue.List()
}

// AssignQueueItem assigns a queue item to a moderator and starts its
// workflow. Assigning an already-assigned item is a no-op returning the
// existing assignment.
func (e *Engine) AssignQueueItem(ctx context.Context, itemID, moderatorID string) (*moderation.QueueItem, error) {
	if moderatorID == "" {
		return nil, moderation.MissingFieldError("moderatorId")
	}
	e.lk.Lock()
	defer e.lk.Unlock()

	now := e.now()
	item, assigned, err := e.Queue.Assign(itemID, moderatorID, now)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return item, nil
	}

	if item.WorkflowID != "" {
		wf, err := e.Store.GetWorkflow(ctx, item.WorkflowID)
		if err == nil {
			workflow.Start(wf, moderatorID, now)
			if err := e.Store.PutWorkflow(ctx, wf); err != nil {
				return nil, err
			}
			if r, rerr := e.Store.GetReport(ctx, wf.ReportID); rerr == nil {
				r.AssignedTo = moderatorID
				r.Status = moderation.ReportUnderReview
				r.UpdatedAt = now
				if err := e.Store.PutReport(ctx, r); err != nil {
					return nil, err
				}
			}
		}
	}
	e.Audit.LogAction(ctx, "queue_item_assigned", map[string]any{"itemID": itemID, "moderatorId": moderatorID})
	return item, nil
}

// EscalateQueueItem promotes a queue item one priority level and raises the
// backing report's escalation flag.
func (e *Engine) EscalateQueueItem(ctx context.Context, itemID, reason string) (*moderation.QueueItem, error) {
	e.lk.Lock()
	defer e.lk.Unlock()

	item, err := e.Queue.Escalate(itemID, reason)
	if err != nil {
		return nil, err
	}
	if item.ReportID != "" {
		if r, rerr := e.Store.GetReport(ctx, item.ReportID); rerr == nil {
			r.Escalated = true
			r.Priority = item.Priority
			r.UpdatedAt = e.now()
			if err := e.Store.PutReport(ctx, r); err != nil {
				return nil, err
			}
			e.publish(ctx, &event.ReportEscalated{Report: *r, Automatic: false, Reason: reason})
		}
	}
	e.notify(notifier.EventEscalation, item.ContentID, fmt.Sprintf("queue item %s escalated to %s: %s", itemID, item.Priority, reason))
	return item, nil
}

// CancelQueueItem removes a not-yet-assigned item from the queue. Items
// under review cannot be cancelled.
func (e *Engine) CancelQueueItem(ctx context.Context, itemID string) error {
	e.lk.Lock()
	defer e.lk.Unlock()
	if err := e.Queue.Cancel(itemID); err != nil {
		return err
	}
	e.Audit.LogAction(ctx, "queue_item_cancelled", map[string]any{"itemID": itemID})
	return nil
}
