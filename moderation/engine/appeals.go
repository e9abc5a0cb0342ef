package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/event"
	"github.com/warden-mod/warden/moderation/notifier"
	"github.com/warden-mod/warden/moderation/workflow"
)

// SubmitAppeal opens an appeal against a recorded decision.
func (e *Engine) SubmitAppeal(ctx context.Context, decisionID, appellantID, reason string, evidence []string) (*moderation.Appeal, error) {
	a, err := e.Ledger.SubmitAppeal(ctx, decisionID, appellantID, reason, evidence)
	if err != nil {
		return nil, err
	}
	e.Audit.LogAction(ctx, "appeal_submitted", map[string]any{"appealID": a.ID, "decisionID": decisionID, "appellantId": appellantID})
	e.publish(ctx, &event.AppealSubmitted{Appeal: *a})
	e.notify(notifier.EventAppeal, a.ID, fmt.Sprintf("appeal opened against decision %s", decisionID))
	return a, nil
}

// ProcessAppealAction resolves an appeal with approve or reject, the same
// action vocabulary reviewers use on reports. Approving records a new
// decision superseding the original; the original is never deleted.
func (e *Engine) ProcessAppealAction(ctx context.Context, appealID, action, moderatorID, notes string) (*moderation.Appeal, error) {
	var approve bool
	switch action {
	case workflow.ActionApprove:
		approve = true
	case workflow.ActionReject:
		approve = false
	default:
		return nil, fmt.Errorf("%w: %q (appeals accept approve or reject)", moderation.ErrUnknownAction, action)
	}

	e.lk.Lock()
	defer e.lk.Unlock()

	a, superseding, err := e.Ledger.ResolveAppeal(ctx, appealID, approve, moderatorID, notes)
	if err != nil {
		return nil, err
	}
	e.Audit.LogAction(ctx, "appeal_resolved", map[string]any{"appealID": a.ID, "status": string(a.Status), "moderatorId": moderatorID})
	e.publish(ctx, &event.AppealResolved{Appeal: *a, Superseding: superseding})
	if superseding != nil {
		e.publish(ctx, &event.DecisionMade{Decision: *superseding})
	}
	e.notify(notifier.EventAppeal, a.AppellantID, fmt.Sprintf("your appeal %s was %s", a.ID, a.Status))
	return a, nil
}

// GetAppeal fetches one appeal by id.
func (e *Engine) GetAppeal(ctx context.Context, id string) (*moderation.Appeal, error) {
	return e.Store.GetAppeal(ctx, id)
}

// ListAppeals returns appeals in a time range; zero bounds are open.
func (e *Engine) ListAppeals(ctx context.Context, since, until time.Time) ([]*moderation.Appeal, error) {
	return e.Store.ListAppeals(ctx, since, until)
}

// GetDecision fetches one decision by id.
func (e *Engine) GetDecision(ctx context.Context, id string) (*moderation.Decision, error) {
	return e.Store.GetDecision(ctx, id)
}
