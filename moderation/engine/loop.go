package engine

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/workflow"
)

// ErrQueueEmpty signals that ProcessNextQueueItem found nothing to do.
var ErrQueueEmpty = errors.New("review queue is empty")

// RunQueueLoop drains the review queue sequentially until the context is
// cancelled. Only items whose analysis produced a decisive action are
// auto-decided; everything else stays queued for humans. The limiter is the
// inter-item yield that keeps the loop from starving other work.
func (e *Engine) RunQueueLoop(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Limit(10), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if !e.GetConfig().AutoModeration {
			continue
		}
		if err := e.ProcessNextQueueItem(ctx); err != nil {
			if errors.Is(err, ErrQueueEmpty) {
				continue
			}
			e.Logger.Error("auto-moderation step failed", "err", err)
		}
	}
}

// ProcessNextQueueItem pops the highest-priority pending item and, when its
// analysis recommends a decisive action, records the decision as "automod".
// Popping and decisioning run under the engine lock, so concurrent escalate
// or assign calls on the same item either land before the pop (and are
// honored) or observe the item gone.
func (e *Engine) ProcessNextQueueItem(ctx context.Context) error {
	e.lk.Lock()
	defer e.lk.Unlock()

	item, ok := e.Queue.Peek()
	if !ok {
		return ErrQueueEmpty
	}
	if item.AssignedTo != "" {
		// under human review; auto-moderation leaves it alone
		return ErrQueueEmpty
	}

	if item.AnalysisID == "" {
		// no automated signal at all; a human has to look
		return ErrQueueEmpty
	}
	var action moderation.Action = moderation.ActionAllow
	if a, err := e.Store.GetAnalysis(ctx, item.AnalysisID); err == nil {
		action = a.Action
	}
	if action != moderation.ActionRemove && action != moderation.ActionBan && action != moderation.ActionAllow {
		// ambiguous score: keep it queued for a human
		return ErrQueueEmpty
	}

	popped, _ := e.Queue.Pop()
	if popped == nil || popped.ID != item.ID {
		return moderation.ErrConflict
	}

	if item.WorkflowID != "" {
		wf, err := e.Store.GetWorkflow(ctx, item.WorkflowID)
		if err != nil {
			return err
		}
		reviewAction := workflow.ActionApprove
		if action == moderation.ActionAllow {
			reviewAction = workflow.ActionReject
		}
		// re-enter through the normal review path without double-locking
		e.lk.Unlock()
		_, err = e.ProcessReviewAction(ctx, wf.ID, reviewAction, "automod", "auto-moderation")
		e.lk.Lock()
		return err
	}

	if action == moderation.ActionAllow {
		return nil
	}
	d, err := e.Ledger.RecordDecision(ctx, item.ContentID, action, "auto-moderation", 1.0, "automod", "")
	if err != nil {
		return err
	}
	e.Audit.LogAction(ctx, "decision_recorded", map[string]any{"decisionID": d.ID, "contentID": d.ContentID, "action": string(d.Action), "moderatorId": "automod"})
	return nil
}
