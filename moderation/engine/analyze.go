package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/analysis"
	"github.com/warden-mod/warden/moderation/event"
	"github.com/warden-mod/warden/moderation/notifier"
)

func contentKey(contentID string, ct moderation.ContentType) string {
	return contentID + "/" + string(ct)
}

// AnalyzeContent runs all registered providers and the active rules against
// the content, merges the results, persists the analysis, and returns it.
//
// Fail-open: a disabled engine or a provider error yields a safe analysis
// (action allow, score zero). The failure is logged and emitted as an
// AnalysisFailed event; it is never surfaced to the submitter.
func (e *Engine) AnalyzeContent(ctx context.Context, contentID, content string, ct moderation.ContentType) (*moderation.Analysis, error) {
	if contentID == "" {
		return nil, moderation.MissingFieldError("contentId")
	}
	if ct == "" {
		return nil, moderation.MissingFieldError("contentType")
	}
	started := e.now()

	if id, ok := e.analysisCache.Get(contentKey(contentID, ct)); ok {
		if a, err := e.Store.GetAnalysis(ctx, id); err == nil {
			return a, nil
		}
	}

	a, failedReason := e.runAnalysis(ctx, contentID, content, ct, started)
	analysisDuration.Observe(time.Since(started).Seconds())
	if failedReason != "" {
		analysisFailCount.Inc()
		e.Logger.Warn("analysis failed open", "contentID", contentID, "reason", failedReason)
		e.publish(ctx, &event.AnalysisFailed{ContentID: contentID, Reason: failedReason})
	}

	if err := e.Store.PutAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("persisting analysis: %w", err)
	}
	e.analysisCache.Add(contentKey(contentID, ct), a.ID)
	e.publish(ctx, &event.AnalysisCompleted{Analysis: *a})
	analysisActionCount.WithLabelValues(string(a.Action)).Inc()

	if len(a.Flags) > 0 {
		e.notify(notifier.EventFlag, contentID, fmt.Sprintf("content flagged: %d flag(s), severity %s, action %s", len(a.Flags), a.Severity, a.Action))
	}

	e.routeAnalysis(ctx, a)
	return a, nil
}

// AnalyzeText is a convenience wrapper for text content.
func (e *Engine) AnalyzeText(ctx context.Context, contentID, text string) (*moderation.Analysis, error) {
	return e.AnalyzeContent(ctx, contentID, text, moderation.ContentText)
}

// AnalyzeImage analyzes image content referenced by URL or descriptor.
func (e *Engine) AnalyzeImage(ctx context.Context, contentID, ref string) (*moderation.Analysis, error) {
	return e.AnalyzeContent(ctx, contentID, ref, moderation.ContentImage)
}

// runAnalysis executes providers and rules, returning either the merged
// analysis or a safe fail-open one plus the failure reason.
func (e *Engine) runAnalysis(ctx context.Context, contentID, content string, ct moderation.ContentType, started time.Time) (*moderation.Analysis, string) {
	cfg := e.GetConfig()
	if !cfg.Enabled {
		return analysis.SafeAnalysis(contentID, ct, started), "engine disabled"
	}

	var flagSets [][]moderation.Flag
	for _, p := range e.currentProviders() {
		pctx, cancel := context.WithTimeout(ctx, cfg.analysisTimeout())
		flags, err := p.Analyze(pctx, content, ct)
		cancel()
		if err != nil {
			return analysis.SafeAnalysis(contentID, ct, started), fmt.Sprintf("provider %s: %v", p.Name(), err)
		}
		flagSets = append(flagSets, flags)
	}

	rules, err := e.Rules.ActiveRules(ctx)
	if err != nil {
		return analysis.SafeAnalysis(contentID, ct, started), fmt.Sprintf("loading rules: %v", err)
	}
	flagSets = append(flagSets, analysis.EvaluateRules(content, ct, rules, e.Logger))

	return analysis.Merge(contentID, ct, flagSets, e.Scorer, started), ""
}

// routeAnalysis decides what happens after analysis: queue for human review,
// record an automatic decision, or nothing (allow).
func (e *Engine) routeAnalysis(ctx context.Context, a *moderation.Analysis) {
	cfg := e.GetConfig()
	switch a.Action {
	case moderation.ActionAllow:
		return
	case moderation.ActionRemove, moderation.ActionBan:
		if !cfg.HumanReviewRequired {
			// decisive action with no human gate: record it directly
			d, err := e.Ledger.RecordDecision(ctx, a.ContentID, a.Action, "automatic: "+a.Category, a.Score, "automod", "")
			if err != nil {
				e.Logger.Error("recording automatic decision", "contentID", a.ContentID, "err", err)
				return
			}
			e.publish(ctx, &event.DecisionMade{Decision: *d})
			e.Audit.LogAction(ctx, "decision_recorded", map[string]any{"decisionID": d.ID, "contentID": d.ContentID, "action": string(d.Action), "moderatorId": "automod"})
			return
		}
		fallthrough
	case moderation.ActionReview, moderation.ActionFlag:
		e.enqueueAnalysis(ctx, a)
	}
}

func (e *Engine) enqueueAnalysis(ctx context.Context, a *moderation.Analysis) {
	item := &moderation.QueueItem{
		ID:          newID(),
		ContentID:   a.ContentID,
		ContentType: a.ContentType,
		AnalysisID:  a.ID,
		Priority:    priorityForSeverity(a.Severity),
		Status:      moderation.QueueItemPending,
		CreatedAt:   e.now(),
	}
	if err := e.Queue.Push(item); err != nil {
		// content already queued; existing item covers it
		e.Logger.Debug("skipping queue push", "contentID", a.ContentID, "err", err)
	}
}
