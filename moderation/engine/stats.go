package engine

import (
	"context"
	"time"

	"github.com/warden-mod/warden/moderation/analytics"
	"github.com/warden-mod/warden/moderation/store"
)

// GetStats computes pipeline statistics over a time range from the stored
// reports, workflows, decisions, and appeals.
func (e *Engine) GetStats(ctx context.Context, since, until time.Time) (*analytics.Stats, error) {
	reports, err := e.Store.ListReports(ctx, store.ReportQuery{Since: since, Until: until})
	if err != nil {
		return nil, err
	}
	workflows, err := e.Store.ListWorkflows(ctx, since, until)
	if err != nil {
		return nil, err
	}
	decisions, err := e.Store.ListDecisions(ctx, since, until)
	if err != nil {
		return nil, err
	}
	appeals, err := e.Store.ListAppeals(ctx, since, until)
	if err != nil {
		return nil, err
	}
	return analytics.Compute(reports, workflows, decisions, appeals), nil
}

// ReporterReputation computes the [0,100] trust score for one reporter.
func (e *Engine) ReporterReputation(ctx context.Context, reporterID string) (float64, error) {
	reports, err := e.Store.ListReports(ctx, store.ReportQuery{ReporterID: reporterID})
	if err != nil {
		return 0, err
	}
	return analytics.ReputationScore(reports), nil
}

// ModeratorWorkload reports open assignments per moderator.
func (e *Engine) ModeratorWorkload(ctx context.Context) (map[string]int, error) {
	reports, err := e.Store.ListReports(ctx, store.ReportQuery{})
	if err != nil {
		return nil, err
	}
	return analytics.ModeratorWorkload(reports), nil
}
