package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-mod/warden/moderation"
)

func TestMemstoreReports(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemstore()
	base := time.Now().UTC()

	_, err := s.GetReport(ctx, "missing")
	assert.True(errors.Is(err, moderation.ErrNotFound))

	reports := []*moderation.Report{
		{ID: "r1", ContentID: "c1", ContentType: moderation.ContentText, ReporterID: "u1", Status: moderation.ReportPending, CreatedAt: base},
		{ID: "r2", ContentID: "c1", ContentType: moderation.ContentText, ReporterID: "u2", Status: moderation.ReportRejected, CreatedAt: base.Add(time.Minute)},
		{ID: "r3", ContentID: "c2", ContentType: moderation.ContentImage, ReporterID: "u1", Status: moderation.ReportPending, AssignedTo: "mod-a", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range reports {
		require.NoError(t, s.PutReport(ctx, r))
	}

	got, err := s.GetReport(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(moderation.ReportRejected, got.Status)

	// by-content, oldest first
	byContent, err := s.ReportsByContent(ctx, "c1", moderation.ContentText)
	require.NoError(t, err)
	require.Len(t, byContent, 2)
	assert.Equal("r1", byContent[0].ID)
	assert.Equal("r2", byContent[1].ID)

	// filters compose
	out, err := s.ListReports(ctx, ReportQuery{ReporterID: "u1", Status: moderation.ReportPending})
	require.NoError(t, err)
	require.Len(t, out, 2)

	out, err = s.ListReports(ctx, ReportQuery{AssignedTo: "mod-a"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal("r3", out[0].ID)

	out, err = s.ListReports(ctx, ReportQuery{Since: base.Add(30 * time.Second)})
	require.NoError(t, err)
	assert.Len(out, 2)

	// stored state is isolated from the caller's pointer
	reports[0].Status = moderation.ReportResolved
	got, err = s.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(moderation.ReportPending, got.Status)
}

func TestMemstoreLatestAnalysisByContent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemstore()

	_, err := s.LatestAnalysisByContent(ctx, "c1", moderation.ContentText)
	assert.True(errors.Is(err, moderation.ErrNotFound))

	require.NoError(t, s.PutAnalysis(ctx, &moderation.Analysis{ID: "a1", ContentID: "c1", ContentType: moderation.ContentText}))
	require.NoError(t, s.PutAnalysis(ctx, &moderation.Analysis{ID: "a2", ContentID: "c1", ContentType: moderation.ContentText}))
	require.NoError(t, s.PutAnalysis(ctx, &moderation.Analysis{ID: "a3", ContentID: "c1", ContentType: moderation.ContentImage}))

	got, err := s.LatestAnalysisByContent(ctx, "c1", moderation.ContentText)
	require.NoError(t, err)
	assert.Equal("a2", got.ID)
}

func TestMemstoreDecisionsAppendOnly(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemstore()

	d := &moderation.Decision{ID: "d1", ContentID: "c1", Action: moderation.ActionRemove, Timestamp: time.Now().UTC()}
	require.NoError(t, s.PutDecision(ctx, d))

	// rewriting an existing decision id is rejected
	err := s.PutDecision(ctx, &moderation.Decision{ID: "d1", ContentID: "c1", Action: moderation.ActionAllow})
	assert.True(errors.Is(err, moderation.ErrConflict))

	require.NoError(t, s.PutDecision(ctx, &moderation.Decision{ID: "d2", ContentID: "c1", Action: moderation.ActionAllow, Timestamp: time.Now().UTC()}))
	ds, err := s.DecisionsByContent(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal("d1", ds[0].ID)
	assert.Equal("d2", ds[1].ID)
}

func TestMemstoreWorkflowByReport(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemstore()

	require.NoError(t, s.PutWorkflow(ctx, &moderation.ReviewWorkflow{ID: "w1", ReportID: "r1", Status: moderation.WorkflowPending}))

	w, err := s.GetWorkflowByReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal("w1", w.ID)

	_, err = s.GetWorkflowByReport(ctx, "r9")
	assert.True(errors.Is(err, moderation.ErrNotFound))
}

func TestMemstoreEvents(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemstore()
	base := time.Now().UTC()

	require.NoError(t, s.AppendEvent(ctx, &EventRecord{ID: "e1", Kind: "report.submitted", CreatedAt: base}))
	require.NoError(t, s.AppendEvent(ctx, &EventRecord{ID: "e2", Kind: "decision.made", CreatedAt: base.Add(time.Hour)}))

	evs, err := s.ListEvents(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(evs, 2)

	evs, err = s.ListEvents(ctx, base.Add(30*time.Minute), time.Time{})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal("e2", evs[0].ID)
}
