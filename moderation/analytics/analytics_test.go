package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-mod/warden/moderation"
)

func TestComputeCountsAndRates(t *testing.T) {
	assert := assert.New(t)
	base := time.Now().UTC()
	done := base.Add(2 * time.Hour)

	reports := []*moderation.Report{
		{ID: "r1", Status: moderation.ReportResolved, Severity: moderation.SeverityHigh, Type: "harassment", Category: "hate", CreatedAt: base},
		{ID: "r2", Status: moderation.ReportRejected, Severity: moderation.SeverityLow, Type: "spam", CreatedAt: base},
		{ID: "r3", Status: moderation.ReportEscalated, Severity: moderation.SeverityHigh, Type: "harassment", CreatedAt: base},
		{ID: "r4", Status: moderation.ReportPending, Severity: moderation.SeverityMedium, CreatedAt: base},
	}
	workflows := []*moderation.ReviewWorkflow{
		{ID: "w1", ReportID: "r1", Status: moderation.WorkflowCompleted, CompletedAt: &done},
	}
	decisions := []*moderation.Decision{{ID: "d1"}}
	appeals := []*moderation.Appeal{{ID: "a1"}, {ID: "a2"}}

	st := Compute(reports, workflows, decisions, appeals)
	assert.Equal(4, st.Total)
	assert.Equal(1, st.ByStatus[moderation.ReportResolved])
	assert.Equal(1, st.ByStatus[moderation.ReportRejected])
	assert.Equal(2, st.BySeverity[moderation.SeverityHigh])
	assert.Equal(2, st.ByType["harassment"])
	assert.Equal(1, st.ByCategory["hate"])
	assert.InDelta(0.25, st.EscalationRate, 1e-9)
	assert.InDelta(0.25, st.RejectionRate, 1e-9)
	assert.Equal(1, st.ResolvedCount)
	assert.Equal(2*time.Hour, st.AverageResolutionTime)
	assert.Equal(1, st.DecisionCount)
	assert.Equal(2, st.AppealCount)
}

func TestComputeEmpty(t *testing.T) {
	assert := assert.New(t)
	st := Compute(nil, nil, nil, nil)
	assert.Zero(st.Total)
	assert.Zero(st.EscalationRate)
	assert.Zero(st.AverageResolutionTime)
}

func TestResolutionTimeExcludesUnresolved(t *testing.T) {
	assert := assert.New(t)
	base := time.Now().UTC()
	h1 := base.Add(time.Hour)
	h3 := base.Add(3 * time.Hour)

	reports := []*moderation.Report{
		{ID: "r1", Status: moderation.ReportResolved, CreatedAt: base},
		{ID: "r2", Status: moderation.ReportResolved, CreatedAt: base},
		{ID: "r3", Status: moderation.ReportPending, CreatedAt: base},
	}
	workflows := []*moderation.ReviewWorkflow{
		{ID: "w1", ReportID: "r1", CompletedAt: &h1},
		{ID: "w2", ReportID: "r2", CompletedAt: &h3},
		{ID: "w3", ReportID: "r3"},
	}

	st := Compute(reports, workflows, nil, nil)
	require.Equal(t, 2, st.ResolvedCount)
	// pending report is excluded from the mean, not counted as zero
	assert.Equal(2*time.Hour, st.AverageResolutionTime)
}

func TestReputationNeutralAtZeroReports(t *testing.T) {
	assert.Equal(t, 50.0, ReputationScore(nil))
}

func TestReputationBounds(t *testing.T) {
	assert := assert.New(t)

	// all rejected: floor at 0
	var rejected []*moderation.Report
	for i := 0; i < 5; i++ {
		rejected = append(rejected, &moderation.Report{Status: moderation.ReportRejected})
	}
	assert.Equal(0.0, ReputationScore(rejected))

	// ten+ approved and escalated reports: cap at 100
	var stellar []*moderation.Report
	for i := 0; i < 12; i++ {
		stellar = append(stellar, &moderation.Report{Status: moderation.ReportResolved, Escalated: true})
	}
	assert.Equal(100.0, ReputationScore(stellar))
}

func TestReputationFormula(t *testing.T) {
	assert := assert.New(t)
	reports := []*moderation.Report{
		{Status: moderation.ReportResolved},
		{Status: moderation.ReportResolved},
		{Status: moderation.ReportRejected},
		{Status: moderation.ReportPending},
	}
	// 2/4*100 - 1/4*30 = 42.5, no volume bonus below 10 reports
	assert.InDelta(42.5, ReputationScore(reports), 1e-9)
}

func TestModeratorWorkload(t *testing.T) {
	assert := assert.New(t)
	reports := []*moderation.Report{
		{AssignedTo: "mod-a", Status: moderation.ReportUnderReview},
		{AssignedTo: "mod-a", Status: moderation.ReportEscalated},
		{AssignedTo: "mod-a", Status: moderation.ReportResolved},
		{AssignedTo: "mod-b", Status: moderation.ReportPending},
		{Status: moderation.ReportPending},
	}
	wl := ModeratorWorkload(reports)
	assert.Equal(2, wl["mod-a"])
	assert.Equal(1, wl["mod-b"])
	assert.Len(wl, 2)
}
