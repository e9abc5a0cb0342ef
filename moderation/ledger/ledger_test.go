package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/store"
)

func TestRecordAndCurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	l := New(store.NewMemstore())

	d1, err := l.RecordDecision(ctx, "c1", moderation.ActionRemove, "hate speech", 0.9, "mod-a", "")
	require.NoError(t, err)
	assert.NotEmpty(d1.ID)
	require.NotNil(t, d1.ExpiresAt)
	assert.InDelta(float64(DefaultDecisionTTL), float64(d1.ExpiresAt.Sub(d1.Timestamp)), float64(time.Second))

	cur, err := l.Current(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(d1.ID, cur.ID)

	d2, err := l.RecordDecision(ctx, "c1", moderation.ActionAllow, "overturned", 1.0, "mod-b", d1.ID)
	require.NoError(t, err)

	cur, err = l.Current(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(d2.ID, cur.ID)
	assert.Equal(d1.ID, cur.Supersedes)

	// the original decision is still on record
	orig, err := l.Store.GetDecision(ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(moderation.ActionRemove, orig.Action)

	_, err = l.Current(ctx, "never-decided")
	assert.True(errors.Is(err, moderation.ErrNotFound))
}

func TestExpiredDecisions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	l := New(store.NewMemstore())
	l.DecisionTTL = time.Hour

	d, err := l.RecordDecision(ctx, "c1", moderation.ActionRemove, "spam", 0.8, "mod-a", "")
	require.NoError(t, err)

	now := time.Now().UTC()
	expired, err := l.ExpiredDecisions(ctx, time.Time{}, time.Time{}, now)
	require.NoError(t, err)
	assert.Empty(expired)

	// expiry flags the decision for re-evaluation, it does not reverse it
	expired, err = l.ExpiredDecisions(ctx, time.Time{}, time.Time{}, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(d.ID, expired[0].ID)
	assert.Equal(moderation.ActionRemove, expired[0].Action)
}

func TestSubmitAppealValidation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	l := New(store.NewMemstore())

	d, err := l.RecordDecision(ctx, "c1", moderation.ActionRemove, "spam", 0.8, "mod-a", "")
	require.NoError(t, err)

	_, err = l.SubmitAppeal(ctx, d.ID, "user-1", "  ", nil)
	assert.True(errors.Is(err, moderation.ErrValidation))

	_, err = l.SubmitAppeal(ctx, d.ID, "", "it was satire", nil)
	assert.True(errors.Is(err, moderation.ErrValidation))

	_, err = l.SubmitAppeal(ctx, "no-such-decision", "user-1", "it was satire", nil)
	assert.True(errors.Is(err, moderation.ErrNotFound))

	a, err := l.SubmitAppeal(ctx, d.ID, "user-1", "it was satire", []string{"link"})
	require.NoError(t, err)
	assert.Equal(moderation.AppealPending, a.Status)
	assert.Equal(d.ID, a.DecisionID)
}

func TestResolveAppealApproveSupersedes(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	l := New(store.NewMemstore())

	d, err := l.RecordDecision(ctx, "c1", moderation.ActionRemove, "spam", 0.8, "mod-a", "")
	require.NoError(t, err)
	a, err := l.SubmitAppeal(ctx, d.ID, "user-1", "it was satire", nil)
	require.NoError(t, err)

	resolved, superseding, err := l.ResolveAppeal(ctx, a.ID, true, "mod-senior", "agree")
	require.NoError(t, err)
	assert.Equal(moderation.AppealApproved, resolved.Status)
	assert.Equal("mod-senior", resolved.ResolvedBy)
	require.NotNil(t, superseding)
	assert.Equal(moderation.ActionAllow, superseding.Action)
	assert.Equal(d.ID, superseding.Supersedes)
	assert.Equal("c1", superseding.ContentID)

	cur, err := l.Current(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(superseding.ID, cur.ID)

	// resolving twice is a conflict
	_, _, err = l.ResolveAppeal(ctx, a.ID, false, "mod-x", "")
	assert.True(errors.Is(err, moderation.ErrConflict))
}

func TestResolveAppealReject(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	l := New(store.NewMemstore())

	d, err := l.RecordDecision(ctx, "c1", moderation.ActionBan, "repeat offender", 0.95, "mod-a", "")
	require.NoError(t, err)
	a, err := l.SubmitAppeal(ctx, d.ID, "user-1", "unfair", nil)
	require.NoError(t, err)

	resolved, superseding, err := l.ResolveAppeal(ctx, a.ID, false, "mod-senior", "stands")
	require.NoError(t, err)
	assert.Equal(moderation.AppealRejected, resolved.Status)
	assert.Nil(superseding)

	// original decision unchanged
	cur, err := l.Current(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(d.ID, cur.ID)
}
