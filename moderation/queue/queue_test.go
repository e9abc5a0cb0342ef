package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-mod/warden/moderation"
)

func item(id, contentID string, p moderation.Priority, createdAt time.Time) *moderation.QueueItem {
	return &moderation.QueueItem{
		ID:          id,
		ContentID:   contentID,
		ContentType: moderation.ContentText,
		Priority:    p,
		CreatedAt:   createdAt,
	}
}

func TestQueueOrdering(t *testing.T) {
	assert := assert.New(t)
	q := New()
	base := time.Now().UTC()

	require.NoError(t, q.Push(item("i1", "c1", moderation.PriorityLow, base)))
	require.NoError(t, q.Push(item("i2", "c2", moderation.PriorityUrgent, base.Add(2*time.Second))))
	require.NoError(t, q.Push(item("i3", "c3", moderation.PriorityNormal, base.Add(time.Second))))
	require.NoError(t, q.Push(item("i4", "c4", moderation.PriorityUrgent, base.Add(3*time.Second))))

	var got []string
	for {
		it, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, it.ID)
	}
	// priority desc, then createdAt asc within equal priority
	assert.Equal([]string{"i2", "i4", "i3", "i1"}, got)
	assert.Equal(0, q.Len())
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	assert := assert.New(t)
	q := New()
	now := time.Now().UTC()

	// identical timestamps: insertion order must still hold
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Push(item(id, "content-"+id, moderation.PriorityNormal, now)))
	}
	for _, want := range []string{"a", "b", "c", "d"} {
		it, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(want, it.ID)
	}
}

func TestQueueOneItemPerContent(t *testing.T) {
	assert := assert.New(t)
	q := New()
	now := time.Now().UTC()

	require.NoError(t, q.Push(item("i1", "c1", moderation.PriorityNormal, now)))

	err := q.Push(item("i2", "c1", moderation.PriorityHigh, now))
	assert.True(errors.Is(err, moderation.ErrConflict))

	err = q.Push(item("i1", "c9", moderation.PriorityHigh, now))
	assert.True(errors.Is(err, moderation.ErrConflict))

	// after removal the content can be queued again
	assert.True(q.RemoveByContent("c1"))
	assert.NoError(q.Push(item("i2", "c1", moderation.PriorityHigh, now)))
}

func TestQueueEscalateIdempotentAtUrgent(t *testing.T) {
	assert := assert.New(t)
	q := New()
	now := time.Now().UTC()
	require.NoError(t, q.Push(item("i1", "c1", moderation.PriorityHigh, now)))

	it, err := q.Escalate("i1", "needs senior review")
	require.NoError(t, err)
	assert.Equal(moderation.PriorityUrgent, it.Priority)
	assert.Equal(1, it.EscalationLevel)

	// urgent stays urgent but the level keeps counting
	it, err = q.Escalate("i1", "again")
	require.NoError(t, err)
	assert.Equal(moderation.PriorityUrgent, it.Priority)
	assert.Equal(2, it.EscalationLevel)

	_, err = q.Escalate("missing", "x")
	assert.True(errors.Is(err, moderation.ErrNotFound))
}

func TestQueueEscalateReorders(t *testing.T) {
	assert := assert.New(t)
	q := New()
	base := time.Now().UTC()
	require.NoError(t, q.Push(item("i1", "c1", moderation.PriorityNormal, base)))
	require.NoError(t, q.Push(item("i2", "c2", moderation.PriorityNormal, base.Add(time.Second))))

	_, err := q.Escalate("i2", "r")
	require.NoError(t, err)

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal("i2", head.ID)
}

func TestQueueAssignNoOverwrite(t *testing.T) {
	assert := assert.New(t)
	q := New()
	now := time.Now().UTC()
	require.NoError(t, q.Push(item("i1", "c1", moderation.PriorityNormal, now)))

	it, assigned, err := q.Assign("i1", "mod-a", now)
	require.NoError(t, err)
	assert.True(assigned)
	assert.Equal("mod-a", it.AssignedTo)
	assert.Equal(moderation.QueueItemAssigned, it.Status)

	it, assigned, err = q.Assign("i1", "mod-b", now)
	require.NoError(t, err)
	assert.False(assigned)
	assert.Equal("mod-a", it.AssignedTo)
}

func TestQueueUnassign(t *testing.T) {
	assert := assert.New(t)
	q := New()
	now := time.Now().UTC()
	require.NoError(t, q.Push(item("i1", "c1", moderation.PriorityNormal, now)))

	_, _, err := q.Assign("i1", "mod-a", now)
	require.NoError(t, err)

	it, err := q.Unassign("i1")
	require.NoError(t, err)
	assert.Empty(it.AssignedTo)
	assert.Nil(it.AssignedAt)
	assert.Equal(moderation.QueueItemPending, it.Status)

	// back in the pool: a different moderator can pick it up
	it, assigned, err := q.Assign("i1", "mod-b", now)
	require.NoError(t, err)
	assert.True(assigned)
	assert.Equal("mod-b", it.AssignedTo)

	_, err = q.Unassign("missing")
	assert.True(errors.Is(err, moderation.ErrNotFound))
}

func TestQueueCancel(t *testing.T) {
	assert := assert.New(t)
	q := New()
	now := time.Now().UTC()
	require.NoError(t, q.Push(item("i1", "c1", moderation.PriorityNormal, now)))
	require.NoError(t, q.Push(item("i2", "c2", moderation.PriorityNormal, now)))

	_, _, err := q.Assign("i2", "mod-a", now)
	require.NoError(t, err)

	assert.NoError(q.Cancel("i1"))
	assert.Equal(1, q.Len())

	// assigned items are not cancellable
	err = q.Cancel("i2")
	assert.True(errors.Is(err, moderation.ErrConflict))
	assert.True(errors.Is(q.Cancel("i1"), moderation.ErrNotFound))
}

func TestQueuePromoteContent(t *testing.T) {
	assert := assert.New(t)
	q := New()
	base := time.Now().UTC()
	require.NoError(t, q.Push(item("i1", "c1", moderation.PriorityLow, base)))
	require.NoError(t, q.Push(item("i2", "c2", moderation.PriorityNormal, base.Add(time.Second))))

	assert.True(q.PromoteContent("c1", moderation.PriorityHigh))
	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal("i1", head.ID)

	// promotion never lowers priority
	assert.True(q.PromoteContent("c1", moderation.PriorityLow))
	got, err := q.Get("i1")
	require.NoError(t, err)
	assert.Equal(moderation.PriorityHigh, got.Priority)

	assert.False(q.PromoteContent("unknown", moderation.PriorityUrgent))
}

func TestQueueListSnapshot(t *testing.T) {
	assert := assert.New(t)
	q := New()
	base := time.Now().UTC()
	require.NoError(t, q.Push(item("i1", "c1", moderation.PriorityLow, base)))
	require.NoError(t, q.Push(item("i2", "c2", moderation.PriorityUrgent, base.Add(time.Second))))
	require.NoError(t, q.Push(item("i3", "c3", moderation.PriorityNormal, base.Add(2*time.Second))))

	list := q.List()
	require.Len(t, list, 3)
	assert.Equal("i2", list[0].ID)
	assert.Equal("i3", list[1].ID)
	assert.Equal("i1", list[2].ID)

	// listing twice must not disturb drain order
	_ = q.List()
	head, ok := q.Pop()
	require.True(t, ok)
	assert.Equal("i2", head.ID)

	// returned copies do not alias queue state
	list[1].Priority = moderation.PriorityUrgent
	got, err := q.Get("i3")
	require.NoError(t, err)
	assert.Equal(moderation.PriorityNormal, got.Priority)
}
