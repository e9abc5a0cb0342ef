// Package queue is the priority-ordered review queue. Items are totally
// ordered by (priority desc, createdAt asc); equal-priority items drain in
// strict FIFO order. Backed by a binary heap so mutation never re-sorts the
// whole queue.
package queue

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warden-mod/warden/moderation"
)

type entry struct {
	item *moderation.QueueItem
	seq  uint64
	idx  int
}

type itemHeap []*entry

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool { return entryLess(h[i], h[j]) }

func entryLess(a, b *entry) bool {
	if pa, pb := a.item.Priority.Rank(), b.item.Priority.Rank(); pa != pb {
		return pa > pb
	}
	if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
		return a.item.CreatedAt.Before(b.item.CreatedAt)
	}
	// seq keeps FIFO strict when timestamps collide
	return a.seq < b.seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].idx = i
	h[j].idx = j
}

func (h *itemHeap) Push(x any) {
	e := x.(*entry)
	e.idx = len(*h)
	*h = append(*h, e)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.idx = -1
	*h = old[:n-1]
	return e
}

// Queue is safe for concurrent use. All reads return copies.
type Queue struct {
	lk        sync.Mutex
	heap      itemHeap
	byID      map[string]*entry
	byContent map[string]string // contentID -> item id
	nextSeq   uint64
}

func New() *Queue {
	return &Queue{
		byID:      make(map[string]*entry),
		byContent: make(map[string]string),
	}
}

func (q *Queue) Len() int {
	q.lk.Lock()
	defer q.lk.Unlock()
	return len(q.heap)
}

// Push inserts an item. A second item for the same content id is rejected;
// the queue holds at most one pending unit of work per content.
func (q *Queue) Push(item *moderation.QueueItem) error {
	q.lk.Lock()
	defer q.lk.Unlock()
	if _, ok := q.byID[item.ID]; ok {
		return fmt.Errorf("%w: queue item %s already present", moderation.ErrConflict, item.ID)
	}
	if other, ok := q.byContent[item.ContentID]; ok {
		return fmt.Errorf("%w: content %s already queued as item %s", moderation.ErrConflict, item.ContentID, other)
	}
	cp := *item
	if cp.Status == "" {
		cp.Status = moderation.QueueItemPending
	}
	e := &entry{item: &cp, seq: q.nextSeq}
	q.nextSeq++
	heap.Push(&q.heap, e)
	q.byID[cp.ID] = e
	q.byContent[cp.ContentID] = cp.ID
	queueDepth.Set(float64(len(q.heap)))
	return nil
}

// Peek returns the highest-priority, oldest item without removing it.
func (q *Queue) Peek() (*moderation.QueueItem, bool) {
	q.lk.Lock()
	defer q.lk.Unlock()
	if len(q.heap) == 0 {
		return nil, false
	}
	cp := *q.heap[0].item
	return &cp, true
}

// Pop removes and returns the highest-priority, oldest item.
func (q *Queue) Pop() (*moderation.QueueItem, bool) {
	q.lk.Lock()
	defer q.lk.Unlock()
	if len(q.heap) == 0 {
		return nil, false
	}
	e := heap.Pop(&q.heap).(*entry)
	delete(q.byID, e.item.ID)
	delete(q.byContent, e.item.ContentID)
	queueDepth.Set(float64(len(q.heap)))
	return e.item, true
}

func (q *Queue) Get(id string) (*moderation.QueueItem, error) {
	q.lk.Lock()
	defer q.lk.Unlock()
	e, ok := q.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: queue item %s", moderation.ErrNotFound, id)
	}
	cp := *e.item
	return &cp, nil
}

// Remove deletes an item by id, regardless of position.
func (q *Queue) Remove(id string) error {
	q.lk.Lock()
	defer q.lk.Unlock()
	e, ok := q.byID[id]
	if !ok {
		return fmt.Errorf("%w: queue item %s", moderation.ErrNotFound, id)
	}
	heap.Remove(&q.heap, e.idx)
	delete(q.byID, id)
	delete(q.byContent, e.item.ContentID)
	queueDepth.Set(float64(len(q.heap)))
	return nil
}

// RemoveByContent deletes the item for a content id, if any. Called when a
// decision is recorded for that content.
func (q *Queue) RemoveByContent(contentID string) bool {
	q.lk.Lock()
	id, ok := q.byContent[contentID]
	q.lk.Unlock()
	if !ok {
		return false
	}
	return q.Remove(id) == nil
}

// PromoteContent raises the priority of the queued item for a content id to
// at least p. Used when duplicate-report escalation bumps severity. Returns
// false when no item is queued for that content.
func (q *Queue) PromoteContent(contentID string, p moderation.Priority) bool {
	q.lk.Lock()
	defer q.lk.Unlock()
	id, ok := q.byContent[contentID]
	if !ok {
		return false
	}
	e := q.byID[id]
	if p.Rank() > e.item.Priority.Rank() {
		e.item.Priority = p
		heap.Fix(&q.heap, e.idx)
	}
	return true
}

// Escalate increments the item's escalation level and promotes its priority
// one level (idempotent at urgent).
func (q *Queue) Escalate(id, reason string) (*moderation.QueueItem, error) {
	q.lk.Lock()
	defer q.lk.Unlock()
	e, ok := q.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: queue item %s", moderation.ErrNotFound, id)
	}
	e.item.EscalationLevel++
	e.item.Priority = e.item.Priority.Promote()
	heap.Fix(&q.heap, e.idx)
	escalationCount.WithLabelValues(string(e.item.Priority)).Inc()
	cp := *e.item
	return &cp, nil
}

// Assign sets the item's assignee. Assigning an already-assigned item is a
// no-op returning the existing assignment; there is no silent overwrite.
func (q *Queue) Assign(id, moderatorID string, now time.Time) (*moderation.QueueItem, bool, error) {
	q.lk.Lock()
	defer q.lk.Unlock()
	e, ok := q.byID[id]
	if !ok {
		return nil, false, fmt.Errorf("%w: queue item %s", moderation.ErrNotFound, id)
	}
	if e.item.AssignedTo != "" {
		cp := *e.item
		return &cp, false, nil
	}
	e.item.AssignedTo = moderatorID
	e.item.AssignedAt = &now
	e.item.Status = moderation.QueueItemAssigned
	cp := *e.item
	return &cp, true, nil
}

// Unassign clears the item's assignment and returns it to the assignable
// pool. Unassigning an unassigned item is a no-op.
func (q *Queue) Unassign(id string) (*moderation.QueueItem, error) {
	q.lk.Lock()
	defer q.lk.Unlock()
	e, ok := q.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: queue item %s", moderation.ErrNotFound, id)
	}
	e.item.AssignedTo = ""
	e.item.AssignedAt = nil
	e.item.Status = moderation.QueueItemPending
	cp := *e.item
	return &cp, nil
}

// Cancel removes a not-yet-assigned item. Assigned items cannot be cancelled;
// in-flight review ends only via reject or escalate.
func (q *Queue) Cancel(id string) error {
	q.lk.Lock()
	defer q.lk.Unlock()
	e, ok := q.byID[id]
	if !ok {
		return fmt.Errorf("%w: queue item %s", moderation.ErrNotFound, id)
	}
	if e.item.AssignedTo != "" {
		return fmt.Errorf("%w: queue item %s is assigned to %s", moderation.ErrConflict, id, e.item.AssignedTo)
	}
	heap.Remove(&q.heap, e.idx)
	delete(q.byID, id)
	delete(q.byContent, e.item.ContentID)
	queueDepth.Set(float64(len(q.heap)))
	return nil
}

// List returns a snapshot of all items in queue order.
func (q *Queue) List() []*moderation.QueueItem {
	q.lk.Lock()
	defer q.lk.Unlock()
	entries := make([]*entry, len(q.heap))
	copy(entries, q.heap)
	sort.Slice(entries, func(i, j int) bool { return entryLess(entries[i], entries[j]) })
	out := make([]*moderation.QueueItem, 0, len(entries))
	for _, e := range entries {
		cp := *e.item
		out = append(out, &cp)
	}
	return out
}
