package queue

import (
	"sync"

	"github.com/warden-mod/warden/moderation"
)

// AssignmentStrategy picks a moderator for a queue item. Round-robin is the
// default; the interface keeps the policy swappable (e.g. workload-aware
// assignment fed by analytics).
type AssignmentStrategy interface {
	Next(moderators []string, item *moderation.QueueItem) string
}

// RoundRobin cycles through the moderator pool in order, ignoring workload.
type RoundRobin struct {
	lk     sync.Mutex
	cursor int
}

func (rr *RoundRobin) Next(moderators []string, item *moderation.QueueItem) string {
	if len(moderators) == 0 {
		return ""
	}
	rr.lk.Lock()
	defer rr.lk.Unlock()
	m := moderators[rr.cursor%len(moderators)]
	rr.cursor++
	return m
}

// LeastLoaded picks the moderator with the fewest open assignments, as
// reported by the workload function. Not the default; proves the strategy
// seam for workload-aware deployments.
type LeastLoaded struct {
	Workload func() map[string]int
}

func (ll *LeastLoaded) Next(moderators []string, item *moderation.QueueItem) string {
	if len(moderators) == 0 {
		return ""
	}
	loads := ll.Workload()
	best, bestLoad := moderators[0], loads[moderators[0]]
	for _, m := range moderators[1:] {
		if loads[m] < bestLoad {
			best, bestLoad = m, loads[m]
		}
	}
	return best
}
