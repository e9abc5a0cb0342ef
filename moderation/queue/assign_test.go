package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warden-mod/warden/moderation"
)

func TestRoundRobin(t *testing.T) {
	assert := assert.New(t)
	rr := &RoundRobin{}
	mods := []string{"a", "b", "c"}
	item := &moderation.QueueItem{ID: "i1"}

	assert.Equal("a", rr.Next(mods, item))
	assert.Equal("b", rr.Next(mods, item))
	assert.Equal("c", rr.Next(mods, item))
	assert.Equal("a", rr.Next(mods, item))

	assert.Empty(rr.Next(nil, item))
}

func TestLeastLoaded(t *testing.T) {
	assert := assert.New(t)
	ll := &LeastLoaded{Workload: func() map[string]int {
		return map[string]int{"a": 3, "b": 1, "c": 2}
	}}
	item := &moderation.QueueItem{ID: "i1"}

	assert.Equal("b", ll.Next([]string{"a", "b", "c"}, item))
	// unknown moderators count as zero load
	assert.Equal("d", ll.Next([]string{"a", "d"}, item))
	assert.Empty(ll.Next(nil, item))
}
