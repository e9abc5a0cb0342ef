package rulestore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-mod/warden/moderation"
)

func TestMemRuleStorePolicies(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemRuleStore()

	_, err := s.GetPolicy(ctx, "missing")
	assert.True(errors.Is(err, moderation.ErrNotFound))

	require.NoError(t, s.PutPolicy(ctx, &moderation.Policy{ID: "p2", Name: "spam policy", Enabled: true}))
	require.NoError(t, s.PutPolicy(ctx, &moderation.Policy{ID: "p1", Name: "hate policy", Enabled: true}))

	ps, err := s.ListPolicies(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	// stable id order
	assert.Equal("p1", ps[0].ID)
	assert.Equal("p2", ps[1].ID)

	require.NoError(t, s.DeletePolicy(ctx, "p1"))
	assert.True(errors.Is(s.DeletePolicy(ctx, "p1"), moderation.ErrNotFound))
}

func TestMemRuleStoreActiveRules(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemRuleStore()

	require.NoError(t, s.PutRule(ctx, &moderation.Rule{ID: "r1", Name: "one", Enabled: true}))
	require.NoError(t, s.PutRule(ctx, &moderation.Rule{ID: "r2", Name: "two", Enabled: false}))
	require.NoError(t, s.PutRule(ctx, &moderation.Rule{ID: "r3", Name: "three", Enabled: true}))

	all, err := s.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(all, 3)

	// disabled rules are excluded from evaluation but not deleted
	active, err := s.ActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal("r1", active[0].ID)
	assert.Equal("r3", active[1].ID)

	r2, err := s.GetRule(ctx, "r2")
	require.NoError(t, err)
	assert.False(r2.Enabled)

	// reads are copies
	active[0].Enabled = false
	r1, err := s.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.True(r1.Enabled)
}
