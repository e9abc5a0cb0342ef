package rulestore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warden-mod/warden/moderation"
)

type MemRuleStore struct {
	lk       sync.RWMutex
	policies map[string]*moderation.Policy
	rules    map[string]*moderation.Rule
}

func NewMemRuleStore() *MemRuleStore {
	return &MemRuleStore{
		policies: make(map[string]*moderation.Policy),
		rules:    make(map[string]*moderation.Rule),
	}
}

func (s *MemRuleStore) GetPolicy(ctx context.Context, id string) (*moderation.Policy, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return nil, fmt.Errorf("%w: policy %s", moderation.ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (s *MemRuleStore) ListPolicies(ctx context.Context) ([]*moderation.Policy, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	out := make([]*moderation.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemRuleStore) PutPolicy(ctx context.Context, p *moderation.Policy) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := *p
	s.policies[p.ID] = &cp
	return nil
}

func (s *MemRuleStore) DeletePolicy(ctx context.Context, id string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if _, ok := s.policies[id]; !ok {
		return fmt.Errorf("%w: policy %s", moderation.ErrNotFound, id)
	}
	delete(s.policies, id)
	return nil
}

func (s *MemRuleStore) GetRule(ctx context.Context, id string) (*moderation.Rule, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: rule %s", moderation.ErrNotFound, id)
	}
	cp := *r
	return &cp, nil
}

func (s *MemRuleStore) ListRules(ctx context.Context) ([]*moderation.Rule, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	out := make([]*moderation.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemRuleStore) ActiveRules(ctx context.Context) ([]*moderation.Rule, error) {
	all, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*moderation.Rule, 0, len(all))
	for _, r := range all {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemRuleStore) PutRule(ctx context.Context, r *moderation.Rule) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *MemRuleStore) DeleteRule(ctx context.Context, id string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("%w: rule %s", moderation.ErrNotFound, id)
	}
	delete(s.rules, id)
	return nil
}
