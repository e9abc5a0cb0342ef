package rulestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/warden-mod/warden/moderation"
)

var (
	redisPolicyPrefix = "rulestore/policy/"
	redisRulePrefix   = "rulestore/rule/"
	redisPolicyIndex  = "rulestore/policies"
	redisRuleIndex    = "rulestore/rules"
)

type RedisRuleStore struct {
	Client *redis.Client
}

func NewRedisRuleStore(redisURL string) (*RedisRuleStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisRuleStore{Client: rdb}, nil
}

func (s *RedisRuleStore) GetPolicy(ctx context.Context, id string) (*moderation.Policy, error) {
	raw, err := s.Client.Get(ctx, redisPolicyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: policy %s", moderation.ErrNotFound, id)
	} else if err != nil {
		return nil, err
	}
	var p moderation.Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *RedisRuleStore) ListPolicies(ctx context.Context) ([]*moderation.Policy, error) {
	ids, err := s.Client.SMembers(ctx, redisPolicyIndex).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	out := make([]*moderation.Policy, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPolicy(ctx, id)
		if err != nil {
			// index can briefly lead deletes; skip missing entries
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *RedisRuleStore) PutPolicy(ctx context.Context, p *moderation.Policy) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	multi := s.Client.Pipeline()
	multi.Set(ctx, redisPolicyPrefix+p.ID, raw, 0)
	multi.SAdd(ctx, redisPolicyIndex, p.ID)
	_, err = multi.Exec(ctx)
	return err
}

func (s *RedisRuleStore) DeletePolicy(ctx context.Context, id string) error {
	n, err := s.Client.Del(ctx, redisPolicyPrefix+id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: policy %s", moderation.ErrNotFound, id)
	}
	return s.Client.SRem(ctx, redisPolicyIndex, id).Err()
}

func (s *RedisRuleStore) GetRule(ctx context.Context, id string) (*moderation.Rule, error) {
	raw, err := s.Client.Get(ctx, redisRulePrefix+id).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: rule %s", moderation.ErrNotFound, id)
	} else if err != nil {
		return nil, err
	}
	var r moderation.Rule
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RedisRuleStore) ListRules(ctx context.Context) ([]*moderation.Rule, error) {
	ids, err := s.Client.SMembers(ctx, redisRuleIndex).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	out := make([]*moderation.Rule, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetRule(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RedisRuleStore) ActiveRules(ctx context.Context) ([]*moderation.Rule, error) {
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

func (s *RedisRuleStore) PutRule(ctx context.Context, r *moderation.Rule) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	multi := s.Client.Pipeline()
	multi.Set(ctx, redisRulePrefix+r.ID, raw, 0)
	multi.SAdd(ctx, redisRuleIndex, r.ID)
	_, err = multi.Exec(ctx)
	return err
}

func (s *RedisRuleStore) DeleteRule(ctx context.Context, id string) error {
	n, err := s.Client.Del(ctx, redisRulePrefix+id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: rule %s", moderation.ErrNotFound, id)
	}
	return s.Client.SRem(ctx, redisRuleIndex, id).Err()
}
