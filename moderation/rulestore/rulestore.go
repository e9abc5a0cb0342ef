// Package rulestore holds moderation policies and rules.
//
// Two implementations are provided: in-memory (default, and used in tests)
// and Redis-backed (for sharing rule state across processes).
package rulestore

import (
	"context"

	"github.com/warden-mod/warden/moderation"
)

type RuleStore interface {
	GetPolicy(ctx context.Context, id string) (*moderation.Policy, error)
	ListPolicies(ctx context.Context) ([]*moderation.Policy, error)
	PutPolicy(ctx context.Context, p *moderation.Policy) error
	DeletePolicy(ctx context.Context, id string) error

	GetRule(ctx context.Context, id string) (*moderation.Rule, error)
	ListRules(ctx context.Context) ([]*moderation.Rule, error)
	// ActiveRules returns only enabled rules, in stable id order.
	ActiveRules(ctx context.Context) ([]*moderation.Rule, error)
	PutRule(ctx context.Context, r *moderation.Rule) error
	DeleteRule(ctx context.Context, id string) error
}
