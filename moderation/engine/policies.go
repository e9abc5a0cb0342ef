package engine

import (
	"context"
	"strings"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/event"
)

// CreatePolicy registers a new policy.
func (e *Engine) CreatePolicy(ctx context.Context, name string, ruleIDs []string, enabled bool) (*moderation.Policy, error) {
	if strings.TrimSpace(name) == "" {
		return nil, moderation.MissingFieldError("name")
	}
	now := e.now()
	p := &moderation.Policy{
		ID:        newID(),
		Name:      name,
		Rules:     ruleIDs,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Rules.PutPolicy(ctx, p); err != nil {
		return nil, err
	}
	e.Audit.LogAction(ctx, "policy_created", map[string]any{"policyID": p.ID, "name": p.Name})
	e.publish(ctx, &event.PolicyChanged{Policy: *p, Change: "created", At: now})
	return p, nil
}

// UpdatePolicy replaces a policy's mutable fields.
func (e *Engine) UpdatePolicy(ctx context.Context, id, name string, ruleIDs []string, enabled bool) (*moderation.Policy, error) {
	p, err := e.Rules.GetPolicy(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		p.Name = name
	}
	if ruleIDs != nil {
		p.Rules = ruleIDs
	}
	p.Enabled = enabled
	p.UpdatedAt = e.now()
	if err := e.Rules.PutPolicy(ctx, p); err != nil {
		return nil, err
	}
	e.Audit.LogAction(ctx, "policy_updated", map[string]any{"policyID": p.ID})
	e.publish(ctx, &event.PolicyChanged{Policy: *p, Change: "updated", At: p.UpdatedAt})
	return p, nil
}

func (e *Engine) DeletePolicy(ctx context.Context, id string) error {
	p, err := e.Rules.GetPolicy(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Rules.DeletePolicy(ctx, id); err != nil {
		return err
	}
	e.Audit.LogAction(ctx, "policy_deleted", map[string]any{"policyID": id})
	e.publish(ctx, &event.PolicyChanged{Policy: *p, Change: "deleted", At: e.now()})
	return nil
}

func (e *Engine) GetPolicy(ctx context.Context, id string) (*moderation.Policy, error) {
	return e.Rules.GetPolicy(ctx, id)
}

func (e *Engine) ListPolicies(ctx context.Context) ([]*moderation.Policy, error) {
	return e.Rules.ListPolicies(ctx)
}

// CreateRule registers a new rule. Rules are evaluated independently of the
// policies that group them.
func (e *Engine) CreateRule(ctx context.Context, r moderation.Rule) (*moderation.Rule, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, moderation.MissingFieldError("name")
	}
	if r.Severity == "" {
		r.Severity = moderation.SeverityMedium
	}
	if r.Action == "" {
		r.Action = moderation.ActionFlag
	}
	r.ID = newID()
	if err := e.Rules.PutRule(ctx, &r); err != nil {
		return nil, err
	}
	e.Audit.LogAction(ctx, "rule_created", map[string]any{"ruleID": r.ID, "name": r.Name})
	e.publish(ctx, &event.RuleChanged{Rule: r, Change: "created", At: e.now()})
	return &r, nil
}

// UpdateRule replaces a rule. Disabling a rule excludes it from evaluation
// without deleting it.
func (e *Engine) UpdateRule(ctx context.Context, r moderation.Rule) (*moderation.Rule, error) {
	if _, err := e.Rules.GetRule(ctx, r.ID); err != nil {
		return nil, err
	}
	if err := e.Rules.PutRule(ctx, &r); err != nil {
		return nil, err
	}
	e.Audit.LogAction(ctx, "rule_updated", map[string]any{"ruleID": r.ID})
	e.publish(ctx, &event.RuleChanged{Rule: r, Change: "updated", At: e.now()})
	return &r, nil
}

func (e *Engine) DeleteRule(ctx context.Context, id string) error {
	r, err := e.Rules.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Rules.DeleteRule(ctx, id); err != nil {
		return err
	}
	e.Audit.LogAction(ctx, "rule_deleted", map[string]any{"ruleID": id})
	e.publish(ctx, &event.RuleChanged{Rule: *r, Change: "deleted", At: e.now()})
	return nil
}

func (e *Engine) GetRule(ctx context.Context, id string) (*moderation.Rule, error) {
	return e.Rules.GetRule(ctx, id)
}

func (e *Engine) ListRules(ctx context.Context) ([]*moderation.Rule, error) {
	return e.Rules.ListRules(ctx)
}
