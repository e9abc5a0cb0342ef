// Package ledger records moderation decisions and processes appeals against
// them. Decisions are append-only: retractions and granted appeals are
// modeled as new, superseding decisions, never as mutation.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/store"
)

// DefaultDecisionTTL is how long a decision's action stands before it is
// considered lapsed and due for re-evaluation. Lapsing never auto-reverses.
const DefaultDecisionTTL = 30 * 24 * time.Hour

type Ledger struct {
	Store store.Store
	// TTL for new decisions; zero means DefaultDecisionTTL.
	DecisionTTL time.Duration
}

func New(st store.Store) *Ledger {
	return &Ledger{Store: st}
}

func (l *Ledger) ttl() time.Duration {
	if l.DecisionTTL > 0 {
		return l.DecisionTTL
	}
	return DefaultDecisionTTL
}

// RecordDecision appends a new decision. supersedes is the id of an earlier
// decision this one replaces (appeal grants), or empty.
func (l *Ledger) RecordDecision(ctx context.Context, contentID string, action moderation.Action, reason string, confidence float64, moderatorID, supersedes string) (*moderation.Decision, error) {
	now := time.Now().UTC()
	expires := now.Add(l.ttl())
	d := &moderation.Decision{
		ID:          uuid.NewString(),
		ContentID:   contentID,
		Action:      action,
		Reason:      reason,
		Confidence:  confidence,
		ModeratorID: moderatorID,
		Supersedes:  supersedes,
		Timestamp:   now,
		ExpiresAt:   &expires,
	}
	if err := l.Store.PutDecision(ctx, d); err != nil {
		return nil, fmt.Errorf("recording decision: %w", err)
	}
	return d, nil
}

// Current returns the latest decision for a content id, or ErrNotFound.
func (l *Ledger) Current(ctx context.Context, contentID string) (*moderation.Decision, error) {
	ds, err := l.Store.DecisionsByContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if len(ds) == 0 {
		return nil, fmt.Errorf("%w: no decision for content %s", moderation.ErrNotFound, contentID)
	}
	return ds[len(ds)-1], nil
}

// ExpiredDecisions returns, across a time range, decisions whose action has
// lapsed as of now.
func (l *Ledger) ExpiredDecisions(ctx context.Context, since, until, now time.Time) ([]*moderation.Decision, error) {
	ds, err := l.Store.ListDecisions(ctx, since, until)
	if err != nil {
		return nil, err
	}
	var out []*moderation.Decision
	for _, d := range ds {
		if d.Lapsed(now) {
			out = append(out, d)
		}
	}
	return out, nil
}

// SubmitAppeal opens an appeal against a decision. The decision must exist
// and the reason must be non-empty.
func (l *Ledger) SubmitAppeal(ctx context.Context, decisionID, appellantID, reason string, evidence []string) (*moderation.Appeal, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, moderation.MissingFieldError("reason")
	}
	if appellantID == "" {
		return nil, moderation.MissingFieldError("appellantId")
	}
	if _, err := l.Store.GetDecision(ctx, decisionID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &moderation.Appeal{
		ID:          uuid.NewString(),
		DecisionID:  decisionID,
		AppellantID: appellantID,
		Reason:      reason,
		Status:      moderation.AppealPending,
		Evidence:    evidence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.Store.PutAppeal(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ResolveAppeal processes approve/reject against an appeal. Granting records
// a new decision superseding the original (action allow); the original
// decision is never deleted.
func (l *Ledger) ResolveAppeal(ctx context.Context, appealID string, approve bool, moderatorID, notes string) (*moderation.Appeal, *moderation.Decision, error) {
	a, err := l.Store.GetAppeal(ctx, appealID)
	if err != nil {
		return nil, nil, err
	}
	if a.Status == moderation.AppealApproved || a.Status == moderation.AppealRejected {
		return nil, nil, fmt.Errorf("%w: appeal %s already %s", moderation.ErrConflict, appealID, a.Status)
	}
	orig, err := l.Store.GetDecision(ctx, a.DecisionID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	a.ResolvedBy = moderatorID
	a.Notes = notes
	a.UpdatedAt = now

	var superseding *moderation.Decision
	if approve {
		a.Status = moderation.AppealApproved
		superseding, err = l.RecordDecision(ctx, orig.ContentID, moderation.ActionAllow,
			fmt.Sprintf("appeal %s granted, supersedes decision %s", a.ID, orig.ID),
			1.0, moderatorID, orig.ID)
		if err != nil {
			return nil, nil, err
		}
	} else {
		a.Status = moderation.AppealRejected
	}
	if err := l.Store.PutAppeal(ctx, a); err != nil {
		return nil, nil, err
	}
	return a, superseding, nil
}
