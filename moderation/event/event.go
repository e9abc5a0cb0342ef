// Package event defines the closed set of pipeline events and a typed
// observer dispatcher. Each event kind is its own struct; there are no
// stringly-typed event names to subscribe to.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/warden-mod/warden/moderation"
)

// Event is implemented by every pipeline event payload. Kind is a stable
// identifier used for audit records and logging, not for dispatch.
type Event interface {
	Kind() string
	Subject() string
}

type PolicyChanged struct {
	Policy moderation.Policy
	Change string // created, updated, deleted
	At     time.Time
}

func (e *PolicyChanged) Kind() string    { return "policy_" + e.Change }
func (e *PolicyChanged) Subject() string { return e.Policy.ID }

type RuleChanged struct {
	Rule   moderation.Rule
	Change string
	At     time.Time
}

func (e *RuleChanged) Kind() string    { return "rule_" + e.Change }
func (e *RuleChanged) Subject() string { return e.Rule.ID }

type AnalysisCompleted struct {
	Analysis moderation.Analysis
}

func (e *AnalysisCompleted) Kind() string    { return "analysis_completed" }
func (e *AnalysisCompleted) Subject() string { return e.Analysis.ContentID }

// AnalysisFailed records a fail-open: the capability errored and a safe
// analysis was substituted.
type AnalysisFailed struct {
	ContentID string
	Reason    string
}

func (e *AnalysisFailed) Kind() string    { return "analysis_failed" }
func (e *AnalysisFailed) Subject() string { return e.ContentID }

type ReportSubmitted struct {
	Report moderation.Report
}

func (e *ReportSubmitted) Kind() string    { return "report_submitted" }
func (e *ReportSubmitted) Subject() string { return e.Report.ID }

// ReportEscalated fires for both automatic (duplicate threshold) and
// reviewer-driven escalation.
type ReportEscalated struct {
	Report    moderation.Report
	Automatic bool
	Reason    string
}

func (e *ReportEscalated) Kind() string    { return "report_escalated" }
func (e *ReportEscalated) Subject() string { return e.Report.ID }

type WorkflowTransitioned struct {
	Workflow moderation.ReviewWorkflow
	Action   string
	By       string
}

func (e *WorkflowTransitioned) Kind() string    { return "workflow_transitioned" }
func (e *WorkflowTransitioned) Subject() string { return e.Workflow.ID }

type DecisionMade struct {
	Decision moderation.Decision
}

func (e *DecisionMade) Kind() string    { return "decision_made" }
func (e *DecisionMade) Subject() string { return e.Decision.ContentID }

type AppealSubmitted struct {
	Appeal moderation.Appeal
}

func (e *AppealSubmitted) Kind() string    { return "appeal_submitted" }
func (e *AppealSubmitted) Subject() string { return e.Appeal.ID }

type AppealResolved struct {
	Appeal moderation.Appeal
	// Superseding decision when the appeal was granted, nil otherwise.
	Superseding *moderation.Decision
}

func (e *AppealResolved) Kind() string    { return "appeal_resolved" }
func (e *AppealResolved) Subject() string { return e.Appeal.ID }

// NotificationFailed records a notification dropped after exhausting retries.
type NotificationFailed struct {
	EventKind string
	Target    string
	Reason    string
}

func (e *NotificationFailed) Kind() string    { return "notification_failed" }
func (e *NotificationFailed) Subject() string { return e.Target }

// Observer receives every published event. Handlers must not block; slow
// consumers should buffer internally.
type Observer interface {
	HandleEvent(ctx context.Context, ev Event)
}

type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) HandleEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// Dispatcher fans events out to registered observers synchronously, in
// registration order.
type Dispatcher struct {
	lk        sync.RWMutex
	observers []Observer
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Subscribe(obs Observer) {
	d.lk.Lock()
	defer d.lk.Unlock()
	d.observers = append(d.observers, obs)
}

func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	d.lk.RLock()
	obs := make([]Observer, len(d.observers))
	copy(obs, d.observers)
	d.lk.RUnlock()
	for _, o := range obs {
		o.HandleEvent(ctx, ev)
	}
}
