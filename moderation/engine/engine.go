// Package engine composes the moderation pipeline: analysis and rule
// evaluation, report intake and deduplication, the review queue, per-report
// workflows, decision recording, appeals, and analytics. The engine is the
// single logical owner of pipeline state; all mutating operations run under
// its lock so racing moderator actions resolve to one winner and one
// explicit conflict.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/analysis"
	"github.com/warden-mod/warden/moderation/auditlog"
	"github.com/warden-mod/warden/moderation/event"
	"github.com/warden-mod/warden/moderation/ledger"
	"github.com/warden-mod/warden/moderation/notifier"
	"github.com/warden-mod/warden/moderation/queue"
	"github.com/warden-mod/warden/moderation/rulestore"
	"github.com/warden-mod/warden/moderation/store"
)

const analysisCacheSize = 2048

type Engine struct {
	Logger   *slog.Logger
	Store    store.Store
	Rules    rulestore.RuleStore
	Queue    *queue.Queue
	Ledger   *ledger.Ledger
	Notifier *notifier.Dispatcher
	Audit    auditlog.Logger
	Events   *event.Dispatcher
	Scorer   analysis.Scorer
	Assigner queue.AssignmentStrategy

	// SyncNotify dispatches notifications inline instead of in a background
	// goroutine. Used by tests; production keeps dispatch fire-and-forget.
	SyncNotify bool

	lk        sync.Mutex
	cfg       Config
	providers []analysis.Analyzer
	// contentID/type -> analysis id, so identical resubmissions reuse the
	// stored analysis instead of re-running providers
	analysisCache *lru.Cache[string, string]
}

func New(logger *slog.Logger, st store.Store, rules rulestore.RuleStore, cfg Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, string](analysisCacheSize)
	e := &Engine{
		Logger:        logger,
		Store:         st,
		Rules:         rules,
		Queue:         queue.New(),
		Ledger:        ledger.New(st),
		Audit:         &auditlog.SlogAudit{Logger: logger},
		Events:        event.NewDispatcher(),
		Scorer:        &analysis.WeightedScorer{},
		Assigner:      &queue.RoundRobin{},
		cfg:           cfg,
		analysisCache: cache,
	}
	e.Notifier = &notifier.Dispatcher{
		Notifier: &notifier.SlogNotifier{Logger: logger},
		Logger:   logger,
		OnDrop: func(n notifier.Notification, err error) {
			e.Events.Publish(context.Background(), &event.NotificationFailed{
				EventKind: string(n.Type),
				Target:    n.Subject,
				Reason:    err.Error(),
			})
		},
	}
	return e
}

// AddProvider registers an analysis provider. A provider with the same name
// replaces the existing one.
func (e *Engine) AddProvider(p analysis.Analyzer) {
	e.lk.Lock()
	defer e.lk.Unlock()
	for i, existing := range e.providers {
		if existing.Name() == p.Name() {
			e.providers[i] = p
			return
		}
	}
	e.providers = append(e.providers, p)
}

// RemoveProvider unregisters a provider by name.
func (e *Engine) RemoveProvider(name string) bool {
	e.lk.Lock()
	defer e.lk.Unlock()
	for i, p := range e.providers {
		if p.Name() == name {
			e.providers = append(e.providers[:i], e.providers[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Engine) currentProviders() []analysis.Analyzer {
	e.lk.Lock()
	defer e.lk.Unlock()
	out := make([]analysis.Analyzer, len(e.providers))
	copy(out, e.providers)
	return out
}

func (e *Engine) now() time.Time {
	return time.Now().UTC()
}

func newID() string {
	return uuid.NewString()
}

// publish emits a typed event to observers and persists it as an event
// record for audit and analytics.
func (e *Engine) publish(ctx context.Context, ev event.Event) {
	e.Events.Publish(ctx, ev)
	payload, err := json.Marshal(ev)
	if err != nil {
		payload = []byte("{}")
	}
	rec := &store.EventRecord{
		ID:        uuid.NewString(),
		Kind:      ev.Kind(),
		Subject:   ev.Subject(),
		Payload:   string(payload),
		CreatedAt: e.now(),
	}
	if err := e.Store.AppendEvent(ctx, rec); err != nil {
		e.Logger.Error("persisting event record", "kind", ev.Kind(), "err", err)
	}
}

// notify dispatches a notification in the background. Fire-and-forget from
// the caller's perspective; retries and terminal logging happen inside the
// notifier dispatcher.
func (e *Engine) notify(t notifier.EventType, subject, text string) {
	n := notifier.Notification{Type: t, Subject: subject, Text: text}
	if e.SyncNotify {
		e.Notifier.Dispatch(context.Background(), n)
		return
	}
	go e.Notifier.Dispatch(context.Background(), n)
}

// priorityForSeverity maps analysis/report severity to queue priority.
func priorityForSeverity(s moderation.Severity) moderation.Priority {
	switch s {
	case moderation.SeverityCritical:
		return moderation.PriorityUrgent
	case moderation.SeverityHigh:
		return moderation.PriorityHigh
	case moderation.SeverityMedium:
		return moderation.PriorityNormal
	default:
		return moderation.PriorityLow
	}
}
