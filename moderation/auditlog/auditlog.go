// Package auditlog is the append-only action sink. Every policy, rule,
// decision, and appeal mutation is logged through it.
package auditlog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Logger interface {
	LogAction(ctx context.Context, action string, metadata map[string]any)
}

// SlogAudit writes audit entries as structured log lines.
type SlogAudit struct {
	Logger *slog.Logger
}

func (a *SlogAudit) LogAction(ctx context.Context, action string, metadata map[string]any) {
	attrs := make([]any, 0, len(metadata)*2+2)
	attrs = append(attrs, "action", action)
	for k, v := range metadata {
		attrs = append(attrs, k, v)
	}
	a.Logger.Info("audit", attrs...)
}

type Entry struct {
	Action   string
	Metadata map[string]any
	At       time.Time
}

// CaptureAudit records entries for tests.
type CaptureAudit struct {
	lk      sync.Mutex
	Entries []Entry
}

func (a *CaptureAudit) LogAction(ctx context.Context, action string, metadata map[string]any) {
	a.lk.Lock()
	defer a.lk.Unlock()
	a.Entries = append(a.Entries, Entry{Action: action, Metadata: metadata, At: time.Now().UTC()})
}

func (a *CaptureAudit) Actions() []string {
	a.lk.Lock()
	defer a.lk.Unlock()
	out := make([]string, 0, len(a.Entries))
	for _, e := range a.Entries {
		out = append(out, e.Action)
	}
	return out
}
