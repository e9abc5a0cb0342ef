package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warden-mod/warden/moderation"
)

// Memstore is the in-memory Store implementation. It is the system of record
// for tests and single-process deployments; all reads return copies so
// callers can never mutate stored state in place.
type Memstore struct {
	lk        sync.RWMutex
	analyses  map[string]*moderation.Analysis
	reports   map[string]*moderation.Report
	workflows map[string]*moderation.ReviewWorkflow
	decisions map[string]*moderation.Decision
	appeals   map[string]*moderation.Appeal
	events    []*EventRecord

	// insertion-order indexes, oldest first
	reportOrder   []string
	analysisOrder []string
	decisionOrder []string
}

func NewMemstore() *Memstore {
	return &Memstore{
		analyses:  make(map[string]*moderation.Analysis),
		reports:   make(map[string]*moderation.Report),
		workflows: make(map[string]*moderation.ReviewWorkflow),
		decisions: make(map[string]*moderation.Decision),
		appeals:   make(map[string]*moderation.Appeal),
	}
}

func copyAnalysis(a *moderation.Analysis) *moderation.Analysis {
	cp := *a
	cp.Flags = append([]moderation.Flag(nil), a.Flags...)
	cp.Suggestions = append([]string(nil), a.Suggestions...)
	return &cp
}

func copyReport(r *moderation.Report) *moderation.Report {
	cp := *r
	cp.Evidence = append([]string(nil), r.Evidence...)
	cp.RelatedReports = append([]string(nil), r.RelatedReports...)
	cp.ResolutionNotes = append([]string(nil), r.ResolutionNotes...)
	return &cp
}

func copyWorkflow(w *moderation.ReviewWorkflow) *moderation.ReviewWorkflow {
	cp := *w
	cp.Steps = append([]moderation.WorkflowStep(nil), w.Steps...)
	cp.History = append([]moderation.HistoryEntry(nil), w.History...)
	return &cp
}

func (s *Memstore) PutAnalysis(ctx context.Context, a *moderation.Analysis) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if _, ok := s.analyses[a.ID]; !ok {
		s.analysisOrder = append(s.analysisOrder, a.ID)
	}
	s.analyses[a.ID] = copyAnalysis(a)
	return nil
}

func (s *Memstore) GetAnalysis(ctx context.Context, id string) (*moderation.Analysis, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	a, ok := s.analyses[id]
	if !ok {
		return nil, fmt.Errorf("%w: analysis %s", moderation.ErrNotFound, id)
	}
	return copyAnalysis(a), nil
}

func (s *Memstore) LatestAnalysisByContent(ctx context.Context, contentID string, ct moderation.ContentType) (*moderation.Analysis, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	for i := len(s.analysisOrder) - 1; i >= 0; i-- {
		a := s.analyses[s.analysisOrder[i]]
		if a.ContentID == contentID && a.ContentType == ct {
			return copyAnalysis(a), nil
		}
	}
	return nil, fmt.Errorf("%w: analysis for content %s/%s", moderation.ErrNotFound, contentID, ct)
}

func (s *Memstore) PutReport(ctx context.Context, r *moderation.Report) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if _, ok := s.reports[r.ID]; !ok {
		s.reportOrder = append(s.reportOrder, r.ID)
	}
	s.reports[r.ID] = copyReport(r)
	return nil
}

func (s *Memstore) GetReport(ctx context.Context, id string) (*moderation.Report, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: report %s", moderation.ErrNotFound, id)
	}
	return copyReport(r), nil
}

func (s *Memstore) ListReports(ctx context.Context, q ReportQuery) ([]*moderation.Report, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []*moderation.Report
	for _, id := range s.reportOrder {
		r := s.reports[id]
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		if q.ContentID != "" && r.ContentID != q.ContentID {
			continue
		}
		if q.ContentType != "" && r.ContentType != q.ContentType {
			continue
		}
		if q.ReporterID != "" && r.ReporterID != q.ReporterID {
			continue
		}
		if q.AssignedTo != "" && r.AssignedTo != q.AssignedTo {
			continue
		}
		if !inRange(r.CreatedAt, q.Since, q.Until) {
			continue
		}
		out = append(out, copyReport(r))
	}
	return out, nil
}

func (s *Memstore) ReportsByContent(ctx context.Context, contentID string, ct moderation.ContentType) ([]*moderation.Report, error) {
	return s.ListReports(ctx, ReportQuery{ContentID: contentID, ContentType: ct})
}

func (s *Memstore) PutWorkflow(ctx context.Context, w *moderation.ReviewWorkflow) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.workflows[w.ID] = copyWorkflow(w)
	return nil
}

func (s *Memstore) GetWorkflow(ctx context.Context, id string) (*moderation.ReviewWorkflow, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	w, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: workflow %s", moderation.ErrNotFound, id)
	}
	return copyWorkflow(w), nil
}

func (s *Memstore) GetWorkflowByReport(ctx context.Context, reportID string) (*moderation.ReviewWorkflow, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	for _, w := range s.workflows {
		if w.ReportID == reportID {
			return copyWorkflow(w), nil
		}
	}
	return nil, fmt.Errorf("%w: workflow for report %s", moderation.ErrNotFound, reportID)
}

func (s *Memstore) ListWorkflows(ctx context.Context, since, until time.Time) ([]*moderation.ReviewWorkflow, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []*moderation.ReviewWorkflow
	for _, w := range s.workflows {
		if inRange(w.CreatedAt, since, until) {
			out = append(out, copyWorkflow(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Memstore) PutDecision(ctx context.Context, d *moderation.Decision) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if _, ok := s.decisions[d.ID]; ok {
		// decisions are append-only
		return fmt.Errorf("%w: decision %s already recorded", moderation.ErrConflict, d.ID)
	}
	cp := *d
	s.decisions[d.ID] = &cp
	s.decisionOrder = append(s.decisionOrder, d.ID)
	return nil
}

func (s *Memstore) GetDecision(ctx context.Context, id string) (*moderation.Decision, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	d, ok := s.decisions[id]
	if !ok {
		return nil, fmt.Errorf("%w: decision %s", moderation.ErrNotFound, id)
	}
	cp := *d
	return &cp, nil
}

func (s *Memstore) DecisionsByContent(ctx context.Context, contentID string) ([]*moderation.Decision, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []*moderation.Decision
	for _, id := range s.decisionOrder {
		d := s.decisions[id]
		if d.ContentID == contentID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Memstore) ListDecisions(ctx context.Context, since, until time.Time) ([]*moderation.Decision, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []*moderation.Decision
	for _, id := range s.decisionOrder {
		d := s.decisions[id]
		if inRange(d.Timestamp, since, until) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Memstore) PutAppeal(ctx context.Context, a *moderation.Appeal) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := *a
	cp.Evidence = append([]string(nil), a.Evidence...)
	s.appeals[a.ID] = &cp
	return nil
}

func (s *Memstore) GetAppeal(ctx context.Context, id string) (*moderation.Appeal, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	a, ok := s.appeals[id]
	if !ok {
		return nil, fmt.Errorf("%w: appeal %s", moderation.ErrNotFound, id)
	}
	cp := *a
	cp.Evidence = append([]string(nil), a.Evidence...)
	return &cp, nil
}

func (s *Memstore) ListAppeals(ctx context.Context, since, until time.Time) ([]*moderation.Appeal, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []*moderation.Appeal
	for _, a := range s.appeals {
		if inRange(a.CreatedAt, since, until) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Memstore) AppendEvent(ctx context.Context, ev *EventRecord) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := *ev
	s.events = append(s.events, &cp)
	return nil
}

func (s *Memstore) ListEvents(ctx context.Context, since, until time.Time) ([]*EventRecord, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	var out []*EventRecord
	for _, ev := range s.events {
		if inRange(ev.CreatedAt, since, until) {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}
