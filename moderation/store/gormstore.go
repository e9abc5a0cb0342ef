package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/warden-mod/warden/moderation"
)

// Gormstore is a gorm-backed implementation of the Store interface. Rows keep
// the columns the pipeline queries on (ids, content keys, timestamps) and the
// full record as a JSON payload, so schema churn in the domain structs does
// not require migrations.
type Gormstore struct {
	db *gorm.DB
}

type analysisRow struct {
	ID          string `gorm:"primarykey"`
	ContentID   string `gorm:"index:idx_analysis_content"`
	ContentType string `gorm:"index:idx_analysis_content"`
	CreatedAt   time.Time `gorm:"index"`
	Payload     []byte
}

type reportRow struct {
	ID          string `gorm:"primarykey"`
	ContentID   string `gorm:"index:idx_report_content"`
	ContentType string `gorm:"index:idx_report_content"`
	Status      string `gorm:"index"`
	ReporterID  string `gorm:"index"`
	AssignedTo  string
	CreatedAt   time.Time `gorm:"index"`
	Payload     []byte
}

type workflowRow struct {
	ID        string `gorm:"primarykey"`
	ReportID  string `gorm:"uniqueIndex"`
	Status    string `gorm:"index"`
	CreatedAt time.Time `gorm:"index"`
	Payload   []byte
}

type decisionRow struct {
	ID        string `gorm:"primarykey"`
	ContentID string `gorm:"index"`
	CreatedAt time.Time `gorm:"index"`
	Payload   []byte
}

type appealRow struct {
	ID         string `gorm:"primarykey"`
	DecisionID string `gorm:"index"`
	CreatedAt  time.Time `gorm:"index"`
	Payload    []byte
}

type eventRow struct {
	ID        string `gorm:"primarykey"`
	Kind      string `gorm:"index"`
	Subject   string
	Payload   string
	CreatedAt time.Time `gorm:"index"`
}

func NewGormstore(db *gorm.DB) (*Gormstore, error) {
	if err := db.AutoMigrate(&analysisRow{}, &reportRow{}, &workflowRow{}, &decisionRow{}, &appealRow{}, &eventRow{}); err != nil {
		return nil, fmt.Errorf("migrating moderation store: %w", err)
	}
	return &Gormstore{db: db}, nil
}

func (s *Gormstore) PutAnalysis(ctx context.Context, a *moderation.Analysis) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	row := analysisRow{ID: a.ID, ContentID: a.ContentID, ContentType: string(a.ContentType), CreatedAt: a.CreatedAt, Payload: raw}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Gormstore) GetAnalysis(ctx context.Context, id string) (*moderation.Analysis, error) {
	var row analysisRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: analysis %s", moderation.ErrNotFound, id)
		}
		return nil, err
	}
	var a moderation.Analysis
	if err := json.Unmarshal(row.Payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Gormstore) LatestAnalysisByContent(ctx context.Context, contentID string, ct moderation.ContentType) (*moderation.Analysis, error) {
	var row analysisRow
	err := s.db.WithContext(ctx).
		Where("content_id = ? AND content_type = ?", contentID, string(ct)).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: analysis for content %s/%s", moderation.ErrNotFound, contentID, ct)
		}
		return nil, err
	}
	var a moderation.Analysis
	if err := json.Unmarshal(row.Payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Gormstore) PutReport(ctx context.Context, r *moderation.Report) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	row := reportRow{
		ID:          r.ID,
		ContentID:   r.ContentID,
		ContentType: string(r.ContentType),
		Status:      string(r.Status),
		ReporterID:  r.ReporterID,
		AssignedTo:  r.AssignedTo,
		CreatedAt:   r.CreatedAt,
		Payload:     raw,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Gormstore) GetReport(ctx context.Context, id string) (*moderation.Report, error) {
	var row reportRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: report %s", moderation.ErrNotFound, id)
		}
		return nil, err
	}
	return decodeReport(&row)
}

func decodeReport(row *reportRow) (*moderation.Report, error) {
	var r moderation.Report
	if err := json.Unmarshal(row.Payload, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Gormstore) ListReports(ctx context.Context, q ReportQuery) ([]*moderation.Report, error) {
	tx := s.db.WithContext(ctx).Model(&reportRow{})
	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}
	if q.ContentID != "" {
		tx = tx.Where("content_id = ?", q.ContentID)
	}
	if q.ContentType != "" {
		tx = tx.Where("content_type = ?", string(q.ContentType))
	}
	if q.ReporterID != "" {
		tx = tx.Where("reporter_id = ?", q.ReporterID)
	}
	if q.AssignedTo != "" {
		tx = tx.Where("assigned_to = ?", q.AssignedTo)
	}
	if !q.Since.IsZero() {
		tx = tx.Where("created_at >= ?", q.Since)
	}
	if !q.Until.IsZero() {
		tx = tx.Where("created_at <= ?", q.Until)
	}
	var rows []reportRow
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*moderation.Report, 0, len(rows))
	for i := range rows {
		r, err := decodeReport(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Gormstore) ReportsByContent(ctx context.Context, contentID string, ct moderation.ContentType) ([]*moderation.Report, error) {
	return s.ListReports(ctx, ReportQuery{ContentID: contentID, ContentType: ct})
}

func (s *Gormstore) PutWorkflow(ctx context.Context, w *moderation.ReviewWorkflow) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	row := workflowRow{ID: w.ID, ReportID: w.ReportID, Status: string(w.Status), CreatedAt: w.CreatedAt, Payload: raw}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Gormstore) GetWorkflow(ctx context.Context, id string) (*moderation.ReviewWorkflow, error) {
	var row workflowRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: workflow %s", moderation.ErrNotFound, id)
		}
		return nil, err
	}
	var w moderation.ReviewWorkflow
	if err := json.Unmarshal(row.Payload, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Gormstore) GetWorkflowByReport(ctx context.Context, reportID string) (*moderation.ReviewWorkflow, error) {
	var row workflowRow
	if err := s.db.WithContext(ctx).First(&row, "report_id = ?", reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: workflow for report %s", moderation.ErrNotFound, reportID)
		}
		return nil, err
	}
	var w moderation.ReviewWorkflow
	if err := json.Unmarshal(row.Payload, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Gormstore) ListWorkflows(ctx context.Context, since, until time.Time) ([]*moderation.ReviewWorkflow, error) {
	tx := s.db.WithContext(ctx).Model(&workflowRow{})
	if !since.IsZero() {
		tx = tx.Where("created_at >= ?", since)
	}
	if !until.IsZero() {
		tx = tx.Where("created_at <= ?", until)
	}
	var rows []workflowRow
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*moderation.ReviewWorkflow, 0, len(rows))
	for i := range rows {
		var w moderation.ReviewWorkflow
		if err := json.Unmarshal(rows[i].Payload, &w); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, nil
}

func (s *Gormstore) PutDecision(ctx context.Context, d *moderation.Decision) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	row := decisionRow{ID: d.ID, ContentID: d.ContentID, CreatedAt: d.Timestamp, Payload: raw}
	// Create, not Save: decisions are append-only
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Gormstore) GetDecision(ctx context.Context, id string) (*moderation.Decision, error) {
	var row decisionRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: decision %s", moderation.ErrNotFound, id)
		}
		return nil, err
	}
	var d moderation.Decision
	if err := json.Unmarshal(row.Payload, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Gormstore) DecisionsByContent(ctx context.Context, contentID string) ([]*moderation.Decision, error) {
	var rows []decisionRow
	if err := s.db.WithContext(ctx).Where("content_id = ?", contentID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return decodeDecisions(rows)
}

func (s *Gormstore) ListDecisions(ctx context.Context, since, until time.Time) ([]*moderation.Decision, error) {
	tx := s.db.WithContext(ctx).Model(&decisionRow{})
	if !since.IsZero() {
		tx = tx.Where("created_at >= ?", since)
	}
	if !until.IsZero() {
		tx = tx.Where("created_at <= ?", until)
	}
	var rows []decisionRow
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return decodeDecisions(rows)
}

func decodeDecisions(rows []decisionRow) ([]*moderation.Decision, error) {
	out := make([]*moderation.Decision, 0, len(rows))
	for i := range rows {
		var d moderation.Decision
		if err := json.Unmarshal(rows[i].Payload, &d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, nil
}

func (s *Gormstore) PutAppeal(ctx context.Context, a *moderation.Appeal) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	row := appealRow{ID: a.ID, DecisionID: a.DecisionID, CreatedAt: a.CreatedAt, Payload: raw}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Gormstore) GetAppeal(ctx context.Context, id string) (*moderation.Appeal, error) {
	var row appealRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: appeal %s", moderation.ErrNotFound, id)
		}
		return nil, err
	}
	var a moderation.Appeal
	if err := json.Unmarshal(row.Payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Gormstore) ListAppeals(ctx context.Context, since, until time.Time) ([]*moderation.Appeal, error) {
	tx := s.db.WithContext(ctx).Model(&appealRow{})
	if !since.IsZero() {
		tx = tx.Where("created_at >= ?", since)
	}
	if !until.IsZero() {
		tx = tx.Where("created_at <= ?", until)
	}
	var rows []appealRow
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*moderation.Appeal, 0, len(rows))
	for i := range rows {
		var a moderation.Appeal
		if err := json.Unmarshal(rows[i].Payload, &a); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, nil
}

func (s *Gormstore) AppendEvent(ctx context.Context, ev *EventRecord) error {
	row := eventRow(*ev)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Gormstore) ListEvents(ctx context.Context, since, until time.Time) ([]*EventRecord, error) {
	tx := s.db.WithContext(ctx).Model(&eventRow{})
	if !since.IsZero() {
		tx = tx.Where("created_at >= ?", since)
	}
	if !until.IsZero() {
		tx = tx.Where("created_at <= ?", until)
	}
	var rows []eventRow
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*EventRecord, 0, len(rows))
	for i := range rows {
		ev := EventRecord(rows[i])
		out = append(out, &ev)
	}
	return out, nil
}
