package moderation

import (
	"time"
)

// Severity of a flag, analysis, or report. Total order: low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the position of the severity in the fixed total order. Unknown
// values rank below "low" so a malformed severity never out-ranks a real one.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// MaxSeverity returns the higher-ranked of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Priority of a queue item or report. Four levels; queue ordering is by
// priority descending, then insertion time ascending.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityNormal:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Promote returns the next priority up. Urgent promotes to itself.
func (p Priority) Promote() Priority {
	switch p {
	case PriorityLow:
		return PriorityNormal
	case PriorityNormal:
		return PriorityHigh
	case PriorityHigh:
		return PriorityUrgent
	case PriorityUrgent:
		return PriorityUrgent
	}
	return PriorityNormal
}

// Action is the moderation outcome for a piece of content.
type Action string

const (
	ActionAllow  Action = "allow"
	ActionFlag   Action = "flag"
	ActionReview Action = "review"
	ActionRemove Action = "remove"
	ActionBan    Action = "ban"
)

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentAudio ContentType = "audio"
)

type ReportStatus string

const (
	ReportPending     ReportStatus = "pending"
	ReportUnderReview ReportStatus = "under_review"
	ReportResolved    ReportStatus = "resolved"
	ReportRejected    ReportStatus = "rejected"
	ReportEscalated   ReportStatus = "escalated"
)

type WorkflowStatus string

const (
	WorkflowPending        WorkflowStatus = "pending"
	WorkflowInProgress     WorkflowStatus = "in_progress"
	WorkflowWaitingForInfo WorkflowStatus = "waiting_for_info"
	WorkflowEscalated      WorkflowStatus = "escalated"
	WorkflowCompleted      WorkflowStatus = "completed"
	WorkflowRejected       WorkflowStatus = "rejected"
)

// Terminal reports whether no further reviewer action is accepted.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowCompleted || s == WorkflowRejected
}

type AppealStatus string

const (
	AppealPending     AppealStatus = "pending"
	AppealUnderReview AppealStatus = "under_review"
	AppealApproved    AppealStatus = "approved"
	AppealRejected    AppealStatus = "rejected"
)

type QueueItemStatus string

const (
	QueueItemPending   QueueItemStatus = "pending"
	QueueItemAssigned  QueueItemStatus = "assigned"
	QueueItemCancelled QueueItemStatus = "cancelled"
)

// Confidence pairs a numeric confidence with a coarse label.
type Confidence struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// ConfidenceFor buckets a [0,1] score into a labeled confidence.
func ConfidenceFor(score float64) Confidence {
	label := "low"
	if score >= 0.75 {
		label = "high"
	} else if score >= 0.4 {
		label = "medium"
	}
	return Confidence{Score: score, Label: label}
}

// Flag is a single signal contributing to an Analysis, from an automated
// provider, a matched rule, or a user report.
type Flag struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Category   string   `json:"category"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Evidence   string   `json:"evidence,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Analysis is the merged result of automated evaluation of one content
// submission. Immutable once persisted; resubmission creates a new analysis.
type Analysis struct {
	ID               string      `json:"id"`
	ContentID        string      `json:"contentId"`
	ContentType      ContentType `json:"contentType"`
	Category         string      `json:"category"`
	Severity         Severity    `json:"severity"`
	Score            float64     `json:"score"`
	Confidence       Confidence  `json:"confidence"`
	Action           Action      `json:"action"`
	Flags            []Flag      `json:"flags"`
	Suggestions      []string    `json:"suggestions,omitempty"`
	ProcessingTimeMS int64       `json:"processingTimeMs"`
	CreatedAt        time.Time   `json:"createdAt"`
	ProcessedAt      time.Time   `json:"processedAt"`
}

// Report is a user-submitted complaint about a piece of content.
type Report struct {
	ID              string       `json:"id"`
	ContentID       string       `json:"contentId"`
	ContentType     ContentType  `json:"contentType"`
	ReporterID      string       `json:"reporterId"`
	Reason          string       `json:"reason"`
	Type            string       `json:"type"`
	Severity        Severity     `json:"severity"`
	Category        string       `json:"category"`
	Status          ReportStatus `json:"status"`
	Priority        Priority     `json:"priority"`
	Evidence        []string     `json:"evidence,omitempty"`
	RelatedReports  []string     `json:"relatedReports,omitempty"`
	PrimaryReport   string       `json:"primaryReport,omitempty"`
	AssignedTo      string       `json:"assignedTo,omitempty"`
	WorkflowID      string       `json:"workflowId,omitempty"`
	Escalated       bool         `json:"escalated"`
	ResolutionNotes []string     `json:"resolutionNotes,omitempty"`
	// Recommended action for reviewers; used when approving without an
	// explicit action. Empty means "remove".
	RecommendedAction Action    `json:"recommendedAction,omitempty"`
	AnalysisID        string    `json:"analysisId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// QueueItem is one unit of pending human-review work. It exists exactly while
// a report/analysis awaits or undergoes review, and is removed once a
// Decision is recorded for its content.
type QueueItem struct {
	ID              string          `json:"id"`
	ContentID       string          `json:"contentId"`
	ContentType     ContentType     `json:"contentType"`
	AnalysisID      string          `json:"analysisId,omitempty"`
	ReportID        string          `json:"reportId,omitempty"`
	WorkflowID      string          `json:"workflowId,omitempty"`
	Priority        Priority        `json:"priority"`
	Status          QueueItemStatus `json:"status"`
	EscalationLevel int             `json:"escalationLevel,omitempty"`
	AssignedTo      string          `json:"assignedTo,omitempty"`
	AssignedAt      *time.Time      `json:"assignedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// StepStatus tracks progress through a workflow's advisory step list.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepSkipped   StepStatus = "skipped"
)

type WorkflowStep struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
}

// HistoryEntry is one entry in a workflow's append-only audit trail.
type HistoryEntry struct {
	Action      string    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
	PerformedBy string    `json:"performedBy"`
	Notes       string    `json:"notes,omitempty"`
}

// ReviewWorkflow is the stateful, stepped process a single report goes
// through until resolution. Exactly one workflow exists per report.
type ReviewWorkflow struct {
	ID          string         `json:"id"`
	ReportID    string         `json:"reportId"`
	Status      WorkflowStatus `json:"status"`
	AssignedTo  string         `json:"assignedTo,omitempty"`
	Priority    Priority       `json:"priority"`
	Type        string         `json:"type"`
	Steps       []WorkflowStep `json:"steps"`
	CurrentStep int            `json:"currentStep"`
	History     []HistoryEntry `json:"history"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// Decision is an immutable record of the moderation action taken against
// content. Never mutated or deleted; retractions are new, superseding
// decisions.
type Decision struct {
	ID         string     `json:"id"`
	ContentID  string     `json:"contentId"`
	Action     Action     `json:"action"`
	Reason     string     `json:"reason"`
	Confidence float64    `json:"confidence"`
	ModeratorID string    `json:"moderatorId"`
	// Set when this decision supersedes an earlier one (appeal granted).
	Supersedes string     `json:"supersedes,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Lapsed reports whether the decision's action has expired and the content
// needs re-evaluation. Expiry never automatically reverses the action.
func (d *Decision) Lapsed(now time.Time) bool {
	return d.ExpiresAt != nil && now.After(*d.ExpiresAt)
}

// Appeal is a request to reconsider a Decision.
type Appeal struct {
	ID          string       `json:"id"`
	DecisionID  string       `json:"decisionId"`
	AppellantID string       `json:"appellantId"`
	Reason      string       `json:"reason"`
	Status      AppealStatus `json:"status"`
	Evidence    []string     `json:"evidence,omitempty"`
	ResolvedBy  string       `json:"resolvedBy,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Policy groups rules under a name. Mutated only through explicit
// create/update/delete calls on the engine.
type Policy struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rules     []string  `json:"rules"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RuleMatcher is the closed matcher configuration for a rule. A rule matches
// when any keyword token matches, or when the regex pattern matches.
type RuleMatcher struct {
	Keywords     []string      `json:"keywords,omitempty"`
	Pattern      string        `json:"pattern,omitempty"`
	ContentTypes []ContentType `json:"contentTypes,omitempty"`
}

// Rule is evaluated independently against submitted content. Disabled rules
// are excluded from evaluation but not deleted.
type Rule struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Severity Severity    `json:"severity"`
	Action   Action      `json:"action"`
	Enabled  bool        `json:"enabled"`
	Matcher  RuleMatcher `json:"matcher"`
}

// Matches reports whether the rule's content-type filter admits t. An empty
// filter admits everything.
func (r *Rule) AppliesTo(t ContentType) bool {
	if len(r.Matcher.ContentTypes) == 0 {
		return true
	}
	for _, ct := range r.Matcher.ContentTypes {
		if ct == t {
			return true
		}
	}
	return false
}
