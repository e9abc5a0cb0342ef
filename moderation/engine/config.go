package engine

import (
	"context"
	"time"
)

// Config is the closed set of recognized engine options. Unknown options do
// not exist: configuration is this struct, not an open map.
type Config struct {
	// Enabled gates the pipeline. A disabled engine fails open on analysis
	// (every submission gets a safe allow analysis) and refuses new reports.
	Enabled bool `json:"enabled"`
	// HumanReviewRequired queues flagged and remove-scored content for human
	// review instead of recording automatic decisions.
	HumanReviewRequired bool `json:"humanReviewRequired"`
	// AutoModeration enables the queue-processing loop.
	AutoModeration bool `json:"autoModeration"`
	// EscalationThreshold is the duplicate-report count at which severity
	// and priority are forced to high. Zero means DefaultEscalationThreshold.
	EscalationThreshold int `json:"escalationThreshold"`
	// AutoAssign assigns new queue items to moderators on intake.
	AutoAssign bool `json:"autoAssign"`
	// Moderators is the assignment pool.
	Moderators []string `json:"moderators,omitempty"`
	// AnalysisTimeout bounds each provider call. Zero means
	// DefaultAnalysisTimeout.
	AnalysisTimeout time.Duration `json:"analysisTimeout,omitempty"`
}

const (
	DefaultEscalationThreshold = 3
	DefaultAnalysisTimeout     = 5 * time.Second
)

func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		HumanReviewRequired: true,
		EscalationThreshold: DefaultEscalationThreshold,
		AnalysisTimeout:     DefaultAnalysisTimeout,
	}
}

func (c Config) escalationThreshold() int {
	if c.EscalationThreshold > 0 {
		return c.EscalationThreshold
	}
	return DefaultEscalationThreshold
}

func (c Config) analysisTimeout() time.Duration {
	if c.AnalysisTimeout > 0 {
		return c.AnalysisTimeout
	}
	return DefaultAnalysisTimeout
}

// GetConfig returns a copy of the current configuration.
func (e *Engine) GetConfig() Config {
	e.lk.Lock()
	defer e.lk.Unlock()
	cfg := e.cfg
	cfg.Moderators = append([]string(nil), e.cfg.Moderators...)
	return cfg
}

// UpdateConfig replaces the configuration wholesale.
func (e *Engine) UpdateConfig(ctx context.Context, cfg Config) {
	e.lk.Lock()
	e.cfg = cfg
	e.lk.Unlock()
	e.Audit.LogAction(ctx, "config_updated", map[string]any{
		"enabled":             cfg.Enabled,
		"humanReviewRequired": cfg.HumanReviewRequired,
		"autoModeration":      cfg.AutoModeration,
	})
}
