package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/engine"
	"github.com/warden-mod/warden/moderation/notifier"
	"github.com/warden-mod/warden/moderation/rulestore"
	"github.com/warden-mod/warden/moderation/store"
)

type Server struct {
	logger *slog.Logger
	engine *engine.Engine
	echo   *echo.Echo
}

type ServerConfig struct {
	WebhookURL string
}

func NewServer(logger *slog.Logger, st store.Store, rules rulestore.RuleStore, cfg engine.Config, scfg ServerConfig) (*Server, error) {
	eng := engine.New(logger, st, rules, cfg)
	if scfg.WebhookURL != "" {
		eng.Notifier.Notifier = notifier.NewWebhookNotifier(scfg.WebhookURL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())

	srv := &Server{
		logger: logger,
		engine: eng,
		echo:   e,
	}
	srv.registerRoutes()
	return srv, nil
}

func (s *Server) registerRoutes() {
	e := s.echo
	e.GET("/_health", s.handleHealthCheck)

	e.POST("/analyze", s.handleAnalyze)

	e.GET("/policies", s.handleListPolicies)
	e.POST("/policies", s.handleCreatePolicy)
	e.GET("/policies/:id", s.handleGetPolicy)
	e.PUT("/policies/:id", s.handleUpdatePolicy)
	e.DELETE("/policies/:id", s.handleDeletePolicy)

	e.GET("/rules", s.handleListRules)
	e.POST("/rules", s.handleCreateRule)
	e.GET("/rules/:id", s.handleGetRule)
	e.PUT("/rules/:id", s.handleUpdateRule)
	e.DELETE("/rules/:id", s.handleDeleteRule)

	e.GET("/queue", s.handleListQueue)
	e.GET("/queue/:id", s.handleGetQueueItem)
	e.POST("/queue/:id/assign", s.handleAssignQueueItem)
	e.POST("/queue/:id/escalate", s.handleEscalateQueueItem)
	e.DELETE("/queue/:id", s.handleCancelQueueItem)

	e.POST("/reports", s.handleSubmitReport)
	e.GET("/reports", s.handleListReports)
	e.GET("/reports/:id", s.handleGetReport)
	e.PATCH("/reports/:id", s.handleUpdateReport)

	e.POST("/workflows/:id/action", s.handleReviewAction)
	e.GET("/workflows/:id", s.handleGetWorkflow)

	e.POST("/appeals", s.handleSubmitAppeal)
	e.GET("/appeals", s.handleListAppeals)
	e.POST("/appeals/:id/action", s.handleAppealAction)

	e.GET("/stats", s.handleStats)
	e.GET("/config", s.handleGetConfig)
	e.PUT("/config", s.handleUpdateConfig)
}

func (s *Server) Run(ctx context.Context, bind string) error {
	go func() {
		if err := s.engine.RunQueueLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("queue loop exited", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutting down admin API", "err", err)
		}
	}()
	s.logger.Info("starting admin API", "bind", bind)
	if err := s.echo.Start(bind); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) RunMetrics(listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, mux)
}

// httpError maps pipeline error taxonomy onto status codes.
func httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, moderation.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, moderation.ErrValidation), errors.Is(err, moderation.ErrUnknownAction):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, moderation.ErrConflict), errors.Is(err, moderation.ErrTerminalWorkflow):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, moderation.ErrDisabled):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	ContentID   string                 `json:"contentId"`
	Content     string                 `json:"content"`
	ContentType moderation.ContentType `json:"contentType"`
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if req.ContentType == "" {
		req.ContentType = moderation.ContentText
	}
	a, err := s.engine.AnalyzeContent(c.Request().Context(), req.ContentID, req.Content, req.ContentType)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

type policyRequest struct {
	Name    string   `json:"name"`
	Rules   []string `json:"rules"`
	Enabled bool     `json:"enabled"`
}

func (s *Server) handleCreatePolicy(c echo.Context) error {
	var req policyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	p, err := s.engine.CreatePolicy(c.Request().Context(), req.Name, req.Rules, req.Enabled)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) handleUpdatePolicy(c echo.Context) error {
	var req policyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	p, err := s.engine.UpdatePolicy(c.Request().Context(), c.Param("id"), req.Name, req.Rules, req.Enabled)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleGetPolicy(c echo.Context) error {
	p, err := s.engine.GetPolicy(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleListPolicies(c echo.Context) error {
	ps, err := s.engine.ListPolicies(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, ps)
}

func (s *Server) handleDeletePolicy(c echo.Context) error {
	if err := s.engine.DeletePolicy(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCreateRule(c echo.Context) error {
	var r moderation.Rule
	if err := c.Bind(&r); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	created, err := s.engine.CreateRule(c.Request().Context(), r)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateRule(c echo.Context) error {
	var r moderation.Rule
	if err := c.Bind(&r); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	r.ID = c.Param("id")
	updated, err := s.engine.UpdateRule(c.Request().Context(), r)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleGetRule(c echo.Context) error {
	r, err := s.engine.GetRule(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleListRules(c echo.Context) error {
	rs, err := s.engine.ListRules(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}

func (s *Server) handleDeleteRule(c echo.Context) error {
	if err := s.engine.DeleteRule(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.ListQueue(c.Request().Context()))
}

func (s *Server) handleGetQueueItem(c echo.Context) error {
	item, err := s.engine.GetQueueItem(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

type assignRequest struct {
	ModeratorID string `json:"moderatorId"`
}

func (s *Server) handleAssignQueueItem(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	item, err := s.engine.AssignQueueItem(c.Request().Context(), c.Param("id"), req.ModeratorID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

type escalateRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleEscalateQueueItem(c echo.Context) error {
	var req escalateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	item, err := s.engine.EscalateQueueItem(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) handleCancelQueueItem(c echo.Context) error {
	if err := s.engine.CancelQueueItem(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSubmitReport(c echo.Context) error {
	var in engine.ReportInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	r, err := s.engine.SubmitReport(c.Request().Context(), in)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (s *Server) handleListReports(c echo.Context) error {
	q := store.ReportQuery{
		Status:     moderation.ReportStatus(c.QueryParam("status")),
		ContentID:  c.QueryParam("contentId"),
		ReporterID: c.QueryParam("reporterId"),
		AssignedTo: c.QueryParam("assignedTo"),
	}
	rs, err := s.engine.ListReports(c.Request().Context(), q)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}

func (s *Server) handleGetReport(c echo.Context) error {
	r, err := s.engine.GetReport(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleUpdateReport(c echo.Context) error {
	var patch engine.ReportPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	r, err := s.engine.UpdateReport(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

type reviewActionRequest struct {
	Action      string `json:"action"`
	ModeratorID string `json:"moderatorId"`
	Notes       string `json:"notes"`
}

func (s *Server) handleReviewAction(c echo.Context) error {
	var req reviewActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	wf, err := s.engine.ProcessReviewAction(c.Request().Context(), c.Param("id"), req.Action, req.ModeratorID, req.Notes)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

func (s *Server) handleGetWorkflow(c echo.Context) error {
	wf, err := s.engine.GetWorkflow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

type appealRequest struct {
	DecisionID  string   `json:"decisionId"`
	AppellantID string   `json:"appellantId"`
	Reason      string   `json:"reason"`
	Evidence    []string `json:"evidence"`
}

func (s *Server) handleSubmitAppeal(c echo.Context) error {
	var req appealRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	a, err := s.engine.SubmitAppeal(c.Request().Context(), req.DecisionID, req.AppellantID, req.Reason, req.Evidence)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (s *Server) handleListAppeals(c echo.Context) error {
	since, until := parseRange(c)
	as, err := s.engine.ListAppeals(c.Request().Context(), since, until)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, as)
}

func (s *Server) handleAppealAction(c echo.Context) error {
	var req reviewActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	a, err := s.engine.ProcessAppealAction(c.Request().Context(), c.Param("id"), req.Action, req.ModeratorID, req.Notes)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) handleStats(c echo.Context) error {
	since, until := parseRange(c)
	st, err := s.engine.GetStats(c.Request().Context(), since, until)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleGetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.GetConfig())
}

func (s *Server) handleUpdateConfig(c echo.Context) error {
	var cfg engine.Config
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	s.engine.UpdateConfig(c.Request().Context(), cfg)
	return c.JSON(http.StatusOK, s.engine.GetConfig())
}

func parseRange(c echo.Context) (time.Time, time.Time) {
	var since, until time.Time
	if v := c.QueryParam("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			since = t
		}
	}
	if v := c.QueryParam("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			until = t
		}
	}
	return since, until
}
