package api

import (
	"errors"
	"net/http"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	domsvc "StrikeGate/internal/domain/service"
	icache "StrikeGate/internal/service/cache"
	"StrikeGate/internal/service/metrics"
	"StrikeGate/internal/service/ratelimit"
	"StrikeGate/internal/usecase"
	xhttp "StrikeGate/pkg/http"
	xlogger "StrikeGate/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DecisionsHandler exposes the decision engine over HTTP: manual evaluation,
// the latest published decision, the live risk budget, candle history, trade
// outcome entry and the ops status aggregate.
type DecisionsHandler struct {
	logger    *xlogger.Logger
	cycle     *usecase.DecisionCycle
	candles   *usecase.CandlesUseCase
	status    *usecase.StatusUseCase
	outcomes  *usecase.OutcomeRecorder
	snapshots domrepo.SnapshotStore
	governor  domsvc.RiskGovernor
	symbol    string

	cache icache.BytesCache
	rl    *ratelimit.Limiter
}

func NewDecisionsHandler(
	logger *xlogger.Logger,
	cycle *usecase.DecisionCycle,
	candles *usecase.CandlesUseCase,
	status *usecase.StatusUseCase,
	outcomes *usecase.OutcomeRecorder,
	snapshots domrepo.SnapshotStore,
	governor domsvc.RiskGovernor,
	symbol string,
) *DecisionsHandler {
	metrics.Register()
	return &DecisionsHandler{
		logger:    logger,
		cycle:     cycle,
		candles:   candles,
		status:    status,
		outcomes:  outcomes,
		snapshots: snapshots,
		governor:  governor,
		symbol:    symbol,
		rl:        ratelimit.New(),
	}
}

// SetCache injects a response cache for the read-heavy endpoints.
func (h *DecisionsHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *DecisionsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api")
	g.POST("/decisions/evaluate", h.Evaluate)
	g.GET("/decisions/latest", h.Latest)
	g.GET("/risk/state", h.RiskState)
	g.GET("/candles", h.Candles)
	g.POST("/outcomes", h.RecordOutcome)
	g.GET("/status", h.Status)
}

// Evaluate runs one decision cycle immediately, outside the timer cadence.
// A cycle already in flight answers 503 rather than queueing a second run.
func (h *DecisionsHandler) Evaluate(c echo.Context) error {
	start := time.Now()
	defer h.observe("evaluate", start)

	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Symbol != "" && req.Symbol != h.symbol {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("engine is tracking %s", h.symbol))
	}
	if !h.rl.Allow(clientKey(c, "evaluate"), 2, 0.5) {
		h.logger.Warn("decisions.evaluate rate_limited", xlogger.String("remote", c.RealIP()))
		return tooManyRequests(c)
	}

	d, err := h.cycle.EvaluateNow(c.Request().Context())
	if err != nil {
		metrics.APIErrors.WithLabelValues("evaluate").Inc()
		if errors.Is(err, usecase.ErrEvaluationInFlight) {
			return xhttp.AppErrorResponse(c, xhttp.UnavailableError("evaluation already in flight").WithError(err))
		}
		h.logger.Error("decisions.evaluate error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("evaluation failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, d)
}

// Latest returns the last decision published for a symbol.
func (h *DecisionsHandler) Latest(c echo.Context) error {
	start := time.Now()
	defer h.observe("latest", start)

	req := &models.LatestDecisionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := req.Symbol
	if symbol == "" {
		symbol = h.symbol
	}

	d, found, err := h.snapshots.LoadLatest(c.Request().Context(), symbol)
	if err != nil {
		metrics.APIErrors.WithLabelValues("latest").Inc()
		h.logger.Error("decisions.latest snapshot error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("snapshot store unreachable").WithError(err))
	}
	if !found {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no decision published yet for %s", symbol))
	}
	return xhttp.SuccessResponse(c, d)
}

// RiskState reports today's ledger-derived budget. A ledger outage answers
// 503: callers must treat unknown risk as blocked, never as permission.
func (h *DecisionsHandler) RiskState(c echo.Context) error {
	start := time.Now()
	defer h.observe("risk_state", start)

	st, err := h.governor.TodayState(c.Request().Context())
	if err != nil {
		metrics.APIErrors.WithLabelValues("risk_state").Inc()
		h.logger.Error("decisions.risk_state ledger error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("risk ledger unreachable").WithError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

// RecordOutcome writes a closed trade into the risk ledger. This is the ops
// entry path; the execution platform normally reports fills through Kafka.
func (h *DecisionsHandler) RecordOutcome(c echo.Context) error {
	start := time.Now()
	defer h.observe("outcomes", start)

	req := &models.OutcomeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	o, err := usecase.ParseOutcomeRequest(req, h.symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	if err := h.outcomes.Record(c.Request().Context(), o); err != nil {
		metrics.APIErrors.WithLabelValues("outcomes").Inc()
		if errors.Is(err, usecase.ErrInvalidOutcome) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		h.logger.Error("decisions.outcomes record error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("outcome ledger unreachable").WithError(err))
	}
	return xhttp.CreatedResponse(c, o)
}

// Status assembles the ops view. Section outages degrade in the payload, so
// this endpoint itself never fails.
func (h *DecisionsHandler) Status(c echo.Context) error {
	start := time.Now()
	defer h.observe("status", start)

	rep := h.status.Report(c.Request().Context())
	return xhttp.SuccessResponse(c, rep)
}

func (h *DecisionsHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DecisionsHandler) observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func clientKey(c echo.Context, endpoint string) string {
	return c.RealIP() + ":" + endpoint
}

func tooManyRequests(c echo.Context) error {
	return xhttp.AppErrorResponse(c,
		xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests))
}
