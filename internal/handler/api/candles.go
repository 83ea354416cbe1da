package api

import (
	"encoding/json"
	"net/http"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	"StrikeGate/internal/service/metrics"
	"StrikeGate/internal/usecase"
	pkgcache "StrikeGate/pkg/cache"
	xhttp "StrikeGate/pkg/http"
	xlogger "StrikeGate/pkg/logger"
	"StrikeGate/pkg/util"

	"github.com/labstack/echo/v4"
)

const candlesCacheTTL = 15 * time.Second

// Candles serves recent bars for inspection. Responses are cached in full
// envelope form so hits and misses are byte-identical on the wire.
func (h *DecisionsHandler) Candles(c echo.Context) error {
	start := time.Now()
	endpoint := "candles"
	defer h.observe(endpoint, start)

	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Symbol == "" {
		req.Symbol = h.symbol
	}
	tf := domrepo.NormalizeTimeframe(req.Timeframe)

	from, ok := util.ParseTime(req.From)
	if req.From != "" && !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from must be RFC3339 or unix seconds"))
	}
	to, ok := util.ParseTime(req.To)
	if req.To != "" && !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to must be RFC3339 or unix seconds"))
	}
	if from.IsZero() != to.IsZero() {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from and to must be provided together"))
	}
	ranged := !from.IsZero()
	if ranged && from.After(to) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from must be <= to"))
	}

	if !h.rl.Allow(clientKey(c, endpoint), 5, 2) {
		h.logger.Warn("decisions.candles rate_limited", xlogger.String("remote", c.RealIP()))
		return tooManyRequests(c)
	}

	ctx := c.Request().Context()
	// Explicit windows are ad hoc and would blow up key cardinality, so only
	// the latest-bars form is cached.
	cacheKey := pkgcache.GenerateKeyWithParams("candles", req.Symbol, tf, req.Limit)
	if h.cache != nil && !ranged {
		if b, ok, err := h.cache.GetBytes(ctx, cacheKey); err != nil {
			h.logger.Warn("decisions.candles cache_get_error", xlogger.Error(err))
		} else if ok {
			metrics.APICacheHits.WithLabelValues(endpoint, "hit").Inc()
			c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
			return c.JSONBlob(http.StatusOK, b)
		}
		metrics.APICacheHits.WithLabelValues(endpoint, "miss").Inc()
	}

	res, err := h.candles.GetCandles(ctx, usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		From:      from,
		To:        to,
		Timeframe: tf,
		Limit:     req.Limit,
	})
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("decisions.candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("candle query failed").WithError(err))
	}

	if h.cache != nil && !ranged {
		envelope := xhttp.APIResponse{
			Status:  http.StatusOK,
			Message: http.StatusText(http.StatusOK),
			Data:    res,
		}
		if b, merr := json.Marshal(envelope); merr != nil {
			h.logger.Warn("decisions.candles marshal_error", xlogger.Error(merr))
		} else if serr := h.cache.SetBytes(ctx, cacheKey, b, candlesCacheTTL); serr != nil {
			h.logger.Warn("decisions.candles cache_set_error", xlogger.Error(serr))
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}
