package api

import (
	"errors"
	"net/http"
	"time"

	models "PriceCast/internal/domain/models"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/usecase"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ForecastHandler exposes the forecasting API over Echo.
type ForecastHandler struct {
	logger    *xlogger.Logger
	forecasts *usecase.ForecastService
	risks     *usecase.RiskService
	retrain   *usecase.RetrainLauncher
	live      LiveQuoter
	limiter   *ratelimit.Limiter
}

// LiveQuoter supplies the latest streamed quote per symbol.
type LiveQuoter interface {
	Latest(symbol string) (*models.Quote, bool)
}

func NewForecastHandler(
	logger *xlogger.Logger,
	forecasts *usecase.ForecastService,
	risks *usecase.RiskService,
	retrain *usecase.RetrainLauncher,
	live LiveQuoter,
) *ForecastHandler {
	return &ForecastHandler{
		logger:    logger,
		forecasts: forecasts,
		risks:     risks,
		retrain:   retrain,
		live:      live,
		limiter:   ratelimit.New(),
	}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/assets", h.Assets)
	g.GET("/predict/:asset", h.Predict)
	g.GET("/risk/:asset", h.Risk)
	g.GET("/live/:asset", h.Live)
	g.GET("/category/:category", h.Category)
	g.GET("/health", h.Health)
	g.POST("/retrain", h.Retrain)
	g.POST("/reload", h.Reload)
}

// AssetInfo is one entry of the asset listing.
type AssetInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (h *ForecastHandler) Assets(c echo.Context) error {
	assets, err := h.forecasts.Assets()
	if err != nil {
		return h.fail(c, "assets", err)
	}
	out := make([]AssetInfo, 0, len(assets))
	for _, a := range assets {
		out = append(out, AssetInfo{Name: a, Category: usecase.CategoryOf(a)})
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *ForecastHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	f, err := h.forecasts.Forecast(c.Request().Context(), req.Asset, req.Days)
	if err != nil {
		return h.fail(c, "predict", err)
	}
	return xhttp.SuccessResponse(c, f)
}

func (h *ForecastHandler) Risk(c echo.Context) error {
	req := &models.RiskRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.risks.Report(c.Request().Context(), req.Asset, req.Confidence)
	if err != nil {
		return h.fail(c, "risk", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *ForecastHandler) Live(c echo.Context) error {
	req := &models.LiveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.live == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("live quotes disabled"))
	}
	q, ok := h.live.Latest(req.Asset)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no live quote for %q yet", req.Asset))
	}
	return xhttp.SuccessResponse(c, q)
}

func (h *ForecastHandler) Category(c echo.Context) error {
	req := &models.CategoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	assets, err := h.forecasts.Assets()
	if err != nil {
		return h.fail(c, "category", err)
	}
	return xhttp.SuccessResponse(c, usecase.FilterByCategory(assets, req.Category))
}

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status      string    `json:"status"`
	ModelLoaded bool      `json:"model_loaded"`
	LoadedAt    time.Time `json:"model_loaded_at,omitempty"`
}

func (h *ForecastHandler) Health(c echo.Context) error {
	status := HealthStatus{Status: "ok", ModelLoaded: h.forecasts.Ready()}
	if at, ok := h.forecasts.LoadedAt(); ok {
		status.LoadedAt = at
	}
	if !status.ModelLoaded {
		status.Status = "degraded"
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *ForecastHandler) Retrain(c echo.Context) error {
	if h.retrain == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("retrain disabled"))
	}
	// one launch attempt per minute; retrains are heavy
	if !h.limiter.Allow("retrain", 1, 1.0/60) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_RATE_LIMITED", "", "retrain rate limit exceeded", http.StatusTooManyRequests))
	}
	status, err := h.retrain.Launch()
	if err != nil {
		return h.fail(c, "retrain", err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, status)
}

func (h *ForecastHandler) Reload(c echo.Context) error {
	if err := h.forecasts.Reload(c.Request().Context()); err != nil {
		return h.fail(c, "reload", err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "reloaded"})
}

// fail maps domain errors to HTTP statuses and logs unexpected ones.
func (h *ForecastHandler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, models.ErrUnknownAsset):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()).WithError(err))
	case errors.Is(err, models.ErrInsufficientHistory):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	case errors.Is(err, usecase.ErrModelNotLoaded):
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_MODEL_NOT_LOADED", "", err.Error(), http.StatusServiceUnavailable))
	default:
		h.logger.Error(op+" failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}
