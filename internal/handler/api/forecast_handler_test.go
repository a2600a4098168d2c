package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"PriceCast/internal/artifact"
	"PriceCast/internal/domain/models"
	"PriceCast/internal/forecast"
	"PriceCast/internal/model"
	"PriceCast/internal/registry"
	"PriceCast/internal/repository"
	"PriceCast/internal/usecase"
	xlogger "PriceCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// fakePriceStore serves fixed histories from memory.
type fakePriceStore struct {
	histories map[string][]models.PriceBar
}

func (f *fakePriceStore) ListAssets(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(f.histories))
	for a := range f.histories {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakePriceStore) History(ctx context.Context, asset string) ([]models.PriceBar, error) {
	h, ok := f.histories[asset]
	if !ok {
		return nil, models.ErrUnknownAsset
	}
	return h, nil
}

func (f *fakePriceStore) Health(ctx context.Context) error { return nil }
func (f *fakePriceStore) Close() error                     { return nil }

func bars(prices ...float64) []models.PriceBar {
	out := make([]models.PriceBar, len(prices))
	for i, p := range prices {
		out[i] = models.PriceBar{Close: p}
	}
	return out
}

func testHandler(t *testing.T) (*ForecastHandler, *usecase.ForecastService) {
	t.Helper()
	const seqLen = 4

	logger, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	prices := &fakePriceStore{histories: map[string][]models.PriceBar{
		"gold": bars(100, 101, 102, 103, 104, 105, 106, 108),
	}}

	reg := registry.New(seqLen)
	if _, err := reg.Register("gold", []float64{100, 101, 102, 103, 104, 105, 106, 108}); err != nil {
		t.Fatalf("register: %v", err)
	}
	net, err := model.New(model.DefaultConfig(seqLen, reg.Len()), 1)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	bundle := artifact.New(net, reg, artifact.TrainingInfo{Epochs: 1})

	artifacts := repository.NewFSArtifactStore(filepath.Join(t.TempDir(), "artifact.json"))
	if err := artifacts.Save(context.Background(), bundle); err != nil {
		t.Fatalf("save artifact: %v", err)
	}

	forecasts := usecase.NewForecastService(
		prices, artifacts, nil, nil, nil, logger, forecast.DefaultPolicy(), time.Minute)
	risks := usecase.NewRiskService(prices, nil, logger, time.Minute)

	return NewForecastHandler(logger, forecasts, risks, nil, nil), forecasts
}

func doRequest(t *testing.T, h *ForecastHandler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestPredictEndpoint(t *testing.T) {
	h, forecasts := testHandler(t)
	if err := forecasts.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/api/predict/gold?days=7")
	env := decode(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, body = %s", env.Status, rec.Body.String())
	}

	var f models.Forecast
	if err := json.Unmarshal(env.Data, &f); err != nil {
		t.Fatalf("decode forecast: %v", err)
	}
	if f.Asset != "gold" || f.HorizonDays != 7 {
		t.Fatalf("forecast = %+v", f)
	}
	if !(f.Q10 <= f.Q50 && f.Q50 <= f.Q90) {
		t.Fatalf("unordered quantiles: %+v", f)
	}
}

func TestPredictUnknownAsset(t *testing.T) {
	h, forecasts := testHandler(t)
	if err := forecasts.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/api/predict/nosuch")
	env := decode(t, rec)
	if env.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", env.Status)
	}
}

func TestPredictModelNotLoaded(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/api/predict/gold")
	env := decode(t, rec)
	if env.Status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", env.Status)
	}
}

func TestAssetsEndpoint(t *testing.T) {
	h, forecasts := testHandler(t)
	if err := forecasts.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/api/assets")
	env := decode(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d", env.Status)
	}
	var infos []AssetInfo
	if err := json.Unmarshal(env.Data, &infos); err != nil {
		t.Fatalf("decode assets: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "gold" || infos[0].Category != "commodities" {
		t.Fatalf("assets = %+v", infos)
	}
}

func TestRiskEndpoint(t *testing.T) {
	h, forecasts := testHandler(t)
	if err := forecasts.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/api/risk/gold")
	env := decode(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, body = %s", env.Status, rec.Body.String())
	}
	var report models.RiskReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Asset != "gold" {
		t.Fatalf("report = %+v", report)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, forecasts := testHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/api/health")
	env := decode(t, rec)
	var status HealthStatus
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if status.ModelLoaded || status.Status != "degraded" {
		t.Fatalf("health before load = %+v", status)
	}

	if err := forecasts.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	rec = doRequest(t, h, http.MethodGet, "/api/health")
	env = decode(t, rec)
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !status.ModelLoaded || status.Status != "ok" {
		t.Fatalf("health after load = %+v", status)
	}
}

func TestCategoryEndpoint(t *testing.T) {
	h, forecasts := testHandler(t)
	if err := forecasts.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/api/category/commodities")
	env := decode(t, rec)
	var assets []string
	if err := json.Unmarshal(env.Data, &assets); err != nil {
		t.Fatalf("decode category: %v", err)
	}
	if len(assets) != 1 || assets[0] != "gold" {
		t.Fatalf("assets = %v", assets)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/category/crypto")
	env = decode(t, rec)
	assets = nil
	if err := json.Unmarshal(env.Data, &assets); err != nil {
		t.Fatalf("decode category: %v", err)
	}
	if len(assets) != 0 {
		t.Fatalf("crypto assets = %v, want none", assets)
	}
}
