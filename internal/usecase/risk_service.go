package usecase

import (
	"context"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/service/risk"
	applogger "PriceCast/pkg/logger"
	pkgcache "PriceCast/pkg/cache"
)

// RiskService computes descriptive risk statistics over stored histories.
type RiskService struct {
	prices domrepo.PriceStore
	cache  pkgcache.Service
	logger *applogger.Logger
	ttl    time.Duration
}

func NewRiskService(prices domrepo.PriceStore, cache pkgcache.Service, logger *applogger.Logger, ttl time.Duration) *RiskService {
	return &RiskService{prices: prices, cache: cache, logger: logger, ttl: ttl}
}

// Report returns the risk report for one asset at the given confidence level.
func (s *RiskService) Report(ctx context.Context, asset string, confidence float64) (*models.RiskReport, error) {
	key := pkgcache.GenerateKeyWithParams("risk", asset, confidence)
	if s.cache != nil {
		var cached models.RiskReport
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	history, err := s.prices.History(ctx, asset)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(history))
	for i, b := range history {
		closes[i] = b.Close
	}

	report, err := risk.Analyze(asset, closes, confidence)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report, s.ttl); err != nil {
			s.logger.Warn("risk cache set failed", applogger.Error(err))
		}
	}
	return report, nil
}
