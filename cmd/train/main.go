package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PriceCast/internal/dataset"
	"PriceCast/internal/di"
	"PriceCast/internal/repository"
	"PriceCast/internal/training"
	"PriceCast/pkg/config"
	applogger "PriceCast/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	// SIGINT/SIGTERM cancels training cleanly, keeping the previous artifact
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := di.ProvidePriceStore(cfg, l)
	if err != nil {
		l.Error("price store init failed", applogger.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	dsCfg := dataset.DefaultConfig()
	if cfg.Model.SeqLen > 0 {
		dsCfg.SeqLen = cfg.Model.SeqLen
	}
	if cfg.Data.LookbackDays > 0 {
		dsCfg.LookbackDays = cfg.Data.LookbackDays
	}

	start := time.Now()
	data, err := dataset.NewBuilder(store, l, dsCfg).Build(ctx)
	if err != nil {
		l.Error("dataset build failed", applogger.Error(err))
		os.Exit(1)
	}
	l.Info("dataset built",
		applogger.Int("examples", len(data.Examples)),
		applogger.Int("assets", data.Registry.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)

	trCfg := training.DefaultConfig()
	if cfg.Training.Epochs > 0 {
		trCfg.Epochs = cfg.Training.Epochs
	}
	if cfg.Training.BatchSize > 0 {
		trCfg.BatchSize = cfg.Training.BatchSize
	}
	if cfg.Training.LearningRate > 0 {
		trCfg.LearningRate = cfg.Training.LearningRate
	}
	if cfg.Training.ValSplit > 0 {
		trCfg.ValSplit = cfg.Training.ValSplit
	}
	if cfg.Training.EarlyStopPatience > 0 {
		trCfg.EarlyStopPatience = cfg.Training.EarlyStopPatience
	}
	if cfg.Training.PlateauPatience > 0 {
		trCfg.PlateauPatience = cfg.Training.PlateauPatience
	}
	if cfg.Training.Seed != 0 {
		trCfg.Seed = cfg.Training.Seed
	}

	bundle, err := training.New(l, trCfg).Train(ctx, data)
	if err != nil {
		l.Error("training failed", applogger.Error(err))
		os.Exit(1)
	}

	artifacts := repository.NewFSArtifactStore(cfg.Model.ArtifactPath)
	if err := artifacts.Save(ctx, bundle); err != nil {
		l.Error("artifact save failed", applogger.Error(err))
		os.Exit(1)
	}
	l.Info("artifact saved",
		applogger.String("path", cfg.Model.ArtifactPath),
		applogger.Float64("best_val_loss", bundle.Training.BestValLoss),
		applogger.Duration("total_ms", time.Since(start)),
	)
}
