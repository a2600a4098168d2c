package training

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"PriceCast/internal/artifact"
	"PriceCast/internal/dataset"
	"PriceCast/internal/model"
	xlogger "PriceCast/pkg/logger"
)

// Config controls the fitting schedule.
type Config struct {
	Epochs            int
	BatchSize         int
	LearningRate      float64
	ValSplit          float64
	EarlyStopPatience int
	PlateauPatience   int
	PlateauFactor     float64
	MinLR             float64
	Seed              int64
}

// DefaultConfig mirrors the schedule the model was tuned with.
func DefaultConfig() Config {
	return Config{
		Epochs:            20,
		BatchSize:         256,
		LearningRate:      1e-3,
		ValSplit:          0.1,
		EarlyStopPatience: 5,
		PlateauPatience:   3,
		PlateauFactor:     0.5,
		MinLR:             1e-6,
		Seed:              42,
	}
}

// Trainer fits the shared quantile network against the full example set from
// all assets jointly.
type Trainer struct {
	logger *xlogger.Logger
	cfg    Config
}

func New(logger *xlogger.Logger, cfg Config) *Trainer {
	if cfg.Epochs <= 0 {
		cfg = DefaultConfig()
	}
	return &Trainer{logger: logger, cfg: cfg}
}

// Train builds a network over the dataset and returns the persistable bundle
// holding the best-validation-loss snapshot, not necessarily the final
// epoch's weights. A non-finite loss aborts without producing an artifact.
func (t *Trainer) Train(ctx context.Context, data *dataset.Result) (*artifact.Bundle, error) {
	if data == nil || len(data.Examples) == 0 {
		return nil, fmt.Errorf("train: empty dataset")
	}

	cfg := t.cfg
	rng := rand.New(rand.NewSource(cfg.Seed))

	netCfg := model.DefaultConfig(data.Registry.SeqLen(), data.Registry.Len())
	net, err := model.New(netCfg, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("build network: %w", err)
	}
	opt := model.NewAdam(len(net.Params()), cfg.LearningRate)

	// shuffled split: tail becomes the validation fold
	order := rng.Perm(len(data.Examples))
	valN := int(float64(len(order)) * cfg.ValSplit)
	trainIdx := order[:len(order)-valN]
	valIdx := order[len(order)-valN:]

	t.logger.Info("training started",
		xlogger.Int("examples", len(data.Examples)),
		xlogger.Int("train", len(trainIdx)),
		xlogger.Int("val", len(valIdx)),
		xlogger.Int("assets", data.Registry.Len()),
		xlogger.Int("epochs", cfg.Epochs))

	var (
		bestSnapshot []float64
		bestValLoss  = math.Inf(1)
		bestTrain    = math.Inf(1)
		stopWait     = 0
		plateauWait  = 0
		epochsRun    = 0
	)

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training cancelled: %w", err)
		}
		epochsRun = epoch

		rng.Shuffle(len(trainIdx), func(i, j int) {
			trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i]
		})

		trainLoss, err := t.runEpoch(ctx, net, opt, data.Examples, trainIdx)
		if err != nil {
			return nil, err
		}
		valLoss := t.meanLoss(net, data.Examples, valIdx)
		if math.IsNaN(valLoss) || math.IsInf(valLoss, 0) {
			return nil, fmt.Errorf("training diverged at epoch %d: non-finite validation loss", epoch)
		}

		t.logger.Info("epoch finished",
			xlogger.Int("epoch", epoch),
			xlogger.Float64("loss", trainLoss),
			xlogger.Float64("val_loss", valLoss),
			xlogger.Float64("lr", opt.LR()))

		// checkpoint on best validation loss
		monitored := valLoss
		if len(valIdx) == 0 {
			monitored = trainLoss
		}
		if monitored < bestValLoss {
			bestValLoss = monitored
			bestSnapshot = net.SnapshotParams()
		}

		// early stopping and LR decay both watch the training loss plateau
		if trainLoss < bestTrain {
			bestTrain = trainLoss
			stopWait = 0
			plateauWait = 0
		} else {
			stopWait++
			plateauWait++
			if plateauWait >= cfg.PlateauPatience {
				next := math.Max(opt.LR()*cfg.PlateauFactor, cfg.MinLR)
				if next < opt.LR() {
					t.logger.Info("reducing learning rate on plateau",
						xlogger.Float64("lr", next))
					opt.SetLR(next)
				}
				plateauWait = 0
			}
			if stopWait >= cfg.EarlyStopPatience {
				t.logger.Info("early stopping", xlogger.Int("epoch", epoch))
				break
			}
		}
	}

	if bestSnapshot != nil {
		if err := net.RestoreParams(bestSnapshot); err != nil {
			return nil, fmt.Errorf("restore checkpoint: %w", err)
		}
	}

	eval := Evaluate(net, data)
	intervals := IntervalWidths(net, data.Examples)

	t.logger.Info("training complete",
		xlogger.Int("epochs_run", epochsRun),
		xlogger.Float64("best_val_loss", bestValLoss),
		xlogger.Float64("mean_total_interval", intervals.MeanTotal))

	info := artifact.TrainingInfo{
		Epochs:      epochsRun,
		Examples:    len(data.Examples),
		BestValLoss: bestValLoss,
		FinalLR:     opt.LR(),
		Evaluation:  eval,
		Intervals:   intervals,
	}
	return artifact.New(net, data.Registry, info), nil
}

// runEpoch performs one pass of mini-batch updates and returns the mean
// per-example loss.
func (t *Trainer) runEpoch(ctx context.Context, net model.Network, opt *model.Adam, examples []dataset.Example, idx []int) (float64, error) {
	total := 0.0
	count := 0

	for start := 0; start < len(idx); start += t.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("training cancelled: %w", err)
		}
		end := start + t.cfg.BatchSize
		if end > len(idx) {
			end = len(idx)
		}

		net.ZeroGrads()
		batchLoss := 0.0
		for _, i := range idx[start:end] {
			ex := examples[i]
			batchLoss += net.Backward(ex.Window, ex.AssetIndex, ex.Target)
		}
		size := float64(end - start)
		if math.IsNaN(batchLoss) || math.IsInf(batchLoss, 0) {
			return 0, fmt.Errorf("training diverged: non-finite batch loss")
		}

		grads := net.Grads()
		for i := range grads {
			grads[i] /= size
		}
		opt.Step(net.Params(), grads)

		total += batchLoss
		count += end - start
	}

	if count == 0 {
		return 0, fmt.Errorf("train: no batches")
	}
	return total / float64(count), nil
}

// meanLoss computes forward-only mean summed pinball loss over a fold.
func (t *Trainer) meanLoss(net model.Network, examples []dataset.Example, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	total := 0.0
	for _, i := range idx {
		ex := examples[i]
		q := net.Forward(ex.Window, ex.AssetIndex)
		total += model.Pinball(model.Levels[0], ex.Target, q.Q10) +
			model.Pinball(model.Levels[1], ex.Target, q.Q50) +
			model.Pinball(model.Levels[2], ex.Target, q.Q90)
	}
	return total / float64(len(idx))
}
