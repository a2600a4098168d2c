package usecase

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"PriceCast/internal/domain/models"
	applogger "PriceCast/pkg/logger"
)

// RetrainLauncher starts the training binary as a detached process so a long
// retrain never blocks or dies with the API server. Only one retrain may run
// at a time.
type RetrainLauncher struct {
	binary     string
	configPath string
	logger     *applogger.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewRetrainLauncher(binary, configPath string, logger *applogger.Logger) *RetrainLauncher {
	return &RetrainLauncher{binary: binary, configPath: configPath, logger: logger}
}

// Launch starts training in the background and returns its PID.
func (r *RetrainLauncher) Launch() (*models.RetrainStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil && r.cmd.Process != nil {
		if err := r.cmd.Process.Signal(syscall.Signal(0)); err == nil {
			return &models.RetrainStatus{
				Status:  "already_running",
				Message: "a retrain is already in progress",
				PID:     r.cmd.Process.Pid,
			}, nil
		}
	}

	cmd := exec.Command(r.binary, "-config", r.configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// new session: the trainer survives an API server restart
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start trainer: %w", err)
	}
	r.cmd = cmd

	// reap the child so a finished trainer does not linger as a zombie
	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		if r.cmd == cmd {
			r.cmd = nil
		}
		r.mu.Unlock()
		if err != nil {
			r.logger.Error("retrain process exited with error", applogger.Error(err))
			return
		}
		r.logger.Info("retrain process finished", applogger.Int("pid", cmd.Process.Pid))
	}()

	r.logger.Info("retrain started",
		applogger.String("binary", r.binary),
		applogger.Int("pid", cmd.Process.Pid),
	)
	return &models.RetrainStatus{
		Status:  "started",
		Message: "training started in background",
		PID:     cmd.Process.Pid,
	}, nil
}
