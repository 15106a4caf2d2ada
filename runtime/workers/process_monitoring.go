package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"private-groups/observability"

	"github.com/shirou/gopsutil/process"
)

// ProcessMonitoringWorker exports the memory and CPU usage of the node.
type ProcessMonitoringWorker struct {
	log            *slog.Logger
	metrics        *observability.Metrics
	metricInterval time.Duration
}

func NewProcessMonitoringWorker(log *slog.Logger, metrics *observability.Metrics, metricInterval time.Duration) *ProcessMonitoringWorker {
	return &ProcessMonitoringWorker{log: log, metrics: metrics, metricInterval: metricInterval}
}

func (w *ProcessMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process monitoring")
			return nil
		case <-ticker.C:
			if err = w.sample(p); err != nil {
				w.log.Debug("Failed to collect self stats", "error", err)
			}
		}
	}
}

func (w *ProcessMonitoringWorker) sample(p *process.Process) error {
	mem, err := p.MemoryInfo()
	if err != nil {
		return err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return err
	}
	w.metrics.Process(mem.RSS, cpu)
	return nil
}
