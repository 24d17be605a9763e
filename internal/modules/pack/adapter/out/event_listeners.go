package out

import (
	"context"
	"log/slog"

	"memestickers/internal/modules/pack/domain"
	"memestickers/internal/platform/logging"
	"memestickers/internal/platform/metrics"
)

// MetricsListener counts transitions by pack and state.
type MetricsListener struct {
	metrics metrics.Metrics
}

func NewMetricsListener(m metrics.Metrics) *MetricsListener {
	if m == nil {
		m = metrics.Noop{}
	}
	return &MetricsListener{metrics: m}
}

func (l *MetricsListener) OnPackEvent(_ context.Context, event domain.PackEvent) error {
	l.metrics.IncPackEvent(event.PackName, string(event.State))
	return nil
}

// LogListener writes each transition to the structured log; ERROR at warn.
type LogListener struct {
	logger *slog.Logger
}

func NewLogListener(logger *slog.Logger) *LogListener {
	return &LogListener{logger: logging.OrDiscard(logger)}
}

func (l *LogListener) OnPackEvent(ctx context.Context, event domain.PackEvent) error {
	attrs := []any{"pack", event.PackName, "state", string(event.State)}
	if event.State == domain.StateError {
		l.logger.WarnContext(ctx, "pack lifecycle error", append(attrs, "err", event.Error)...)
		return nil
	}
	l.logger.InfoContext(ctx, "pack lifecycle", attrs...)
	return nil
}
