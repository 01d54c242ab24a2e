package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/quillboard/taskapi/ext"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/quillboard/taskapi/observability"

// Compile-time interface checks.
var (
	_ ext.Extension     = (*MetricsExtension)(nil)
	_ ext.TaskStarted   = (*MetricsExtension)(nil)
	_ ext.TaskCompleted = (*MetricsExtension)(nil)
	_ ext.TaskFailed    = (*MetricsExtension)(nil)
	_ ext.ActionApplied = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics via OpenTelemetry.
// Register it as an engine extension to automatically track task starts,
// completions, request-level failures, and applied mutations.
type MetricsExtension struct {
	started   metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
	applied   metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global OTel
// MeterProvider. Without a configured provider the counters are noops.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided
// meter. Use a ManualReader-backed provider for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	// On error the OTel API returns noop instruments, so the extension
	// degrades gracefully.
	started, _ := meter.Int64Counter(
		"taskapi.task.started",
		metric.WithDescription("Total tasks that began executing"),
		metric.WithUnit("{task}"),
	)
	completed, _ := meter.Int64Counter(
		"taskapi.task.completed",
		metric.WithDescription("Total tasks that finished with a result sequence"),
		metric.WithUnit("{task}"),
	)
	failed, _ := meter.Int64Counter(
		"taskapi.task.failed",
		metric.WithDescription("Total tasks that failed with a request-level error"),
		metric.WithUnit("{task}"),
	)
	applied, _ := meter.Int64Counter(
		"taskapi.action.applied",
		metric.WithDescription("Total mutating actions that succeeded"),
		metric.WithUnit("{action}"),
	)
	return &MetricsExtension{
		started:   started,
		completed: completed,
		failed:    failed,
		applied:   applied,
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnTaskStarted implements ext.TaskStarted.
func (m *MetricsExtension) OnTaskStarted(ctx context.Context, t *task.Task) error {
	m.started.Add(ctx, 1, kindAttr(t))
	return nil
}

// OnTaskCompleted implements ext.TaskCompleted.
func (m *MetricsExtension) OnTaskCompleted(ctx context.Context, t *task.Task, _ time.Duration) error {
	m.completed.Add(ctx, 1, kindAttr(t))
	return nil
}

// OnTaskFailed implements ext.TaskFailed.
func (m *MetricsExtension) OnTaskFailed(ctx context.Context, t *task.Task, _ error) error {
	m.failed.Add(ctx, 1, kindAttr(t))
	return nil
}

// OnActionApplied implements ext.ActionApplied.
func (m *MetricsExtension) OnActionApplied(ctx context.Context, ev *thing.Event) error {
	m.applied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", ev.Type),
	))
	return nil
}

func kindAttr(t *task.Task) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("task_kind", t.Discriminator()),
	)
}
