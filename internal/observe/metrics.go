// Package observe records simulation metrics through the OpenTelemetry
// Metrics API. [InitProvider] bridges them to a Prometheus scrape endpoint;
// tests should build [Metrics] over their own [metric.MeterProvider].
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/loop"
	"github.com/threeworlds/loopshift/internal/shift"
)

// meterName is the instrumentation scope name used for all loopshift metrics.
const meterName = "github.com/threeworlds/loopshift"

// Metrics holds the metric instruments for one simulation.
type Metrics struct {
	// WorldShifts counts world broadcasts. Attributes: from, to, reason.
	WorldShifts metric.Int64Counter
	// Resets counts completed loop resets.
	Resets metric.Int64Counter
	// PhaseFlips counts timed-solid flips. Attribute: phase.
	PhaseFlips metric.Int64Counter
	// PreWarnings counts timed-solid pre-warnings.
	PreWarnings metric.Int64Counter
	// Hints counts hint record changes. Attribute: state.
	Hints metric.Int64Counter
	// SaveFailures counts loop memory writes that did not reach the store.
	SaveFailures metric.Int64Counter

	LoopCount metric.Int64Gauge

	// TickDuration tracks the wall time of one simulation tick.
	TickDuration metric.Float64Histogram
}

// tickBuckets are in seconds and centred on a 50ms tick budget.
var tickBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.WorldShifts, err = m.Int64Counter("loopshift.world.shifts",
		metric.WithDescription("World changes by source world, target world and reason."),
	); err != nil {
		return nil, err
	}
	if met.Resets, err = m.Int64Counter("loopshift.world.resets",
		metric.WithDescription("Completed reset-to-checkpoint flows."),
	); err != nil {
		return nil, err
	}
	if met.PhaseFlips, err = m.Int64Counter("loopshift.cycle.flips",
		metric.WithDescription("Timed-solid phase flips by new phase."),
	); err != nil {
		return nil, err
	}
	if met.PreWarnings, err = m.Int64Counter("loopshift.cycle.prewarnings",
		metric.WithDescription("Timed-solid pre-warnings."),
	); err != nil {
		return nil, err
	}
	if met.Hints, err = m.Int64Counter("loopshift.hints.changes",
		metric.WithDescription("Hint record changes by temporal state."),
	); err != nil {
		return nil, err
	}
	if met.SaveFailures, err = m.Int64Counter("loopshift.save.failures",
		metric.WithDescription("Loop memory saves that failed."),
	); err != nil {
		return nil, err
	}
	if met.LoopCount, err = m.Int64Gauge("loopshift.loop.count",
		metric.WithDescription("Current loop count."),
	); err != nil {
		return nil, err
	}
	if met.TickDuration, err = m.Float64Histogram("loopshift.tick.duration",
		metric.WithDescription("Wall time of one simulation tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(tickBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Watch subscribes the instruments to the orchestrator and loop memory.
// Either may be nil. Cancel the returned group to detach.
func (m *Metrics) Watch(orch *shift.Orchestrator, mem *loop.Memory) *event.Subscriptions {
	ctx := context.Background()
	subs := &event.Subscriptions{}
	if orch != nil {
		event.Bind(subs, &orch.WorldShifted, func(ws shift.WorldShift) {
			m.WorldShifts.Add(ctx, 1, metric.WithAttributes(
				attribute.String("from", ws.From.String()),
				attribute.String("to", ws.To.String()),
				attribute.String("reason", ws.Reason.String()),
			))
		})
		event.Bind(subs, &orch.Reset, func(struct{}) {
			m.Resets.Add(ctx, 1)
		})
		if c := orch.Cycle(); c != nil {
			event.Bind(subs, &c.PhaseChanged, func(solid bool) {
				m.PhaseFlips.Add(ctx, 1, metric.WithAttributes(phaseAttr(solid)))
			})
			event.Bind(subs, &c.PreWarning, func(bool) {
				m.PreWarnings.Add(ctx, 1)
			})
		}
	}
	if mem != nil {
		m.LoopCount.Record(ctx, int64(mem.LoopCount()))
		event.Bind(subs, &mem.LoopCountChanged, func(n int) {
			m.LoopCount.Record(ctx, int64(n))
		})
		event.Bind(subs, &mem.HintChanged, func(h loop.HintRecord) {
			m.Hints.Add(ctx, 1, metric.WithAttributes(attribute.String("state", h.State.String())))
		})
		event.Bind(subs, &mem.SaveFailed, func(error) {
			m.SaveFailures.Add(ctx, 1)
		})
	}
	return subs
}

// ObserveTick records one tick's wall time.
func (m *Metrics) ObserveTick(ctx context.Context, d time.Duration) {
	m.TickDuration.Record(ctx, d.Seconds())
}

func phaseAttr(solid bool) attribute.KeyValue {
	if solid {
		return attribute.String("phase", "solid")
	}
	return attribute.String("phase", "ghost")
}
