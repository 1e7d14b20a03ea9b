package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// OtelPusher exports keepd's gauge values to an OTLP/gRPC collector. It is
// wired as the housekeeper scheduler's OtelMetrics push hook
// (housekeeper.Scheduler.SetOtelPusher), called once per OTEL_PUSH_INTERVAL
// tick rather than on Prometheus's pull cadence.
type OtelPusher struct {
	exporter *otlpmetricgrpc.Exporter
	reader   *sdkmetric.ManualReader
}

// NewOtelPusher dials endpoint and registers observable gauges mirroring
// UserCount/DomainCount/ServerMemory from their atomic values (kept current
// by Collector.UpdateGauge).
func NewOtelPusher(ctx context.Context, endpoint string) (*OtelPusher, error) {
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otlp metric exporter: %w", err)
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("keepd.housekeeper")

	if _, err := meter.Int64ObservableGauge("keepd.directory.user_count",
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(userCountValue.Load()))
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("registering user_count gauge: %w", err)
	}

	if _, err := meter.Int64ObservableGauge("keepd.directory.domain_count",
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(domainCountValue.Load()))
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("registering domain_count gauge: %w", err)
	}

	if _, err := meter.Int64ObservableGauge("keepd.server.memory_bytes",
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(serverMemoryValue.Load()))
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("registering server_memory gauge: %w", err)
	}

	return &OtelPusher{exporter: exporter, reader: reader}, nil
}

// Push collects the current gauge values and exports them. Its signature
// matches housekeeper.OtelPusher exactly, so it is passed directly to
// Scheduler.SetOtelPusher.
func (p *OtelPusher) Push(ctx context.Context) error {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collecting otel metrics: %w", err)
	}
	if err := p.exporter.Export(ctx, &rm); err != nil {
		return fmt.Errorf("exporting otel metrics: %w", err)
	}
	return nil
}

// Shutdown flushes and closes the underlying exporter.
func (p *OtelPusher) Shutdown(ctx context.Context) error {
	return p.exporter.Shutdown(ctx)
}
