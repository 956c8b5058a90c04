package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/components/logging"
	"github.com/JiHungLin/Skalds/internal/consts"
)

// TelemetryComponent installs the global OTel tracer provider. The HTTP
// server's otelchi middleware picks it up implicitly.
type TelemetryComponent struct {
	*core.BaseComponent
	cfg *Config
	tp  *sdktrace.TracerProvider
}

func NewTelemetryComponent(cfg *Config) *TelemetryComponent {
	return &TelemetryComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_TELEMETRY, consts.COMPONENT_LOGGING),
		cfg:           cfg,
	}
}

func (tc *TelemetryComponent) Start(ctx context.Context) error {
	if err := tc.BaseComponent.Start(ctx); err != nil {
		return err
	}
	if tc.cfg == nil || !tc.cfg.Enabled {
		return errors.New("telemetry disabled or missing config")
	}
	tc.cfg.applyDefaults()
	if tc.cfg.ServiceName == "" {
		return errors.New("telemetry service name must be injected from app_info")
	}

	res, err := resource.New(ctx,
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(tc.cfg.ServiceName)),
	)
	if err != nil {
		return fmt.Errorf("resource init: %w", err)
	}

	exporter, err := tc.buildExporter(ctx)
	if err != nil {
		return err
	}

	tc.tp = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tc.cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tc.tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logging.Info(ctx, "telemetry component started",
		zap.String("exporter", string(tc.cfg.Exporter)),
		zap.Float64("sample_ratio", tc.cfg.SampleRatio),
	)
	return nil
}

func (tc *TelemetryComponent) buildExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	switch tc.cfg.Exporter {
	case ExporterOTLP:
		if tc.cfg.OTLP == nil || tc.cfg.OTLP.Endpoint == "" {
			return nil, errors.New("otlp exporter requires otlp.endpoint")
		}
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(tc.cfg.OTLP.Endpoint),
			otlptracegrpc.WithTimeout(tc.cfg.OTLP.Timeout),
		}
		if tc.cfg.OTLP.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ExporterStdout:
		return stdouttrace.New()
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", tc.cfg.Exporter)
	}
}

func (tc *TelemetryComponent) Stop(ctx context.Context) error {
	if tc.tp != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := tc.tp.Shutdown(stopCtx); err != nil {
			logging.Errorf(ctx, "tracer provider shutdown failed: %v", err)
		}
		tc.tp = nil
	}
	return tc.BaseComponent.Stop(ctx)
}
