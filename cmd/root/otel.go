package root

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/LucasSabena/codemobile-sub001/pkg/version"
)

// initOTelSDK installs a tracer provider exporting over OTLP/HTTP to
// OTEL_EXPORTER_OTLP_ENDPOINT. Without an endpoint spans are recorded but
// not exported.
func initOTelSDK(ctx context.Context) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", AppName),
			attribute.String("service.version", version.Version),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []trace.TracerProviderOption{trace.WithResource(res)}

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true" {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, trace.WithBatcher(exporter,
			trace.WithBatchTimeout(5*time.Second),
			trace.WithMaxExportBatchSize(512),
		))
	}

	tp := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	go func() {
		<-ctx.Done()
		_ = tp.Shutdown(context.Background())
	}()

	return nil
}
