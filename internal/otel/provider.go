// Package otel provides OpenTelemetry tracer provider initialization and management.
package otel

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"

	"github.com/mrzor/claude-diagnose/internal/config"
)

const exportTimeout = 10 * time.Second

// logProxy records the proxy settings the HTTP exporter will pick up.
func logProxy(logger *zap.Logger) {
	httpProxy := os.Getenv("HTTP_PROXY")
	if httpProxy == "" {
		httpProxy = os.Getenv("http_proxy")
	}
	httpsProxy := os.Getenv("HTTPS_PROXY")
	if httpsProxy == "" {
		httpsProxy = os.Getenv("https_proxy")
	}

	if httpProxy != "" || httpsProxy != "" {
		logger.Debug("proxy configuration", zap.String("http_proxy", httpProxy), zap.String("https_proxy", httpsProxy))
	} else {
		logger.Debug("no proxy configured")
	}
}

// exporterOptions turns an endpoint into otlptracehttp options. A value with a
// scheme is treated as a full URL; a bare host:port is plain HTTP.
func exporterOptions(endpoint string) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithTimeout(exportTimeout)}
	if strings.Contains(endpoint, "://") {
		return append(opts, otlptracehttp.WithEndpointURL(endpoint))
	}
	return append(opts,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
}

// InitProvider builds a tracer provider exporting over OTLP/HTTP. Spans are
// batched and flushed by ShutdownProvider.
//
// Note: the HTTP client honors HTTP_PROXY, HTTPS_PROXY, and NO_PROXY through
// net/http's default transport.
func InitProvider(ctx context.Context, cfg *config.OTELConfig, version string, logger *zap.Logger) (*sdktrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	endpoint := cfg.TracesURL()
	logger.Debug("otel configuration",
		zap.String("service", cfg.ServiceName),
		zap.String("endpoint", endpoint),
		zap.String("resource_attributes", cfg.Attributes),
	)
	logProxy(logger)

	exporter, err := otlptracehttp.New(ctx, exporterOptions(endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res, err := newResource(ctx, cfg, version)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithIDGenerator(NewIDGenerator()),
	)

	return tp, nil
}

func newResource(ctx context.Context, cfg *config.OTELConfig, version string) (*resource.Resource, error) {
	resourceAttrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	}
	if version != "" {
		resourceAttrs = append(resourceAttrs, resource.WithAttributes(semconv.ServiceVersion(version)))
	}
	if customAttrs := cfg.ResourceAttributes(); len(customAttrs) > 0 {
		resourceAttrs = append(resourceAttrs, resource.WithAttributes(customAttrs...))
	}

	res, err := resource.New(ctx, resourceAttrs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// ShutdownProvider gracefully shuts down the tracer provider, flushing any remaining spans.
func ShutdownProvider(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}

	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}

	return nil
}
