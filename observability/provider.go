// Package observability builds the OpenTelemetry tracer provider that receives
// the client's call spans.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gaborage/go-bricks-httpx/config"
	"github.com/gaborage/go-bricks-httpx/logger"
)

const (
	// EndpointStdout is a special endpoint value that writes spans to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"
)

// Provider manages the lifecycle of the tracer provider.
type Provider interface {
	// TracerProvider returns the configured trace provider.
	TracerProvider() trace.TracerProvider

	// Shutdown flushes pending spans and stops the exporter.
	Shutdown(ctx context.Context) error

	// ForceFlush immediately exports any pending spans.
	ForceFlush(ctx context.Context) error
}

type provider struct {
	config         config.TraceConfig
	app            config.AppConfig
	tracerProvider *sdktrace.TracerProvider
	log            logger.Logger
	stdout         io.Writer
	mu             sync.Mutex
}

// NewProvider creates a tracer provider from cfg and installs it, together
// with the W3C trace context propagator, as the global provider.
// When tracing is disabled a no-op provider is returned and globals are untouched.
func NewProvider(cfg *config.Config, log logger.Logger) (Provider, error) {
	return newProvider(cfg, log, os.Stdout)
}

func newProvider(cfg *config.Config, log logger.Logger, stdout io.Writer) (Provider, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	log = logger.OrNop(log)

	if !cfg.Trace.Enabled {
		log.Debug().Msg("Tracing disabled, using no-op tracer provider")
		return newNoopProvider(), nil
	}

	p := &provider{
		config: cfg.Trace,
		app:    cfg.App,
		log:    log,
		stdout: stdout,
	}
	if err := p.initTraceProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize trace provider: %w", err)
	}

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Str("endpoint", p.config.Endpoint).
		Str("protocol", p.config.Protocol).
		Msg("Tracer provider initialized")
	return p, nil
}

func (p *provider) initTraceProvider() error {
	res, err := p.createResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := p.createTraceExporter()
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	var processor sdktrace.SpanProcessor
	if p.config.Endpoint == EndpointStdout {
		// stdout exports each span as soon as it ends.
		processor = sdktrace.NewSimpleSpanProcessor(exporter)
	} else {
		processor = sdktrace.NewBatchSpanProcessor(exporter)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.config.SampleRate))),
	)
	return nil
}

func (p *provider) createResource() (*resource.Resource, error) {
	customRes, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(p.app.Name),
			semconv.ServiceVersion(p.app.Version),
			semconv.DeploymentEnvironmentName(p.config.Environment),
		),
	)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), customRes)
}

func (p *provider) createTraceExporter() (sdktrace.SpanExporter, error) {
	if p.config.Endpoint == EndpointStdout {
		return stdouttrace.New(
			stdouttrace.WithWriter(p.stdout),
			stdouttrace.WithPrettyPrint(),
		)
	}

	switch p.config.Protocol {
	case ProtocolHTTP:
		return p.createOTLPHTTPExporter()
	case ProtocolGRPC:
		return p.createOTLPGRPCExporter()
	default:
		return nil, fmt.Errorf("trace protocol '%s': %w", p.config.Protocol, ErrInvalidProtocol)
	}
}

func hasScheme(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}

func (p *provider) createOTLPHTTPExporter() (sdktrace.SpanExporter, error) {
	var opts []otlptracehttp.Option
	if hasScheme(p.config.Endpoint) {
		opts = append(opts, otlptracehttp.WithEndpointURL(p.config.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(p.config.Endpoint))
	}
	if p.config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(p.config.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(p.config.Headers))
	}
	return otlptracehttp.New(context.Background(), opts...)
}

func (p *provider) createOTLPGRPCExporter() (sdktrace.SpanExporter, error) {
	if hasScheme(p.config.Endpoint) {
		return nil, fmt.Errorf("grpc endpoint %q: %w", p.config.Endpoint, ErrInvalidEndpointFormat)
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(p.config.Endpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if len(p.config.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(p.config.Headers))
	}
	return otlptracegrpc.New(context.Background(), opts...)
}

// TracerProvider returns the configured trace provider.
func (p *provider) TracerProvider() trace.TracerProvider {
	return p.tracerProvider
}

// Shutdown flushes pending spans and stops the exporter.
func (p *provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown trace provider: %w", err)
	}
	return nil
}

// ForceFlush immediately exports any pending spans.
func (p *provider) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.tracerProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("failed to flush trace provider: %w", err)
	}
	return nil
}
