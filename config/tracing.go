package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/akeren/raine-waitlist/internal/log"
	"github.com/akeren/raine-waitlist/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const defaultTracesPath = "/v1/traces"

// otlpTarget is what otlptracehttp needs from OTEL_EXPORTER_OTLP_ENDPOINT.
type otlpTarget struct {
	hostport string
	path     string
	insecure bool
}

func (t otlpTarget) options() []otlptracehttp.Option {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(t.hostport),
		otlptracehttp.WithURLPath(t.path),
	}
	if t.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// SetupTracing installs a global tracer provider when OTEL_TRACES_ENABLED is set.
// The returned shutdown func is nil when tracing is off.
func SetupTracing(logger *log.Logger) (func(context.Context) error, error) {
	settings := utils.LoadTracingSettings()
	if !settings.Enabled {
		return nil, nil
	}

	target, err := parseOTLPEndpoint(settings.Endpoint)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx, target.options()...)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", settings.ServiceName),
		attribute.String("deployment.environment", GetAppEnv()),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(settings.SampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.Info("OpenTelemetry tracing enabled",
		"service", settings.ServiceName,
		"endpoint", settings.Endpoint,
		"sample_ratio", settings.SampleRatio,
	)

	return tp.Shutdown, nil
}

// parseOTLPEndpoint accepts "http(s)://host:port[/path]" or a bare "host:port".
// A bare host:port is exported over plain HTTP.
func parseOTLPEndpoint(raw string) (otlpTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return otlpTarget{}, fmt.Errorf("empty OTLP endpoint")
	}

	if !strings.Contains(raw, "://") {
		if strings.ContainsAny(raw, "/?#") {
			return otlpTarget{}, fmt.Errorf("OTLP endpoint %q has a path but no scheme; use http://host:port/path", raw)
		}
		return otlpTarget{hostport: raw, path: defaultTracesPath, insecure: true}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return otlpTarget{}, fmt.Errorf("OTLP endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return otlpTarget{}, fmt.Errorf("OTLP endpoint %q: missing host", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return otlpTarget{}, fmt.Errorf("OTLP endpoint %q: scheme must be http or https", raw)
	}

	path := u.EscapedPath()
	if path == "" || path == "/" {
		path = defaultTracesPath
	}

	return otlpTarget{hostport: u.Host, path: path, insecure: scheme == "http"}, nil
}
