package telemetry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/groupchat/config"
)

// InstrumentationName is the scope under which the chat tracer and meter are created.
const InstrumentationName = "github.com/BaSui01/groupchat"

// Session describes the group chat a process runs. Its fields become
// resource attributes, so every span and data point of the run carries them.
type Session struct {
	Members  []string
	Selector string
	MaxRound int
	Model    string
}

func (s Session) attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if len(s.Members) > 0 {
		attrs = append(attrs, attribute.StringSlice("groupchat.members", s.Members))
	}
	if s.Selector != "" {
		attrs = append(attrs, attribute.String("groupchat.selector", s.Selector))
	}
	if s.MaxRound > 0 {
		attrs = append(attrs, attribute.Int("groupchat.max_round", s.MaxRound))
	}
	if s.Model != "" {
		attrs = append(attrs, attribute.String("groupchat.llm.model", s.Model))
	}
	return attrs
}

// SessionFromConfig collects the session attributes from cfg.
func SessionFromConfig(cfg *config.Config) Session {
	ac := cfg.Agents
	return Session{
		Members:  []string{ac.Admin.Name, ac.Coder.Name, ac.Runner.Name, ac.Reviewer.Name},
		Selector: cfg.Chat.Selector,
		MaxRound: cfg.Chat.MaxRound,
		Model:    cfg.LLM.Model,
	}
}

// Option customizes Init.
type Option func(*options)

type options struct {
	session      Session
	spanExporter sdktrace.SpanExporter
	metricReader sdkmetric.Reader
}

// WithSession attaches session attributes to the resource.
func WithSession(s Session) Option {
	return func(o *options) { o.session = s }
}

// WithSpanExporter replaces the OTLP trace exporter.
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.spanExporter = exp }
}

// WithMetricReader replaces the periodic OTLP metric reader.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.metricReader = r }
}

// Providers holds the SDK providers of one run. Both are nil when telemetry
// is disabled, and every method then falls back to the global providers.
type Providers struct {
	tp  *sdktrace.TracerProvider
	mp  *sdkmetric.MeterProvider
	res *resource.Resource
}

// Init sets up tracing and metrics for a chat run and installs them as the
// global providers. Disabled telemetry connects to nothing.
func Init(cfg config.TelemetryConfig, logger *zap.Logger, opts ...Option) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "telemetry"))

	if !cfg.Enabled {
		logger.Info("telemetry disabled, using noop providers")
		return &Providers{}, nil
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	res, err := newResource(ctx, cfg, o.session)
	if err != nil {
		return nil, err
	}

	spanExporter := o.spanExporter
	if spanExporter == nil {
		if spanExporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		); err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
	}

	reader := o.metricReader
	if reader == nil {
		metricExporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(metricExporter)
	}

	// round spans must follow the session span's sampling decision
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry initialized",
		zap.String("endpoint", cfg.OTLPEndpoint),
		zap.String("service_name", cfg.ServiceName),
		zap.Float64("sample_rate", cfg.SampleRate),
		zap.Strings("members", o.session.Members),
		zap.String("selector", o.session.Selector))

	return &Providers{tp: tp, mp: mp, res: res}, nil
}

func newResource(ctx context.Context, cfg config.TelemetryConfig, s Session) (*resource.Resource, error) {
	attrs := append([]attribute.KeyValue{
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(buildVersion()),
	}, s.attributes()...)

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}
	return res, nil
}

// Enabled reports whether SDK providers were created.
func (p *Providers) Enabled() bool {
	return p != nil && p.tp != nil
}

// Resource returns the resource shared by traces and metrics, nil when
// disabled.
func (p *Providers) Resource() *resource.Resource {
	if p == nil {
		return nil
	}
	return p.res
}

// Tracer returns the chat tracer.
func (p *Providers) Tracer() trace.Tracer {
	if p.Enabled() {
		return p.tp.Tracer(InstrumentationName)
	}
	return otel.Tracer(InstrumentationName)
}

// Meter returns the chat meter.
func (p *Providers) Meter() metric.Meter {
	if p != nil && p.mp != nil {
		return p.mp.Meter(InstrumentationName)
	}
	return otel.Meter(InstrumentationName)
}

// Shutdown flushes what the run recorded. Safe on disabled Providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// buildVersion reports the main module version, "dev" for local builds.
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}
