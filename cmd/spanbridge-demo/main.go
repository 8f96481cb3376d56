// Command spanbridge-demo runs a synthetic workload through spanbridge and
// serves the resulting metrics. It exists to exercise the bridge end to
// end: spans carrying metrics.* attributes, nested scopes, events, and a
// live Prometheus endpoint to scrape.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fosrl/spanbridge"
	"github.com/fosrl/spanbridge/otelscope"
	"github.com/fosrl/spanbridge/telemetry"
)

var cli struct {
	Exporter     string        `help:"Metrics exporter (prom or otlp)." default:"prom" env:"SPANBRIDGE_EXPORTER"`
	PromAddr     string        `help:"Prometheus scrape listen address." default:":9464" env:"SPANBRIDGE_PROM_ADDR"`
	OTLPEndpoint string        `help:"OTLP/HTTP collector endpoint." env:"SPANBRIDGE_OTLP_ENDPOINT"`
	OTLPInsecure bool          `help:"Disable TLS for the OTLP exporter." env:"SPANBRIDGE_OTLP_INSECURE"`
	Environment  string        `help:"Deployment environment resource attribute." default:"dev" env:"SPANBRIDGE_ENVIRONMENT"`
	Interval     time.Duration `help:"Delay between synthetic requests." default:"250ms"`
	Verbose      bool          `short:"v" help:"Enable debug logging."`
}

func main() {
	_ = godotenv.Load()
	kong.Parse(&cli)

	logger, err := buildLogger(cli.Verbose)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mp, shutdownMetrics, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "spanbridge-demo",
		ServiceVersion: "dev",
		Environment:    cli.Environment,
		Exporter:       cli.Exporter,
		Prometheus:     telemetry.PromConfig{Addr: cli.PromAddr},
		OTLP: telemetry.OTLPConfig{
			Endpoint: cli.OTLPEndpoint,
			Insecure: cli.OTLPInsecure,
		},
	}, logger)
	if err != nil {
		logger.Fatal("init telemetry", zap.Error(err))
	}

	registry := otelscope.New(mp.Meter("spanbridge-demo"), otelscope.WithLogger(logger))
	bridge := spanbridge.New(registry.Scope("app"), spanbridge.WithLogger(logger))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(bridge))
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer("spanbridge-demo")

	logger.Info("demo running",
		zap.String("exporter", cli.Exporter),
		zap.Duration("interval", cli.Interval),
	)

	ticker := time.NewTicker(cli.Interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			simulateRequest(ctx, tracer, bridge)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown tracer provider", zap.Error(err))
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		logger.Error("shutdown metrics", zap.Error(err))
	}
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// simulateRequest opens a request span holding an inflight level, then a
// nested db span timing a query, and emits a row-count event inside it.
// Scrape app.requests, app.inflight, app.db.query and app.db.rows to watch
// the bridge at work.
func simulateRequest(ctx context.Context, tracer trace.Tracer, bridge *spanbridge.Processor) {
	reqCtx, reqSpan := tracer.Start(ctx, "request",
		trace.WithAttributes(
			attribute.String(spanbridge.CounterKey, "requests"),
			attribute.String(spanbridge.LevelKey, "inflight"),
		),
	)

	dbCtx, dbSpan := tracer.Start(reqCtx, "query",
		trace.WithAttributes(
			attribute.String(spanbridge.ScopeKey, "db"),
			attribute.String(spanbridge.TimeKey, "query"),
		),
	)
	time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
	bridge.Event(dbCtx,
		attribute.String(spanbridge.CounterKey, "rows"),
		attribute.Int(spanbridge.ValueKey, rand.Intn(100)),
	)
	dbSpan.End()

	reqSpan.End()
}
