// Package observe carries pictalk's observability: OpenTelemetry metrics
// and traces, trace-aware slog loggers and the HTTP middleware that ties a
// request to all three.
//
// Instruments are created through the OpenTelemetry metrics API. [Setup]
// bridges them to a Prometheus registry scraped on /metrics. Code without a
// [Metrics] of its own uses [DefaultMetrics]; tests build one with
// [NewMetrics] over a private meter provider.
package observe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MrWong99/pictalk"

// Metrics holds the instruments of the service. Attribute keys are listed
// per field; the Record methods set them consistently.
type Metrics struct {
	// TurnDuration is the time one dialogue turn takes end to end.
	TurnDuration metric.Float64Histogram
	// ProviderDuration is provider call latency: provider, kind.
	ProviderDuration metric.Float64Histogram
	// HTTPRequestDuration is request latency: method, route, status.
	HTTPRequestDuration metric.Float64Histogram

	// ProviderRequests: provider, kind, status.
	ProviderRequests metric.Int64Counter
	// ProviderErrors: provider, kind.
	ProviderErrors metric.Int64Counter
	// BreakerTransitions: breaker, state.
	BreakerTransitions metric.Int64Counter

	// Strategies: strategy.
	Strategies metric.Int64Counter
	// SymbolResolutions counts resolved words: stage.
	SymbolResolutions metric.Int64Counter
	// Suggestions: mode (dense or lexical).
	Suggestions metric.Int64Counter
	// GameOutcomes: mode, outcome.
	GameOutcomes metric.Int64Counter
	// Transcripts: outcome (corrected or unchanged).
	Transcripts metric.Int64Counter
	// ToolCalls counts MCP tool invocations: tool, status.
	ToolCalls metric.Int64Counter

	// ActiveSessions is the number of users with live session state.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets span in-memory turns (milliseconds) up to slow generation
// and transcription calls (seconds).
var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// NewMetrics creates every instrument on mp's pictalk meter.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	b := builder{meter: mp.Meter(meterName)}
	m := &Metrics{
		TurnDuration:        b.seconds("pictalk.dialogue.turn.duration", "Latency of one dialogue turn.", latencyBuckets),
		ProviderDuration:    b.seconds("pictalk.provider.duration", "Latency of provider calls by provider and kind.", latencyBuckets),
		HTTPRequestDuration: b.seconds("pictalk.http.request.duration", "HTTP request latency by method, route and status.", nil),

		ProviderRequests:   b.counter("pictalk.provider.requests", "Provider requests by provider, kind and status."),
		ProviderErrors:     b.counter("pictalk.provider.errors", "Provider errors by provider and kind."),
		BreakerTransitions: b.counter("pictalk.provider.breaker.transitions", "Circuit breaker state changes by breaker and new state."),

		Strategies:        b.counter("pictalk.dialogue.strategy", "Dialogue turns by answering strategy."),
		SymbolResolutions: b.counter("pictalk.symbol.resolve", "Symbol resolutions by matching stage."),
		Suggestions:       b.counter("pictalk.symbol.suggest", "Symbol suggestion queries by mode."),
		GameOutcomes:      b.counter("pictalk.game.outcome", "Exercise turns by mode and outcome."),
		Transcripts:       b.counter("pictalk.transcripts", "Transcribed utterances by correction outcome."),
		ToolCalls:         b.counter("pictalk.tool.calls", "MCP tool invocations by tool and status."),
	}
	var err error
	m.ActiveSessions, err = b.meter.Int64UpDownCounter("pictalk.sessions.active",
		metric.WithDescription("Users with live session state."))
	if err = errors.Join(b.err, err); err != nil {
		return nil, fmt.Errorf("observe: create instruments: %w", err)
	}
	return m, nil
}

// builder collects instrument creation errors so NewMetrics reads as a
// table.
type builder struct {
	meter metric.Meter
	err   error
}

func (b *builder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	b.err = errors.Join(b.err, err)
	return c
}

func (b *builder) seconds(name, desc string, buckets []float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(desc), metric.WithUnit("s")}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}
	h, err := b.meter.Float64Histogram(name, opts...)
	b.err = errors.Join(b.err, err)
	return h
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns instruments on the global meter provider, created
// on first use. It panics if the global provider rejects them.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		if defaultMetrics, err = NewMetrics(otel.GetMeterProvider()); err != nil {
			panic(err)
		}
	})
	return defaultMetrics
}

// ── Recording ───────────────────────────────────────────────────────────────

func inc(ctx context.Context, c metric.Int64Counter, kv ...attribute.KeyValue) {
	c.Add(ctx, 1, metric.WithAttributes(kv...))
}

func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	inc(ctx, m.ProviderRequests, attribute.String("provider", provider), attribute.String("kind", kind), attribute.String("status", status))
}

func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	inc(ctx, m.ProviderErrors, attribute.String("provider", provider), attribute.String("kind", kind))
}

func (m *Metrics) RecordProviderDuration(ctx context.Context, provider, kind string, d time.Duration) {
	m.ProviderDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
}

// RecordBreakerState counts a transition of the named breaker into state.
// Transitions are not tied to a request.
func (m *Metrics) RecordBreakerState(breaker, state string) {
	inc(context.Background(), m.BreakerTransitions, attribute.String("breaker", breaker), attribute.String("state", state))
}

func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	inc(ctx, m.ToolCalls, attribute.String("tool", tool), attribute.String("status", status))
}

func (m *Metrics) RecordStrategy(ctx context.Context, strategy string) {
	inc(ctx, m.Strategies, attribute.String("strategy", strategy))
}

func (m *Metrics) RecordResolve(ctx context.Context, stage string) {
	inc(ctx, m.SymbolResolutions, attribute.String("stage", stage))
}

func (m *Metrics) RecordSuggest(ctx context.Context, mode string) {
	inc(ctx, m.Suggestions, attribute.String("mode", mode))
}

func (m *Metrics) RecordGameOutcome(ctx context.Context, mode, outcome string) {
	inc(ctx, m.GameOutcomes, attribute.String("mode", mode), attribute.String("outcome", outcome))
}

// RecordTranscript counts one transcribed utterance by whether any word was
// snapped to the vocabulary.
func (m *Metrics) RecordTranscript(ctx context.Context, corrected bool) {
	outcome := "unchanged"
	if corrected {
		outcome = "corrected"
	}
	inc(ctx, m.Transcripts, attribute.String("outcome", outcome))
}
