package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce       sync.Once
	sessionsDerived   metric.Int64Counter
	badgesGranted     metric.Int64Counter
	botAnswerFailures metric.Int64Counter
)

// initCounters creates the service counters against the global meter
// provider. With no provider installed the counters are no-ops.
func initCounters() {
	meter := otel.Meter("chat-companion-analytics")
	sessionsDerived, _ = meter.Int64Counter("sessions_derived_total",
		metric.WithDescription("Sessions reconstructed from the event log"))
	badgesGranted, _ = meter.Int64Counter("badges_granted_total",
		metric.WithDescription("Milestone badges granted"))
	botAnswerFailures, _ = meter.Int64Counter("bot_answer_failures_total",
		metric.WithDescription("Failed calls to the bot-answer service"))
}

// CountSessionDerived records one session reconstruction.
func CountSessionDerived(ctx context.Context) {
	metricsOnce.Do(initCounters)
	sessionsDerived.Add(ctx, 1)
}

// CountBadgeGranted records one milestone grant.
func CountBadgeGranted(ctx context.Context, tier string) {
	metricsOnce.Do(initCounters)
	badgesGranted.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

// CountBotAnswerFailure records one failed bot-answer call.
func CountBotAnswerFailure(ctx context.Context) {
	metricsOnce.Do(initCounters)
	botAnswerFailures.Add(ctx, 1)
}
