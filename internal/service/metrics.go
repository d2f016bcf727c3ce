package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "vuln-tracker/service"

// Счётчики пишутся в глобальный MeterProvider; без установленного SDK это no-op.
type metrics struct {
	vulnerabilitiesCreated metric.Int64Counter
	incidentsCreated       metric.Int64Counter
	idRetries              metric.Int64Counter
}

func newMetrics(log *zap.Logger) *metrics {
	meter := otel.Meter(meterName)
	m := &metrics{}

	var err error
	if m.vulnerabilitiesCreated, err = meter.Int64Counter(
		"vulntracker.vulnerabilities.created",
		metric.WithDescription("Number of vulnerabilities created"),
		metric.WithUnit("1"),
	); err != nil {
		log.Warn("failed to create metric", zap.Error(err))
	}
	if m.incidentsCreated, err = meter.Int64Counter(
		"vulntracker.incidents.created",
		metric.WithDescription("Number of incidents created"),
		metric.WithUnit("1"),
	); err != nil {
		log.Warn("failed to create metric", zap.Error(err))
	}
	if m.idRetries, err = meter.Int64Counter(
		"vulntracker.incident_id.retries",
		metric.WithDescription("Incident creations retried after losing an id allocation race"),
		metric.WithUnit("1"),
	); err != nil {
		log.Warn("failed to create metric", zap.Error(err))
	}
	return m
}

func (m *metrics) vulnerabilityCreated(ctx context.Context, severity string) {
	if m.vulnerabilitiesCreated != nil {
		m.vulnerabilitiesCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("severity", severity)))
	}
}

func (m *metrics) incidentCreated(ctx context.Context, year int) {
	if m.incidentsCreated != nil {
		m.incidentsCreated.Add(ctx, 1, metric.WithAttributes(attribute.Int("year", year)))
	}
}

func (m *metrics) idRetried(ctx context.Context) {
	if m.idRetries != nil {
		m.idRetries.Add(ctx, 1)
	}
}
