// Package telemetry exports gateway decision counters over OTLP
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

const (
	meterName      = "github.com/Swayam595/LLM-Chatbot-Microservice-Platform/gateway"
	exportInterval = 10 * time.Second
)

// NewMeterProvider exports to OTLP gRPC endpoint like "http://collector:4317"
// Only host:port of the endpoint is used, https means TLS
// With empty endpoint metrics stay in process and are never exported
func NewMeterProvider(ctx context.Context, endpoint string, serviceName string) (*sdkmetric.MeterProvider, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return sdkmetric.NewMeterProvider(), nil
	}

	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(u.Host)}
	if u.Scheme != "https" {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(exportInterval))),
	), nil
}

// Metrics counts admission and auth decisions of the gateway
type Metrics struct {
	admission metric.Int64Counter
	auth      metric.Int64Counter
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	admission, err := meter.Int64Counter(
		"gateway.admission.decisions",
		metric.WithDescription("Rate limiter decisions by outcome"),
	)
	if err != nil {
		return nil, err
	}

	auth, err := meter.Int64Counter(
		"gateway.auth.decisions",
		metric.WithDescription("Auth interceptor decisions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("auth counter: %w", err)
	}

	return &Metrics{admission: admission, auth: auth}, nil
}

func (m *Metrics) ObserveAdmission(ctx context.Context, decision string) {
	m.admission.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

func (m *Metrics) ObserveAuth(ctx context.Context, outcome string) {
	m.auth.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
