package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type checkoutMetrics struct {
	ordersPlaced         metric.Int64Counter
	ordersFinalized      metric.Int64Counter
	stockRejections      metric.Int64Counter
	paymentFailures      metric.Int64Counter
	notificationFailures metric.Int64Counter
}

func newCheckoutMetrics(meter metric.Meter) (*checkoutMetrics, error) {
	m := &checkoutMetrics{}
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&m.ordersPlaced, "checkout.orders.placed", "Orders created from a cart"},
		{&m.ordersFinalized, "checkout.orders.finalized", "Orders archived as placed orders"},
		{&m.stockRejections, "checkout.stock.rejections", "Finalizations rejected for insufficient stock"},
		{&m.paymentFailures, "checkout.payment.failures", "Payment attempts that did not complete"},
		{&m.notificationFailures, "checkout.notification.failures", "Order notifications that could not be dispatched"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.target = counter
	}

	return m, nil
}

func (m *checkoutMetrics) inc(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
