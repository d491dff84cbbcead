package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-checkout/internal/telemetry"
)

// NotificationUseCase repassa as notificações ao transporte de email
type NotificationUseCase struct {
	transport MailTransport
	from      string
	delivered metric.Int64Counter
	failed    metric.Int64Counter
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewNotificationUseCase cria uma nova instância de NotificationUseCase
func NewNotificationUseCase(transport MailTransport, from string, meter metric.Meter, tracer trace.Tracer, logger *zap.Logger) (*NotificationUseCase, error) {
	delivered, err := meter.Int64Counter("notifications.delivered",
		metric.WithDescription("Notifications accepted by the mail transport"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	failed, err := meter.Int64Counter("notifications.failed",
		metric.WithDescription("Notifications the mail transport did not accept"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	return &NotificationUseCase{
		transport: transport,
		from:      from,
		delivered: delivered,
		failed:    failed,
		tracer:    tracer,
		logger:    logger,
	}, nil
}

// Send monta o email e entrega ao transporte
func (uc *NotificationUseCase) Send(ctx context.Context, req NotificationRequest) error {
	ctx, span := uc.tracer.Start(ctx, "notifications.send")
	defer span.End()

	template := attribute.String("template_key", req.TemplateKey)
	span.SetAttributes(template, attribute.Int("recipients", len(req.Recipients)))

	mail := NewMail(uc.from, req)
	log := uc.logger.With(append(telemetry.TraceFields(ctx), zap.String("template_key", req.TemplateKey))...)
	log.Info("➡️ Relaying notification", zap.Strings("recipients", req.Recipients), zap.String("subject", mail.Subject))

	if err := uc.transport.Deliver(ctx, mail); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mail delivery failed")
		uc.failed.Add(ctx, 1, metric.WithAttributes(template))
		log.Error("❌ Failed to deliver notification", zap.Error(err))
		return fmt.Errorf("failed to deliver %s notification: %w", req.TemplateKey, err)
	}

	uc.delivered.Add(ctx, 1, metric.WithAttributes(template))
	log.Info("✅ Notification delivered")
	return nil
}
