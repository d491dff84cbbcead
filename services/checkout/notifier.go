package main

import (
	"context"

	"github.com/dtm-labs/client/dtmcli"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const templateOrderPlaced = "order_placed"

// NotificationGateway envia emails transacionais; falha com DeliveryError
type NotificationGateway interface {
	Send(ctx context.Context, templateKey string, recipients []string, data map[string]any) error
}

// NotificationRequest é o payload entregue ao serviço de notificações
type NotificationRequest struct {
	TemplateKey string         `json:"template_key"`
	Recipients  []string       `json:"recipients"`
	Context     map[string]any `json:"context"`
	// Manual trace context propagation (DTM doesn't propagate W3C headers)
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// DTMNotificationGateway publica a notificação como mensagem de duas fases do DTM,
// que faz a entrega assíncrona e as novas tentativas
type DTMNotificationGateway struct {
	dtmServer        string
	notificationsURL string
}

// NewDTMNotificationGateway cria uma nova instância de DTMNotificationGateway
func NewDTMNotificationGateway(dtmServer, notificationsURL string) *DTMNotificationGateway {
	return &DTMNotificationGateway{
		dtmServer:        dtmServer,
		notificationsURL: notificationsURL,
	}
}

func (g *DTMNotificationGateway) Send(ctx context.Context, templateKey string, recipients []string, data map[string]any) error {
	gid := uuid.New().String()
	actionURL := g.notificationsURL + "/api/notifications/send"

	ctx, span := startDTMMsgSpan(ctx, gid, actionURL)
	defer span.End()

	req := &NotificationRequest{
		TemplateKey: templateKey,
		Recipients:  recipients,
		Context:     data,
	}
	if sc := span.SpanContext(); sc.IsValid() {
		req.TraceID = sc.TraceID().String()
		req.SpanID = sc.SpanID().String()
	}

	msg := dtmcli.NewMsg(g.dtmServer, gid).
		Add(actionURL, req)

	if err := msg.Submit(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DTM msg submit failed")
		return wrapError(KindDelivery, err, "failed to submit %s notification (gid %s)", templateKey, gid)
	}

	return nil
}

// LogNotificationGateway apenas registra a notificação no log
type LogNotificationGateway struct {
	logger *zap.Logger
}

// NewLogNotificationGateway cria uma nova instância de LogNotificationGateway
func NewLogNotificationGateway(logger *zap.Logger) *LogNotificationGateway {
	return &LogNotificationGateway{logger: logger}
}

func (g *LogNotificationGateway) Send(ctx context.Context, templateKey string, recipients []string, data map[string]any) error {
	g.logger.Info("📧 Notification",
		zap.String("template_key", templateKey),
		zap.Strings("recipients", recipients),
		zap.Any("context", data),
	)
	return nil
}
