package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matheusmosca/shop-checkout/internal/telemetry"
)

// NotificationSender define o caso de uso exposto via HTTP
type NotificationSender interface {
	Send(ctx context.Context, req NotificationRequest) error
}

// NotificationHandler contém os handlers HTTP do serviço
type NotificationHandler struct {
	useCase NotificationSender
}

// NewNotificationHandler cria uma nova instância de NotificationHandler
func NewNotificationHandler(useCase NotificationSender) *NotificationHandler {
	return &NotificationHandler{useCase: useCase}
}

// RegisterRoutes registra as rotas do serviço
func (h *NotificationHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)
	r.POST("/api/notifications/send", h.Send)
}

// Send é o endpoint chamado pelo DTM para entregar a notificação
func (h *NotificationHandler) Send(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// O DTM não repassa os headers W3C; o trace do checkout vem no payload
	ctx := telemetry.ContextFromPayload(c.Request.Context(), req.TraceID, req.SpanID)

	if err := h.useCase.Send(ctx, req); err != nil {
		// 409 encerra a mensagem no DTM; 502 faz o DTM tentar de novo
		if errors.Is(err, ErrMailRejected) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, ErrTransport) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

// HealthCheck verifica se o serviço está funcionando
func (h *NotificationHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "notifications-service",
	})
}
