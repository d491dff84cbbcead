package main

import "fmt"

const templateOrderPlaced = "order_placed"

// NotificationRequest é o payload entregue pelo DTM ao endpoint de envio
type NotificationRequest struct {
	TemplateKey string         `json:"template_key" binding:"required"`
	Recipients  []string       `json:"recipients" binding:"required,min=1,dive,email"`
	Context     map[string]any `json:"context"`
	// Manual trace context propagation (DTM doesn't propagate W3C headers)
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// Mail é a mensagem enviada ao transporte de email
type Mail struct {
	From        string         `json:"from"`
	To          []string       `json:"to"`
	Subject     string         `json:"subject"`
	TemplateKey string         `json:"template_key"`
	Data        map[string]any `json:"data,omitempty"`
}

// subjectFor monta o assunto do email para o template
func subjectFor(templateKey string, data map[string]any) string {
	switch templateKey {
	case templateOrderPlaced:
		if number, ok := data["order_number"].(string); ok && number != "" {
			return fmt.Sprintf("Your order %s has been placed", number)
		}
		return "Your order has been placed"
	default:
		return "Notification from the shop"
	}
}

// NewMail cria a mensagem a partir da requisição
func NewMail(from string, req NotificationRequest) *Mail {
	return &Mail{
		From:        from,
		To:          req.Recipients,
		Subject:     subjectFor(req.TemplateKey, req.Context),
		TemplateKey: req.TemplateKey,
		Data:        req.Context,
	}
}
