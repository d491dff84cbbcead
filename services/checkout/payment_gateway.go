package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Erros devolvidos pelos gateways de pagamento
var (
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// ChargeRequest é a cobrança enviada ao gateway
type ChargeRequest struct {
	OrderNumber   string
	UserID        string
	PaymentMethod string
	Amount        decimal.Decimal
	// IdempotencyKey evita cobrança dupla quando a chamada é repetida
	IdempotencyKey string
}

// ChargeResult é a resposta de uma cobrança aprovada
type ChargeResult struct {
	TransactionID string
}

// PaymentGateway abstrai a integração externa de pagamento
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// SimulatedPaymentGateway aprova toda cobrança, como a simulação da loja
type SimulatedPaymentGateway struct{}

// NewSimulatedPaymentGateway cria uma nova instância de SimulatedPaymentGateway
func NewSimulatedPaymentGateway() *SimulatedPaymentGateway {
	return &SimulatedPaymentGateway{}
}

func (g *SimulatedPaymentGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ChargeResult{TransactionID: uuid.New().String()}, nil
}
