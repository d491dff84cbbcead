package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrTransport indica falha temporária do transporte de email
	ErrTransport = errors.New("mail transport failure")
	// ErrMailRejected indica que o transporte recusou a mensagem em definitivo (4xx)
	ErrMailRejected = errors.New("mail rejected by transport")
)

// MailTransport entrega a mensagem ao provedor externo de email
type MailTransport interface {
	Deliver(ctx context.Context, mail *Mail) error
}

// RestyMailTransport envia as mensagens por HTTP, repetindo em erro 5xx ou de rede
type RestyMailTransport struct {
	client     *resty.Client
	maxRetries uint
	logger     *zap.Logger
}

// NewRestyMailTransport cria uma nova instância de RestyMailTransport
func NewRestyMailTransport(baseURL string, timeout time.Duration, maxRetries uint, logger *zap.Logger) *RestyMailTransport {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &RestyMailTransport{
		client:     client,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

func (t *RestyMailTransport) Deliver(ctx context.Context, mail *Mail) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		resp, err := t.client.R().
			SetContext(ctx).
			SetBody(mail).
			Post("/api/send")
		if err != nil {
			t.logger.Warn("⚠️ Mail transport unreachable, retrying", zap.Error(err))
			return struct{}{}, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		switch code := resp.StatusCode(); {
		case code >= http.StatusInternalServerError:
			t.logger.Warn("⚠️ Mail transport error, retrying", zap.Int("status", code))
			return struct{}{}, fmt.Errorf("%w: status %d", ErrTransport, code)
		case code >= http.StatusBadRequest:
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrMailRejected, code, resp.String()))
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(t.maxRetries))

	return err
}
