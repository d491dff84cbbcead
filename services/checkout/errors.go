package main

import (
	"errors"
	"fmt"
)

// ErrorKind classifica as falhas do checkout
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindEmptyCart         ErrorKind = "empty_cart"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindPaymentFailed     ErrorKind = "payment_failed"
	KindConflict          ErrorKind = "conflict"
	KindValidation        ErrorKind = "validation_error"
	KindDelivery          ErrorKind = "delivery_error"
)

// CheckoutError é o erro tipado devolvido pelos casos de uso
type CheckoutError struct {
	Kind    ErrorKind
	Message string
	Err     error
	// Retryable marca conflitos de concorrência em que repetir a unidade de trabalho resolve
	Retryable bool
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// Is faz qualquer CheckoutError casar com a sentinela do mesmo tipo
func (e *CheckoutError) Is(target error) bool {
	t, ok := target.(*CheckoutError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Erros customizados
var (
	ErrNotFound          = &CheckoutError{Kind: KindNotFound, Message: "not found"}
	ErrEmptyCart         = &CheckoutError{Kind: KindEmptyCart, Message: "cart is empty"}
	ErrInsufficientStock = &CheckoutError{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrPaymentFailed     = &CheckoutError{Kind: KindPaymentFailed, Message: "payment failed"}
	ErrConflict          = &CheckoutError{Kind: KindConflict, Message: "conflict"}
	ErrValidation        = &CheckoutError{Kind: KindValidation, Message: "validation error"}
	ErrDelivery          = &CheckoutError{Kind: KindDelivery, Message: "delivery error"}
)

func newError(kind ErrorKind, format string, args ...interface{}) *CheckoutError {
	return &CheckoutError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...interface{}) *CheckoutError {
	return &CheckoutError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// conflictError é o Conflict de violação de unicidade, que pode ser repetido
func conflictError(err error, format string, args ...interface{}) *CheckoutError {
	ce := wrapError(KindConflict, err, format, args...)
	ce.Retryable = true
	return ce
}

func isRetryable(err error) bool {
	var ce *CheckoutError
	return errors.As(err, &ce) && ce.Retryable
}

// KindOf devolve o tipo do erro, ou vazio quando não é um CheckoutError
func KindOf(err error) ErrorKind {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
