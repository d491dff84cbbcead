package main

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-checkout/internal/telemetry"
)

var paymentMethods = map[string]bool{
	PaymentMethodPayPal:    true,
	PaymentMethodOther:     true,
	PaymentMethodDifferent: true,
}

// CheckoutOptions agrupa os limites do fluxo de checkout
type CheckoutOptions struct {
	PaymentTimeout    time.Duration
	PaymentMaxRetries uint
	Retry             RetryPolicy
}

// CheckoutUseCase conduz o fluxo carrinho → pedido → pagamento → pedido arquivado
type CheckoutUseCase struct {
	repository   Repository
	carts        *CartUseCase
	orderNumbers OrderNumberGenerator
	payments     PaymentGateway
	notifier     NotificationGateway
	validate     *validator.Validate
	opts         CheckoutOptions
	metrics      *checkoutMetrics
	tracer       trace.Tracer
	logger       *zap.Logger
	now          func() time.Time
}

// NewCheckoutUseCase cria uma nova instância de CheckoutUseCase
func NewCheckoutUseCase(
	repository Repository,
	carts *CartUseCase,
	orderNumbers OrderNumberGenerator,
	payments PaymentGateway,
	notifier NotificationGateway,
	opts CheckoutOptions,
	meter metric.Meter,
	tracer trace.Tracer,
	logger *zap.Logger,
) (*CheckoutUseCase, error) {
	m, err := newCheckoutMetrics(meter)
	if err != nil {
		return nil, err
	}

	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 10 * time.Second
	}
	if opts.PaymentMaxRetries == 0 {
		opts.PaymentMaxRetries = 3
	}
	if opts.Retry.MaxTries == 0 {
		opts.Retry = DefaultRetryPolicy
	}

	return &CheckoutUseCase{
		repository:   repository,
		carts:        carts,
		orderNumbers: orderNumbers,
		payments:     payments,
		notifier:     notifier,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		opts:         opts,
		metrics:      m,
		tracer:       tracer,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// PlaceOrder cria um pedido New a partir do carrinho não vazio do usuário
func (uc *CheckoutUseCase) PlaceOrder(ctx context.Context, userID string, shipping ShippingInfo, paymentMethod string) (*Order, error) {
	ctx, span := uc.tracer.Start(ctx, "checkout.place_order")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("payment_method", paymentMethod))

	if err := uc.validate.Struct(shipping); err != nil {
		return nil, wrapError(KindValidation, err, "invalid shipping info")
	}
	if !paymentMethods[paymentMethod] {
		return nil, newError(KindValidation, "unsupported payment method %q", paymentMethod)
	}

	var order *Order
	err := runInTx(ctx, uc.repository, uc.opts.Retry, func(tx Tx) error {
		cart, err := uc.repository.GetCartForUpdate(ctx, tx, userID)
		if errors.Is(err, ErrNotFound) {
			return newError(KindEmptyCart, "user %s has no items in cart", userID)
		}
		if err != nil {
			return err
		}
		if cart.Quantity == 0 {
			return newError(KindEmptyCart, "user %s has no items in cart", userID)
		}

		// Um carrinho alimenta no máximo um pedido em aberto
		open, err := uc.repository.FindOpenOrder(ctx, tx, userID)
		switch {
		case err == nil:
			return newError(KindConflict, "user %s already has open order %s (%s)", userID, open.OrderNumber, open.Status)
		case !errors.Is(err, ErrNotFound):
			return err
		}

		orderNumber, err := uc.orderNumbers.Next(uc.now())
		if err != nil {
			return err
		}

		order = NewOrder(orderNumber, cart, shipping, paymentMethod)
		return uc.repository.CreateOrder(ctx, tx, order)
	})
	if err != nil {
		recordFailure(ctx, uc.logger, span, "place order", err, zap.String("user_id", userID))
		return nil, err
	}

	span.SetAttributes(attribute.String("order_number", order.OrderNumber))
	uc.metrics.inc(ctx, uc.metrics.ordersPlaced)
	uc.logger.Info("✅ Order placed",
		append(telemetry.TraceFields(ctx),
			zap.String("user_id", userID),
			zap.String("order_number", order.OrderNumber),
			zap.String("total", order.Total.StringFixed(2)),
		)...,
	)
	return order, nil
}

// ProcessPayment cobra o pedido informado. O pedido é reservado (Processing)
// antes da cobrança; a chamada ao gateway acontece fora de qualquer transação,
// com timeout e novas tentativas em erro de gateway.
func (uc *CheckoutUseCase) ProcessPayment(ctx context.Context, userID, orderNumber string) (*Payment, error) {
	ctx, span := uc.tracer.Start(ctx, "checkout.process_payment")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("order_number", orderNumber))

	// Reserva o pedido antes de cobrar: um segundo pagador recebe Conflict
	// sem chegar ao gateway
	var order *Order
	err := runInTx(ctx, uc.repository, uc.opts.Retry, func(tx Tx) error {
		var err error
		order, err = uc.ownedOrder(ctx, tx, userID, orderNumber)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(OrderStatusProcessing) {
			return newError(KindConflict, "order %s is %s and cannot be paid", orderNumber, order.Status)
		}
		if err := order.TransitionTo(OrderStatusProcessing); err != nil {
			return err
		}
		return uc.repository.UpdateOrder(ctx, tx, order)
	})
	if err != nil {
		recordFailure(ctx, uc.logger, span, "process payment", err, zap.String("order_number", orderNumber))
		return nil, err
	}

	log := uc.logger.With(append(telemetry.TraceFields(ctx), zap.String("order_number", orderNumber))...)
	log.Info("➡️ Charging order", zap.String("amount", order.Total.StringFixed(2)), zap.String("method", order.PaymentMethod))

	result, chargeErr := uc.charge(ctx, order, log)
	status := paymentStatusOf(chargeErr)
	span.SetAttributes(attribute.String("payment_status", string(status)))

	transactionID := ""
	if result != nil {
		transactionID = result.TransactionID
	}
	payment := NewPayment(order, transactionID, status)

	// O resultado da cobrança é gravado mesmo que o chamador tenha desistido
	recordCtx := context.WithoutCancel(ctx)
	var settleErr error
	err = runInTx(recordCtx, uc.repository, uc.opts.Retry, func(tx Tx) error {
		settleErr = nil
		locked, err := uc.repository.GetOrderForUpdate(recordCtx, tx, orderNumber)
		if err != nil {
			return err
		}
		if err := uc.repository.CreatePayment(recordCtx, tx, payment); err != nil {
			return err
		}

		// A tentativa fica registrada mesmo quando o pedido não aceita a transição
		if settleErr = settlePayment(locked, payment); settleErr != nil {
			return nil
		}
		return uc.repository.UpdateOrder(recordCtx, tx, locked)
	})
	if err == nil {
		err = settleErr
	}
	if err != nil {
		log.Error("❌ Failed to record payment outcome",
			zap.String("payment_status", string(status)),
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
		recordFailure(ctx, uc.logger, span, "process payment", err, zap.String("order_number", orderNumber))
		return nil, err
	}

	if chargeErr != nil {
		uc.metrics.inc(ctx, uc.metrics.paymentFailures, attribute.String("status", string(status)))
		err := wrapError(KindPaymentFailed, chargeErr, "payment for order %s %s", orderNumber, status)
		recordFailure(ctx, uc.logger, span, "process payment", err, zap.String("order_number", orderNumber))
		return nil, err
	}

	log.Info("✅ Payment completed", zap.String("payment_id", payment.ID), zap.String("transaction_id", transactionID))
	return payment, nil
}

// settlePayment aplica ao pedido reservado o resultado da cobrança
func settlePayment(order *Order, payment *Payment) error {
	switch payment.Status {
	case PaymentStatusCompleted:
		return order.Accept(payment.ID)
	case PaymentStatusDeclined:
		return order.TransitionTo(OrderStatusNew)
	case PaymentStatusGatewayError:
		return order.TransitionTo(OrderStatusFailed)
	default:
		return order.TransitionTo(OrderStatusTimedOut)
	}
}

func (uc *CheckoutUseCase) charge(ctx context.Context, order *Order, log *zap.Logger) (*ChargeResult, error) {
	payCtx, cancel := context.WithTimeout(ctx, uc.opts.PaymentTimeout)
	defer cancel()

	req := ChargeRequest{
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		PaymentMethod:  order.PaymentMethod,
		Amount:         order.Total,
		IdempotencyKey: order.ID,
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond

	return backoff.Retry(payCtx, func() (*ChargeResult, error) {
		result, err := uc.payments.Charge(payCtx, req)
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, ErrPaymentDeclined),
			errors.Is(err, context.DeadlineExceeded),
			errors.Is(err, context.Canceled):
			return nil, backoff.Permanent(err)
		default:
			log.Warn("⚠️ Payment gateway error, retrying", zap.Error(err))
			return nil, err
		}
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uc.opts.PaymentMaxRetries))
}

func paymentStatusOf(err error) PaymentStatus {
	switch {
	case err == nil:
		return PaymentStatusCompleted
	case errors.Is(err, ErrPaymentDeclined):
		return PaymentStatusDeclined
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return PaymentStatusTimedOut
	default:
		return PaymentStatusGatewayError
	}
}

// FinalizeOrder arquiva o pedido pago: snapshot dos itens, baixa de estoque,
// limpeza do carrinho e conclusão do pedido numa única transação.
// A notificação é enviada depois do commit e nunca desfaz o pedido.
func (uc *CheckoutUseCase) FinalizeOrder(ctx context.Context, userID, orderNumber string) (*PlacedOrder, error) {
	ctx, span := uc.tracer.Start(ctx, "checkout.finalize_order")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("order_number", orderNumber))

	var (
		order  *Order
		placed *PlacedOrder
	)
	err := runInTx(ctx, uc.repository, uc.opts.Retry, func(tx Tx) error {
		var err error

		// ordem de lock: pedido, carrinho, estoque
		order, err = uc.ownedOrder(ctx, tx, userID, orderNumber)
		if err != nil {
			return err
		}
		if order.Status != OrderStatusAccepted || !order.IsOrdered {
			return newError(KindConflict, "order %s is %s and cannot be finalized", orderNumber, order.Status)
		}

		cart, err := uc.repository.GetCartForUpdate(ctx, tx, userID)
		if errors.Is(err, ErrNotFound) {
			return newError(KindEmptyCart, "user %s has no items in cart", userID)
		}
		if err != nil {
			return err
		}

		items, err := uc.repository.ListLineItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return newError(KindEmptyCart, "user %s has no items in cart", userID)
		}
		if !cart.TotalAmount.Add(cart.TotalTaxAmount).Equal(order.Total) {
			return newError(KindConflict, "cart changed since order %s was placed", orderNumber)
		}

		bySKU := make([]*LineItem, len(items))
		copy(bySKU, items)
		sort.Slice(bySKU, func(i, j int) bool { return bySKU[i].SKU < bySKU[j].SKU })
		for _, item := range bySKU {
			if err := uc.repository.DecrementStock(ctx, tx, item.SKU, item.Quantity); err != nil {
				return err
			}
		}

		placed = NewPlacedOrder(order, items)
		if err := uc.repository.CreatePlacedOrder(ctx, tx, placed); err != nil {
			return err
		}

		if err := uc.carts.clearCart(ctx, tx, cart); err != nil {
			return err
		}

		if err := order.TransitionTo(OrderStatusCompleted); err != nil {
			return err
		}
		return uc.repository.UpdateOrder(ctx, tx, order)
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			uc.metrics.inc(ctx, uc.metrics.stockRejections)
		}
		recordFailure(ctx, uc.logger, span, "finalize order", err, zap.String("order_number", orderNumber))
		return nil, err
	}

	uc.metrics.inc(ctx, uc.metrics.ordersFinalized)
	uc.logger.Info("✅ Order finalized",
		append(telemetry.TraceFields(ctx),
			zap.String("order_number", orderNumber),
			zap.Int("items", len(placed.OrderItems)),
		)...,
	)

	uc.notifyOrderPlaced(ctx, order, placed)
	return placed, nil
}

func (uc *CheckoutUseCase) notifyOrderPlaced(ctx context.Context, order *Order, placed *PlacedOrder) {
	ctx, span := uc.tracer.Start(ctx, "checkout.notify_order_placed")
	defer span.End()

	data := map[string]any{
		"order_number": order.OrderNumber,
		"name":         order.Shipping.Name(),
		"total":        order.Total.StringFixed(2),
		"total_tax":    order.TotalTax.StringFixed(2),
		"items":        placed.OrderItems,
	}

	err := uc.notifier.Send(ctx, templateOrderPlaced, []string{order.Shipping.Email}, data)
	if err != nil {
		span.RecordError(err)
		uc.metrics.inc(ctx, uc.metrics.notificationFailures, attribute.String("template", templateOrderPlaced))
		uc.logger.Warn("⚠️ Order placed notification not sent",
			append(telemetry.TraceFields(ctx), zap.String("order_number", order.OrderNumber), zap.Error(err))...,
		)
		return
	}

	uc.logger.Info("📧 Order placed notification dispatched", zap.String("order_number", order.OrderNumber))
}

// CancelOrder cancela um pedido que ainda não foi pago
func (uc *CheckoutUseCase) CancelOrder(ctx context.Context, userID, orderNumber string) (*Order, error) {
	ctx, span := uc.tracer.Start(ctx, "checkout.cancel_order")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("order_number", orderNumber))

	var order *Order
	err := runInTx(ctx, uc.repository, uc.opts.Retry, func(tx Tx) error {
		var err error
		order, err = uc.ownedOrder(ctx, tx, userID, orderNumber)
		if err != nil {
			return err
		}
		if err := order.TransitionTo(OrderStatusCancelled); err != nil {
			return err
		}
		return uc.repository.UpdateOrder(ctx, tx, order)
	})
	if err != nil {
		recordFailure(ctx, uc.logger, span, "cancel order", err, zap.String("order_number", orderNumber))
		return nil, err
	}

	uc.logger.Info("↩️ Order cancelled", zap.String("order_number", orderNumber))
	return order, nil
}

// ownedOrder busca o pedido (com lock quando há transação) e exige que seja do usuário
func (uc *CheckoutUseCase) ownedOrder(ctx context.Context, tx Tx, userID, orderNumber string) (*Order, error) {
	var (
		order *Order
		err   error
	)
	if tx == nil {
		order, err = uc.repository.GetOrder(ctx, nil, orderNumber)
	} else {
		order, err = uc.repository.GetOrderForUpdate(ctx, tx, orderNumber)
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, newError(KindNotFound, "order %s not found", orderNumber)
	}
	return order, nil
}

// GetOrder busca o pedido do usuário pelo order_number
func (uc *CheckoutUseCase) GetOrder(ctx context.Context, userID, orderNumber string) (*Order, error) {
	return uc.ownedOrder(ctx, nil, userID, orderNumber)
}

// GetPlacedOrder busca o pedido arquivado do usuário pelo order_number
func (uc *CheckoutUseCase) GetPlacedOrder(ctx context.Context, userID, orderNumber string) (*PlacedOrder, error) {
	placed, err := uc.repository.GetPlacedOrder(ctx, nil, orderNumber)
	if err != nil {
		return nil, err
	}
	if placed.UserID != userID {
		return nil, newError(KindNotFound, "placed order %s not found", orderNumber)
	}
	return placed, nil
}

// ListPlacedOrders devolve o histórico do usuário, mais recentes primeiro
func (uc *CheckoutUseCase) ListPlacedOrders(ctx context.Context, userID string) ([]*PlacedOrder, error) {
	placed, err := uc.repository.ListPlacedOrders(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if placed == nil {
		placed = []*PlacedOrder{}
	}
	return placed, nil
}

