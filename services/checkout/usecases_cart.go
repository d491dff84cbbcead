package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-checkout/internal/telemetry"
)

// Limites que mantêm quantidades e valores dentro de INTEGER e NUMERIC(10,2)
const maxLineQuantity = 10000

var maxAmount = decimal.RequireFromString("99999999.99")

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return newError(KindValidation, "quantity must be at least 1, got %d", quantity)
	}
	if quantity > maxLineQuantity {
		return newError(KindValidation, "quantity must be at most %d, got %d", maxLineQuantity, quantity)
	}
	return nil
}

func validateLine(item *LineItem) error {
	if err := validateQuantity(item.Quantity); err != nil {
		return err
	}
	if item.Amount.GreaterThan(maxAmount) {
		return newError(KindValidation, "line amount %s for %s exceeds %s", item.Amount.StringFixed(2), item.SKU, maxAmount.StringFixed(2))
	}
	return nil
}

// CartView é o carrinho com seus itens e as linhas de imposto calculadas
type CartView struct {
	Cart     *Cart       `json:"cart"`
	Items    []*LineItem `json:"items"`
	TaxLines []TaxLine   `json:"tax_lines"`
}

// CartUseCase contém a lógica de negócio do carrinho
type CartUseCase struct {
	repository  Repository
	tax         *TaxCalculator
	pricePolicy PricePolicy
	retry       RetryPolicy
	tracer      trace.Tracer
	logger      *zap.Logger
}

// NewCartUseCase cria uma nova instância de CartUseCase
func NewCartUseCase(
	repository Repository,
	pricePolicy PricePolicy,
	retry RetryPolicy,
	tracer trace.Tracer,
	logger *zap.Logger,
) *CartUseCase {
	return &CartUseCase{
		repository:  repository,
		tax:         NewTaxCalculator(repository),
		pricePolicy: pricePolicy,
		retry:       retry,
		tracer:      tracer,
		logger:      logger,
	}
}

// GetOrCreateCart trava o carrinho do usuário, criando-o se ainda não existir.
// Uma criação concorrente devolve Conflict e a unidade de trabalho é repetida.
func (uc *CartUseCase) GetOrCreateCart(ctx context.Context, tx Tx, userID string) (*Cart, bool, error) {
	cart, err := uc.repository.GetCartForUpdate(ctx, tx, userID)
	if err == nil {
		return cart, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	cart = NewCart(userID)
	if err := uc.repository.CreateCart(ctx, tx, cart); err != nil {
		return nil, false, err
	}

	return cart, true, nil
}

// AddToCart adiciona quantity unidades do SKU ao carrinho do usuário
func (uc *CartUseCase) AddToCart(ctx context.Context, userID, sku string, quantity int) (*CartView, error) {
	ctx, span := uc.tracer.Start(ctx, "cart.add_to_cart")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("sku", sku),
		attribute.Int("quantity", quantity),
	)

	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	var view *CartView
	err := runInTx(ctx, uc.repository, uc.retry, func(tx Tx) error {
		variant, err := uc.repository.FindVariantBySKU(ctx, tx, sku)
		if err != nil {
			return err
		}
		if !variant.IsActive {
			return newError(KindNotFound, "variant %s not found", sku)
		}

		cart, created, err := uc.GetOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if created {
			uc.logger.Info("🛒 Cart created", zap.String("user_id", userID), zap.String("cart_id", cart.ID))
		}

		item, err := uc.repository.GetLineItem(ctx, tx, cart.ID, sku)
		switch {
		case errors.Is(err, ErrNotFound):
			item = NewLineItem(cart.ID, variant, variant.UnitPrice(uc.pricePolicy), quantity)
			if err := validateLine(item); err != nil {
				return err
			}
			if err := uc.repository.CreateLineItem(ctx, tx, item); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			item.SetQuantity(item.Quantity + quantity)
			if err := validateLine(item); err != nil {
				return err
			}
			if err := uc.repository.UpdateLineItem(ctx, tx, item); err != nil {
				return err
			}
		}

		view, err = uc.refreshAggregates(ctx, tx, cart)
		return err
	})
	if err != nil {
		recordFailure(ctx, uc.logger, span, "add to cart", err, zap.String("user_id", userID), zap.String("sku", sku))
		return nil, err
	}

	uc.logger.Info("✅ Item added to cart",
		append(telemetry.TraceFields(ctx),
			zap.String("user_id", userID),
			zap.String("sku", sku),
			zap.Int("cart_quantity", view.Cart.Quantity),
			zap.String("cart_total", view.Cart.TotalAmount.StringFixed(2)),
		)...,
	)
	return view, nil
}

// UpdateLineItemQuantity troca a quantidade de uma linha mantendo o preço congelado
func (uc *CartUseCase) UpdateLineItemQuantity(ctx context.Context, userID, sku string, quantity int) (*CartView, error) {
	ctx, span := uc.tracer.Start(ctx, "cart.update_line_item")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("sku", sku), attribute.Int("quantity", quantity))

	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	var view *CartView
	err := runInTx(ctx, uc.repository, uc.retry, func(tx Tx) error {
		cart, err := uc.repository.GetCartForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}

		item, err := uc.repository.GetLineItem(ctx, tx, cart.ID, sku)
		if err != nil {
			return err
		}

		item.SetQuantity(quantity)
		if err := validateLine(item); err != nil {
			return err
		}
		if err := uc.repository.UpdateLineItem(ctx, tx, item); err != nil {
			return err
		}

		view, err = uc.refreshAggregates(ctx, tx, cart)
		return err
	})
	if err != nil {
		recordFailure(ctx, uc.logger, span, "update line item", err, zap.String("user_id", userID), zap.String("sku", sku))
		return nil, err
	}

	uc.logger.Info("✅ Line item updated", zap.String("user_id", userID), zap.String("sku", sku), zap.Int("quantity", quantity))
	return view, nil
}

// RemoveLineItem remove a linha do SKU; NotFound se o usuário não a possui
func (uc *CartUseCase) RemoveLineItem(ctx context.Context, userID, sku string) (*CartView, error) {
	ctx, span := uc.tracer.Start(ctx, "cart.remove_line_item")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("sku", sku))

	var view *CartView
	err := runInTx(ctx, uc.repository, uc.retry, func(tx Tx) error {
		cart, err := uc.repository.GetCartForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}

		item, err := uc.repository.GetLineItem(ctx, tx, cart.ID, sku)
		if err != nil {
			return err
		}

		if err := uc.repository.DeleteLineItem(ctx, tx, item.ID); err != nil {
			return err
		}

		view, err = uc.refreshAggregates(ctx, tx, cart)
		return err
	})
	if err != nil {
		recordFailure(ctx, uc.logger, span, "remove line item", err, zap.String("user_id", userID), zap.String("sku", sku))
		return nil, err
	}

	uc.logger.Info("↩️ Line item removed", zap.String("user_id", userID), zap.String("sku", sku))
	return view, nil
}

// ClearCart remove todos os itens e zera os agregados
func (uc *CartUseCase) ClearCart(ctx context.Context, userID string) error {
	ctx, span := uc.tracer.Start(ctx, "cart.clear_cart")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	err := runInTx(ctx, uc.repository, uc.retry, func(tx Tx) error {
		cart, err := uc.repository.GetCartForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		return uc.clearCart(ctx, tx, cart)
	})
	if err != nil {
		recordFailure(ctx, uc.logger, span, "clear cart", err, zap.String("user_id", userID))
		return err
	}

	uc.logger.Info("🧹 Cart cleared", zap.String("user_id", userID))
	return nil
}

// clearCart espera o carrinho já travado pela transação
func (uc *CartUseCase) clearCart(ctx context.Context, tx Tx, cart *Cart) error {
	if err := uc.repository.DeleteLineItems(ctx, tx, cart.ID); err != nil {
		return err
	}
	cart.Reset()
	return uc.repository.UpdateCart(ctx, tx, cart)
}

// refreshAggregates recalcula quantity, total_amount e total_tax_amount a partir das linhas
func (uc *CartUseCase) refreshAggregates(ctx context.Context, tx Tx, cart *Cart) (*CartView, error) {
	items, err := uc.repository.ListLineItems(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}

	taxLines, err := uc.tax.ComputeTaxLines(ctx, tx, items)
	if err != nil {
		return nil, err
	}

	cart.Recalculate(items, taxLines)
	if total := cart.TotalAmount.Add(cart.TotalTaxAmount); total.GreaterThan(maxAmount) {
		return nil, newError(KindValidation, "cart total %s exceeds %s", total.StringFixed(2), maxAmount.StringFixed(2))
	}
	if err := uc.repository.UpdateCart(ctx, tx, cart); err != nil {
		return nil, err
	}

	return &CartView{Cart: cart, Items: items, TaxLines: taxLines}, nil
}

// GetCart devolve o carrinho do usuário; NotFound quando ele ainda não existe
func (uc *CartUseCase) GetCart(ctx context.Context, userID string) (*CartView, error) {
	cart, err := uc.repository.GetCart(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	items, err := uc.repository.ListLineItems(ctx, nil, cart.ID)
	if err != nil {
		return nil, err
	}

	taxLines, err := uc.tax.ComputeTaxLines(ctx, nil, items)
	if err != nil {
		return nil, err
	}

	return &CartView{Cart: cart, Items: items, TaxLines: taxLines}, nil
}

// CartQuantity devolve o total de unidades no carrinho, 0 se o usuário não tem carrinho
func (uc *CartUseCase) CartQuantity(ctx context.Context, userID string) (int, error) {
	cart, err := uc.repository.GetCart(ctx, nil, userID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cart quantity: %w", err)
	}
	return cart.Quantity, nil
}

func recordFailure(ctx context.Context, logger *zap.Logger, span trace.Span, op string, err error, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	fields = append(fields, zap.String("kind", string(KindOf(err))), zap.Error(err))
	logger.Warn("❌ Failed to "+op, append(telemetry.TraceFields(ctx), fields...)...)
}
