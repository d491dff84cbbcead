package main

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// VariantDetail é a variante com o preço efetivo, os atributos e o estoque disponível
type VariantDetail struct {
	Variant        *ProductVariant     `json:"variant"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	Attributes     map[string][]string `json:"attributes"`
	UnitsAvailable int                 `json:"units_available"`
}

// CatalogUseCase expõe as leituras de catálogo usadas na vitrine
type CatalogUseCase struct {
	repository  CatalogStore
	pricePolicy PricePolicy
	tracer      trace.Tracer
	logger      *zap.Logger
}

// NewCatalogUseCase cria uma nova instância de CatalogUseCase
func NewCatalogUseCase(repository CatalogStore, pricePolicy PricePolicy, tracer trace.Tracer, logger *zap.Logger) *CatalogUseCase {
	return &CatalogUseCase{
		repository:  repository,
		pricePolicy: pricePolicy,
		tracer:      tracer,
		logger:      logger,
	}
}

// GetVariant devolve o detalhe de uma variante ativa; inativas contam como NotFound
func (uc *CatalogUseCase) GetVariant(ctx context.Context, sku string) (*VariantDetail, error) {
	ctx, span := uc.tracer.Start(ctx, "catalog.get_variant")
	defer span.End()
	span.SetAttributes(attribute.String("sku", sku))

	variant, err := uc.repository.FindVariantBySKU(ctx, nil, sku)
	if err == nil && !variant.IsActive {
		err = newError(KindNotFound, "variant %s not found", sku)
	}
	if err != nil {
		recordFailure(ctx, uc.logger, span, "get variant", err, zap.String("sku", sku))
		return nil, err
	}

	attrs, err := uc.repository.AttributesForVariant(ctx, nil, sku)
	if err != nil {
		recordFailure(ctx, uc.logger, span, "get variant", err, zap.String("sku", sku))
		return nil, err
	}

	units := 0
	stock, err := uc.repository.GetStock(ctx, nil, sku)
	switch {
	case err == nil:
		units = stock.UnitsAvailable
	case !errors.Is(err, ErrNotFound):
		recordFailure(ctx, uc.logger, span, "get variant", err, zap.String("sku", sku))
		return nil, err
	}

	return &VariantDetail{
		Variant:        variant,
		UnitPrice:      variant.UnitPrice(uc.pricePolicy),
		Attributes:     attrs,
		UnitsAvailable: units,
	}, nil
}

// ListOnSale lista as variantes ativas em promoção; nunca devolve nil
func (uc *CatalogUseCase) ListOnSale(ctx context.Context) ([]*ProductVariant, error) {
	ctx, span := uc.tracer.Start(ctx, "catalog.list_on_sale")
	defer span.End()

	variants, err := uc.repository.ListOnSaleVariants(ctx, nil)
	if err != nil {
		recordFailure(ctx, uc.logger, span, "list on-sale variants", err)
		return nil, err
	}
	if variants == nil {
		variants = []*ProductVariant{}
	}
	span.SetAttributes(attribute.Int("variants", len(variants)))
	return variants, nil
}
