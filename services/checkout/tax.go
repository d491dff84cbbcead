package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// taxScale é a casa decimal da unidade mínima da moeda
const taxScale = 2

var hundred = decimal.NewFromInt(100)

// TaxLine é o imposto de uma regra aplicado a uma linha do carrinho
type TaxLine struct {
	SKU        string          `json:"sku"`
	TaxRuleID  string          `json:"tax_rule_id"`
	TaxType    string          `json:"tax_type"`
	Percentage int             `json:"tax_percentage"`
	Amount     decimal.Decimal `json:"tax_amount"`
}

// TaxCalculator deriva as linhas de imposto a partir do catálogo
type TaxCalculator struct {
	catalog CatalogStore
}

// NewTaxCalculator cria uma nova instância de TaxCalculator
func NewTaxCalculator(catalog CatalogStore) *TaxCalculator {
	return &TaxCalculator{catalog: catalog}
}

// ComputeTaxLines devolve uma linha por (item, regra ativa do tipo do produto).
// Regras repetidas para o mesmo tipo somam, não são deduplicadas.
func (tc *TaxCalculator) ComputeTaxLines(ctx context.Context, tx Tx, items []*LineItem) ([]TaxLine, error) {
	rulesByType := make(map[string][]TaxRule)
	lines := make([]TaxLine, 0, len(items))

	for _, item := range items {
		variant, err := tc.catalog.FindVariantBySKU(ctx, tx, item.SKU)
		if err != nil {
			return nil, fmt.Errorf("failed to load variant %s for tax: %w", item.SKU, err)
		}

		rules, ok := rulesByType[variant.ProductType]
		if !ok {
			rules, err = tc.catalog.TaxRulesForProductType(ctx, tx, variant.ProductType)
			if err != nil {
				return nil, fmt.Errorf("failed to load tax rules for %s: %w", variant.ProductType, err)
			}
			rulesByType[variant.ProductType] = rules
		}

		for _, rule := range rules {
			if !rule.AppliesTo(variant.ProductType) {
				continue
			}
			lines = append(lines, TaxLine{
				SKU:        item.SKU,
				TaxRuleID:  rule.ID,
				TaxType:    rule.TaxType,
				Percentage: rule.Percentage,
				Amount:     TaxAmount(item.Amount, rule.Percentage),
			})
		}
	}

	return lines, nil
}

// TaxAmount calcula amount * percentage / 100 arredondado half-even em 2 casas
func TaxAmount(amount decimal.Decimal, percentage int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(percentage))).Div(hundred).RoundBank(taxScale)
}

// TotalTax soma as linhas de imposto já arredondadas
func TotalTax(lines []TaxLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}
	return total
}
