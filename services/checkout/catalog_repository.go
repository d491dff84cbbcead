package main

import (
	"context"
	"fmt"
)

const variantColumns = `sku, upc, product_name, product_type, brand,
	retail_price, store_price, sale_price, is_on_sale, is_active, weight`

func scanVariant(row interface{ Scan(dest ...any) error }) (*ProductVariant, error) {
	var v ProductVariant
	err := row.Scan(
		&v.SKU, &v.UPC, &v.ProductName, &v.ProductType, &v.Brand,
		&v.RetailPrice, &v.StorePrice, &v.SalePrice, &v.IsOnSale, &v.IsActive, &v.Weight,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FindVariantBySKU busca uma variante do catálogo pelo SKU
func (r *PostgresRepository) FindVariantBySKU(ctx context.Context, tx Tx, sku string) (*ProductVariant, error) {
	v, err := scanVariant(r.q(tx).QueryRow(ctx, `
		SELECT `+variantColumns+`
		FROM product_variants
		WHERE sku = $1
	`, sku))
	if err != nil {
		return nil, notFoundOr(err, "product variant %s not found", sku)
	}
	return v, nil
}

// ListOnSaleVariants lista as variantes ativas com promoção ligada
func (r *PostgresRepository) ListOnSaleVariants(ctx context.Context, tx Tx) ([]*ProductVariant, error) {
	rows, err := r.q(tx).Query(ctx, `
		SELECT `+variantColumns+`
		FROM product_variants
		WHERE is_on_sale AND is_active
		ORDER BY sku
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query on-sale variants: %w", err)
	}
	defer rows.Close()

	var variants []*ProductVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	return variants, rows.Err()
}

// AttributesForVariant busca os valores de atributo do SKU agrupados por nome
func (r *PostgresRepository) AttributesForVariant(ctx context.Context, tx Tx, sku string) (map[string][]string, error) {
	rows, err := r.q(tx).Query(ctx, `
		SELECT sku, attribute_name, value
		FROM product_attribute_values
		WHERE sku = $1
		ORDER BY attribute_name, value
	`, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to query attribute values: %w", err)
	}
	defer rows.Close()

	var values []ProductAttributeValue
	for rows.Next() {
		var v ProductAttributeValue
		if err := rows.Scan(&v.SKU, &v.Attribute, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan attribute value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return GroupAttributes(values), nil
}

// GetStock busca o registro de estoque da variante
func (r *PostgresRepository) GetStock(ctx context.Context, tx Tx, sku string) (*StockRecord, error) {
	var s StockRecord
	err := r.q(tx).QueryRow(ctx, `
		SELECT sku, units_available, units_sold, last_checked
		FROM stock
		WHERE sku = $1
	`, sku).Scan(&s.SKU, &s.UnitsAvailable, &s.UnitsSold, &s.LastChecked)
	if err != nil {
		return nil, notFoundOr(err, "stock for %s not found", sku)
	}
	return &s, nil
}

// TaxRulesForProductType lista as regras de imposto ativas do tipo de produto
func (r *PostgresRepository) TaxRulesForProductType(ctx context.Context, tx Tx, productType string) ([]TaxRule, error) {
	rows, err := r.q(tx).Query(ctx, `
		SELECT t.id, t.tax_type, t.tax_percentage, t.is_active
		FROM tax_rules t
		JOIN tax_rule_product_types pt ON pt.tax_rule_id = t.id
		WHERE pt.product_type = $1 AND t.is_active
		ORDER BY t.tax_type
	`, productType)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax rules: %w", err)
	}
	defer rows.Close()

	var rules []TaxRule
	for rows.Next() {
		rule := TaxRule{ProductTypes: []string{productType}}
		if err := rows.Scan(&rule.ID, &rule.TaxType, &rule.Percentage, &rule.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan tax rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// DecrementStock baixa o estoque com UPDATE condicional, sem read-modify-write
func (r *PostgresRepository) DecrementStock(ctx context.Context, tx Tx, sku string, quantity int) error {
	tag, err := r.q(tx).Exec(ctx, `
		UPDATE stock
		SET units_available = units_available - $1,
		    units_sold = units_sold + $1,
		    last_checked = NOW()
		WHERE sku = $2 AND units_available >= $1
	`, quantity, sku)
	if err != nil {
		return fmt.Errorf("failed to decrease stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Diferencia SKU inexistente de estoque insuficiente
		if _, err := r.GetStock(ctx, tx, sku); err != nil {
			return err
		}
		return newError(KindInsufficientStock, "insufficient stock for product %s", sku)
	}

	return nil
}
