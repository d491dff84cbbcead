package main

import (
	"context"
	"fmt"
)

const cartColumns = `id, user_id, quantity, total_amount, total_tax_amount, created_at, updated_at`

func scanCart(row interface{ Scan(dest ...any) error }) (*Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.Quantity, &c.TotalAmount, &c.TotalTaxAmount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCartForUpdate obtém o carrinho com lock pessimista (FOR UPDATE)
func (r *PostgresRepository) GetCartForUpdate(ctx context.Context, tx Tx, userID string) (*Cart, error) {
	cart, err := scanCart(r.q(tx).QueryRow(ctx, `
		SELECT `+cartColumns+`
		FROM carts
		WHERE user_id = $1
		FOR UPDATE
	`, userID))
	if err != nil {
		return nil, notFoundOr(err, "cart for user %s not found", userID)
	}
	return cart, nil
}

// GetCart busca o carrinho do usuário sem lock
func (r *PostgresRepository) GetCart(ctx context.Context, tx Tx, userID string) (*Cart, error) {
	cart, err := scanCart(r.q(tx).QueryRow(ctx, `
		SELECT `+cartColumns+`
		FROM carts
		WHERE user_id = $1
	`, userID))
	if err != nil {
		return nil, notFoundOr(err, "cart for user %s not found", userID)
	}
	return cart, nil
}

// CreateCart cria o carrinho; a unicidade de user_id é garantida pelo banco
func (r *PostgresRepository) CreateCart(ctx context.Context, tx Tx, cart *Cart) error {
	_, err := r.q(tx).Exec(ctx, `
		INSERT INTO carts (`+cartColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cart.ID, cart.UserID, cart.Quantity, cart.TotalAmount, cart.TotalTaxAmount, cart.CreatedAt, cart.UpdatedAt)
	if isUniqueViolation(err) {
		return conflictError(err, "cart for user %s already exists", cart.UserID)
	}
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

// UpdateCart grava os agregados do carrinho
func (r *PostgresRepository) UpdateCart(ctx context.Context, tx Tx, cart *Cart) error {
	_, err := r.q(tx).Exec(ctx, `
		UPDATE carts
		SET quantity = $1, total_amount = $2, total_tax_amount = $3, updated_at = $4
		WHERE id = $5
	`, cart.Quantity, cart.TotalAmount, cart.TotalTaxAmount, cart.UpdatedAt, cart.ID)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	return nil
}

const lineItemColumns = `li.id, li.cart_id, li.sku, pv.product_name, li.quantity, li.price, li.amount, li.created_at`

func scanLineItem(row interface{ Scan(dest ...any) error }) (*LineItem, error) {
	var li LineItem
	err := row.Scan(&li.ID, &li.CartID, &li.SKU, &li.ProductName, &li.Quantity, &li.Price, &li.Amount, &li.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &li, nil
}

// ListLineItems lista os itens do carrinho na ordem de inclusão
func (r *PostgresRepository) ListLineItems(ctx context.Context, tx Tx, cartID string) ([]*LineItem, error) {
	rows, err := r.q(tx).Query(ctx, `
		SELECT `+lineItemColumns+`
		FROM line_items li
		JOIN product_variants pv ON pv.sku = li.sku
		WHERE li.cart_id = $1
		ORDER BY li.created_at, li.id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var items []*LineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// GetLineItem busca a linha do SKU no carrinho
func (r *PostgresRepository) GetLineItem(ctx context.Context, tx Tx, cartID, sku string) (*LineItem, error) {
	item, err := scanLineItem(r.q(tx).QueryRow(ctx, `
		SELECT `+lineItemColumns+`
		FROM line_items li
		JOIN product_variants pv ON pv.sku = li.sku
		WHERE li.cart_id = $1 AND li.sku = $2
	`, cartID, sku))
	if err != nil {
		return nil, notFoundOr(err, "line item %s not found in cart", sku)
	}
	return item, nil
}

// CreateLineItem insere uma nova linha no carrinho
func (r *PostgresRepository) CreateLineItem(ctx context.Context, tx Tx, item *LineItem) error {
	_, err := r.q(tx).Exec(ctx, `
		INSERT INTO line_items (id, cart_id, sku, quantity, price, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.CartID, item.SKU, item.Quantity, item.Price, item.Amount, item.CreatedAt)
	if isUniqueViolation(err) {
		return conflictError(err, "line item %s already in cart", item.SKU)
	}
	if err != nil {
		return fmt.Errorf("failed to create line item: %w", err)
	}
	return nil
}

// UpdateLineItem grava quantidade e valor da linha
func (r *PostgresRepository) UpdateLineItem(ctx context.Context, tx Tx, item *LineItem) error {
	_, err := r.q(tx).Exec(ctx, `
		UPDATE line_items
		SET quantity = $1, amount = $2
		WHERE id = $3
	`, item.Quantity, item.Amount, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update line item: %w", err)
	}
	return nil
}

// DeleteLineItem remove uma linha do carrinho
func (r *PostgresRepository) DeleteLineItem(ctx context.Context, tx Tx, itemID string) error {
	_, err := r.q(tx).Exec(ctx, `DELETE FROM line_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete line item: %w", err)
	}
	return nil
}

// DeleteLineItems remove todas as linhas do carrinho
func (r *PostgresRepository) DeleteLineItems(ctx context.Context, tx Tx, cartID string) error {
	_, err := r.q(tx).Exec(ctx, `DELETE FROM line_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("failed to delete line items: %w", err)
	}
	return nil
}
