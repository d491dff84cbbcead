package main

import (
	"context"
	"encoding/json"
	"fmt"
)

const orderColumns = `id, order_number, user_id, payment_id,
	first_name, last_name, phone, email, address, country, state, city, pin_code,
	total, total_tax, payment_method, status, is_ordered, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (*Order, error) {
	var o Order
	s := &o.Shipping
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.PaymentID,
		&s.FirstName, &s.LastName, &s.Phone, &s.Email, &s.Address, &s.Country, &s.State, &s.City, &s.PinCode,
		&o.Total, &o.TotalTax, &o.PaymentMethod, &o.Status, &o.IsOrdered, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder insere o pedido; order_number é único no banco
func (r *PostgresRepository) CreateOrder(ctx context.Context, tx Tx, order *Order) error {
	s := order.Shipping
	_, err := r.q(tx).Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		order.ID, order.OrderNumber, order.UserID, order.PaymentID,
		s.FirstName, s.LastName, s.Phone, s.Email, s.Address, s.Country, s.State, s.City, s.PinCode,
		order.Total, order.TotalTax, order.PaymentMethod, order.Status, order.IsOrdered, order.CreatedAt, order.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return conflictError(err, "order number %s already exists", order.OrderNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetOrder busca um pedido pelo order_number
func (r *PostgresRepository) GetOrder(ctx context.Context, tx Tx, orderNumber string) (*Order, error) {
	order, err := scanOrder(r.q(tx).QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE order_number = $1
	`, orderNumber))
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", orderNumber)
	}
	return order, nil
}

// GetOrderForUpdate obtém o pedido com lock pessimista (FOR UPDATE)
func (r *PostgresRepository) GetOrderForUpdate(ctx context.Context, tx Tx, orderNumber string) (*Order, error) {
	order, err := scanOrder(r.q(tx).QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE order_number = $1
		FOR UPDATE
	`, orderNumber))
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", orderNumber)
	}
	return order, nil
}

// FindOpenOrder busca o pedido mais recente do usuário em status aberto
func (r *PostgresRepository) FindOpenOrder(ctx context.Context, tx Tx, userID string) (*Order, error) {
	statuses := make([]string, 0, len(openOrderStatuses))
	for _, s := range openOrderStatuses {
		statuses = append(statuses, string(s))
	}

	order, err := scanOrder(r.q(tx).QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, statuses))
	if err != nil {
		return nil, notFoundOr(err, "no open order for user %s", userID)
	}
	return order, nil
}

// UpdateOrder grava status, pagamento e flag is_ordered do pedido
func (r *PostgresRepository) UpdateOrder(ctx context.Context, tx Tx, order *Order) error {
	_, err := r.q(tx).Exec(ctx, `
		UPDATE orders
		SET status = $1, is_ordered = $2, payment_id = $3, updated_at = $4
		WHERE id = $5
	`, order.Status, order.IsOrdered, order.PaymentID, order.UpdatedAt, order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// CreatePayment registra uma tentativa de pagamento
func (r *PostgresRepository) CreatePayment(ctx context.Context, tx Tx, payment *Payment) error {
	_, err := r.q(tx).Exec(ctx, `
		INSERT INTO payments (id, transaction_id, user_id, order_number, payment_method, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, payment.ID, payment.TransactionID, payment.UserID, payment.OrderNumber,
		payment.PaymentMethod, payment.Amount, payment.Status, payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// CreatePlacedOrder grava o snapshot histórico do pedido
func (r *PostgresRepository) CreatePlacedOrder(ctx context.Context, tx Tx, placed *PlacedOrder) error {
	items, err := json.Marshal(placed.OrderItems)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	_, err = r.q(tx).Exec(ctx, `
		INSERT INTO placed_orders (id, user_id, order_number, order_items, total_amount, total_tax, order_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, placed.ID, placed.UserID, placed.OrderNumber, items, placed.TotalAmount, placed.TotalTax, placed.OrderDate)
	if isUniqueViolation(err) {
		return conflictError(err, "order %s already placed", placed.OrderNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to create placed order: %w", err)
	}
	return nil
}

const placedOrderColumns = `id, user_id, order_number, order_items, total_amount, total_tax, order_date`

func scanPlacedOrder(row interface{ Scan(dest ...any) error }) (*PlacedOrder, error) {
	var (
		p     PlacedOrder
		items []byte
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.OrderNumber, &items, &p.TotalAmount, &p.TotalTax, &p.OrderDate); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &p.OrderItems); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	return &p, nil
}

// GetPlacedOrder busca o histórico de um pedido pelo order_number
func (r *PostgresRepository) GetPlacedOrder(ctx context.Context, tx Tx, orderNumber string) (*PlacedOrder, error) {
	placed, err := scanPlacedOrder(r.q(tx).QueryRow(ctx, `
		SELECT `+placedOrderColumns+`
		FROM placed_orders WHERE order_number = $1
	`, orderNumber))
	if err != nil {
		return nil, notFoundOr(err, "placed order %s not found", orderNumber)
	}
	return placed, nil
}

// ListPlacedOrders lista o histórico do usuário, mais recentes primeiro
func (r *PostgresRepository) ListPlacedOrders(ctx context.Context, tx Tx, userID string) ([]*PlacedOrder, error) {
	rows, err := r.q(tx).Query(ctx, `
		SELECT `+placedOrderColumns+`
		FROM placed_orders
		WHERE user_id = $1
		ORDER BY order_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query placed orders: %w", err)
	}
	defer rows.Close()

	var placed []*PlacedOrder
	for rows.Next() {
		p, err := scanPlacedOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan placed order: %w", err)
		}
		placed = append(placed, p)
	}

	return placed, rows.Err()
}
