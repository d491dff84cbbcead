package main

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogStore define as leituras de catálogo e a baixa de estoque
type CatalogStore interface {
	FindVariantBySKU(ctx context.Context, tx Tx, sku string) (*ProductVariant, error)
	GetStock(ctx context.Context, tx Tx, sku string) (*StockRecord, error)
	TaxRulesForProductType(ctx context.Context, tx Tx, productType string) ([]TaxRule, error)

	// AttributesForVariant agrupa os valores de atributo do SKU por nome;
	// mapa vazio quando a variante não tem atributos
	AttributesForVariant(ctx context.Context, tx Tx, sku string) (map[string][]string, error)
	// ListOnSaleVariants lista as variantes ativas em promoção, por SKU
	ListOnSaleVariants(ctx context.Context, tx Tx) ([]*ProductVariant, error)

	// DecrementStock faz compare-and-decrement atômico: falha com
	// InsufficientStock se units_available < quantity
	DecrementStock(ctx context.Context, tx Tx, sku string, quantity int) error
}

// CartStore define as operações de banco de dados do carrinho
type CartStore interface {
	// GetCartForUpdate obtém o carrinho do usuário com lock pessimista (FOR UPDATE)
	GetCartForUpdate(ctx context.Context, tx Tx, userID string) (*Cart, error)
	GetCart(ctx context.Context, tx Tx, userID string) (*Cart, error)

	// CreateCart falha com Conflict se o usuário já possui carrinho
	CreateCart(ctx context.Context, tx Tx, cart *Cart) error
	UpdateCart(ctx context.Context, tx Tx, cart *Cart) error

	ListLineItems(ctx context.Context, tx Tx, cartID string) ([]*LineItem, error)
	GetLineItem(ctx context.Context, tx Tx, cartID, sku string) (*LineItem, error)
	CreateLineItem(ctx context.Context, tx Tx, item *LineItem) error
	UpdateLineItem(ctx context.Context, tx Tx, item *LineItem) error
	DeleteLineItem(ctx context.Context, tx Tx, itemID string) error
	DeleteLineItems(ctx context.Context, tx Tx, cartID string) error
}

// OrderStore define as operações de banco de dados de pedidos e pagamentos
type OrderStore interface {
	// CreateOrder falha com Conflict se o order_number já existir
	CreateOrder(ctx context.Context, tx Tx, order *Order) error
	GetOrder(ctx context.Context, tx Tx, orderNumber string) (*Order, error)
	GetOrderForUpdate(ctx context.Context, tx Tx, orderNumber string) (*Order, error)
	UpdateOrder(ctx context.Context, tx Tx, order *Order) error
	// FindOpenOrder devolve o pedido mais recente do usuário ainda em aberto,
	// ou NotFound
	FindOpenOrder(ctx context.Context, tx Tx, userID string) (*Order, error)

	CreatePayment(ctx context.Context, tx Tx, payment *Payment) error

	CreatePlacedOrder(ctx context.Context, tx Tx, placed *PlacedOrder) error
	GetPlacedOrder(ctx context.Context, tx Tx, orderNumber string) (*PlacedOrder, error)
	ListPlacedOrders(ctx context.Context, tx Tx, userID string) ([]*PlacedOrder, error)
}

// Repository agrupa os stores e o controle de transação
type Repository interface {
	CatalogStore
	CartStore
	OrderStore
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx interface para transações
type Tx interface {
	Commit() error
	Rollback() error
}

// pgxPool é a parte do pgxpool.Pool que o repositório usa
type pgxPool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository implementa Repository usando PostgreSQL
type PostgresRepository struct {
	db pgxPool
}

// NewPostgresRepository cria uma nova instância de PostgresRepository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// PostgresTx implementa a interface Tx
type PostgresTx struct {
	tx pgx.Tx
}

func (t *PostgresTx) Commit() error {
	return t.tx.Commit(context.Background())
}

func (t *PostgresTx) Rollback() error {
	err := t.tx.Rollback(context.Background())
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// BeginTx inicia uma nova transação
func (r *PostgresRepository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &PostgresTx{tx: tx}, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// q devolve a transação quando informada, ou o pool para leituras avulsas
func (r *PostgresRepository) q(tx Tx) querier {
	if tx == nil {
		return r.db
	}
	return tx.(*PostgresTx).tx
}

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// notFoundOr converte pgx.ErrNoRows em NotFound
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return newError(KindNotFound, format, args...)
	}
	return err
}

// RetryPolicy controla as novas tentativas de uma unidade de trabalho em conflito
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
}

// DefaultRetryPolicy é usada quando nada é configurado
var DefaultRetryPolicy = RetryPolicy{MaxTries: 3, InitialInterval: 20 * time.Millisecond}

// runInTx executa fn dentro de uma transação e repete a unidade inteira
// quando o erro é um Conflict de concorrência
func runInTx(ctx context.Context, repo Repository, policy RetryPolicy, fn func(tx Tx) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := attemptTx(ctx, repo, fn)
		if err != nil && !isRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(policy.MaxTries))

	return err
}

func attemptTx(ctx context.Context, repo Repository, fn func(tx Tx) error) error {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}
