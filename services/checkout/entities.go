package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant representa uma variante comprável (SKU/UPC) de um produto do catálogo
type ProductVariant struct {
	SKU         string          `json:"sku" db:"sku"`
	UPC         string          `json:"upc" db:"upc"`
	ProductName string          `json:"product_name" db:"product_name"`
	ProductType string          `json:"product_type" db:"product_type"`
	Brand       string          `json:"brand" db:"brand"`
	RetailPrice decimal.Decimal `json:"retail_price" db:"retail_price"`
	StorePrice  decimal.Decimal `json:"store_price" db:"store_price"`
	SalePrice   decimal.Decimal `json:"sale_price" db:"sale_price"`
	IsOnSale    bool            `json:"is_on_sale" db:"is_on_sale"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	Weight      float64         `json:"weight" db:"weight"`
}

// PricePolicy decide qual preço unitário vale quando a variante está em promoção
type PricePolicy string

const (
	// PricePolicySaleWins usa o preço promocional sempre que a flag estiver ligada
	PricePolicySaleWins PricePolicy = "sale_wins"
	// PricePolicyLowest usa o menor entre preço de loja e promocional
	PricePolicyLowest PricePolicy = "lowest"
)

// UnitPrice devolve o preço unitário da variante segundo a política
func (v *ProductVariant) UnitPrice(policy PricePolicy) decimal.Decimal {
	if !v.IsOnSale {
		return v.StorePrice
	}
	if policy == PricePolicyLowest {
		return decimal.Min(v.SalePrice, v.StorePrice)
	}
	return v.SalePrice
}

// ProductAttributeValue é um valor de atributo (cor, tamanho...) de uma variante
type ProductAttributeValue struct {
	SKU       string `json:"sku" db:"sku"`
	Attribute string `json:"attribute" db:"attribute_name"`
	Value     string `json:"value" db:"value"`
}

// GroupAttributes agrupa os valores por nome de atributo, na ordem recebida
func GroupAttributes(values []ProductAttributeValue) map[string][]string {
	grouped := make(map[string][]string)
	for _, v := range values {
		grouped[v.Attribute] = append(grouped[v.Attribute], v.Value)
	}
	return grouped
}

// StockRecord guarda os contadores de estoque de uma variante
type StockRecord struct {
	SKU            string     `json:"sku" db:"sku"`
	UnitsAvailable int        `json:"units_available" db:"units_available"`
	UnitsSold      int        `json:"units_sold" db:"units_sold"`
	LastChecked    *time.Time `json:"last_checked,omitempty" db:"last_checked"`
}

// TaxRule associa um percentual de imposto a um conjunto de tipos de produto
type TaxRule struct {
	ID           string   `json:"id" db:"id"`
	TaxType      string   `json:"tax_type" db:"tax_type"`
	Percentage   int      `json:"tax_percentage" db:"tax_percentage"`
	ProductTypes []string `json:"product_types"`
	IsActive     bool     `json:"is_active" db:"is_active"`
}

// AppliesTo informa se a regra cobre o tipo de produto
func (r TaxRule) AppliesTo(productType string) bool {
	if !r.IsActive {
		return false
	}
	for _, pt := range r.ProductTypes {
		if pt == productType {
			return true
		}
	}
	return false
}

// Cart é o carrinho único de um usuário, com agregados desnormalizados
type Cart struct {
	ID             string          `json:"id" db:"id"`
	UserID         string          `json:"user_id" db:"user_id"`
	Quantity       int             `json:"quantity" db:"quantity"`
	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`
	TotalTaxAmount decimal.Decimal `json:"total_tax_amount" db:"total_tax_amount"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// NewCart cria uma nova instância de Cart vazia
func NewCart(userID string) *Cart {
	now := time.Now()
	return &Cart{
		ID:             uuid.New().String(),
		UserID:         userID,
		TotalAmount:    decimal.Zero,
		TotalTaxAmount: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Recalculate refaz os agregados a partir dos itens e das linhas de imposto
func (c *Cart) Recalculate(items []*LineItem, taxLines []TaxLine) {
	quantity := 0
	amount := decimal.Zero
	for _, item := range items {
		quantity += item.Quantity
		amount = amount.Add(item.Amount)
	}

	c.Quantity = quantity
	c.TotalAmount = amount
	c.TotalTaxAmount = TotalTax(taxLines)
	c.UpdatedAt = time.Now()
}

// Reset zera os agregados do carrinho
func (c *Cart) Reset() {
	c.Quantity = 0
	c.TotalAmount = decimal.Zero
	c.TotalTaxAmount = decimal.Zero
	c.UpdatedAt = time.Now()
}

// LineItem é uma linha do carrinho com o preço congelado no momento da adição
type LineItem struct {
	ID          string          `json:"id" db:"id"`
	CartID      string          `json:"cart_id" db:"cart_id"`
	SKU         string          `json:"sku" db:"sku"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// NewLineItem cria uma nova linha com amount = price * quantity
func NewLineItem(cartID string, variant *ProductVariant, price decimal.Decimal, quantity int) *LineItem {
	return &LineItem{
		ID:          uuid.New().String(),
		CartID:      cartID,
		SKU:         variant.SKU,
		ProductName: variant.ProductName,
		Quantity:    quantity,
		Price:       price,
		Amount:      price.Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:   time.Now(),
	}
}

// SetQuantity altera a quantidade mantendo o preço congelado
func (li *LineItem) SetQuantity(quantity int) {
	li.Quantity = quantity
	li.Amount = li.Price.Mul(decimal.NewFromInt(int64(quantity)))
}

// ShippingInfo é a cópia dos dados de entrega e contato no momento do pedido
type ShippingInfo struct {
	FirstName string `json:"first_name" db:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" db:"last_name" validate:"required,max=50"`
	Phone     string `json:"phone" db:"phone" validate:"max=15"`
	Email     string `json:"email" db:"email" validate:"required,email,max=50"`
	Address   string `json:"address" db:"address" validate:"required,max=200"`
	Country   string `json:"country" db:"country" validate:"max=15"`
	State     string `json:"state" db:"state" validate:"max=15"`
	City      string `json:"city" db:"city" validate:"required,max=50"`
	PinCode   string `json:"pin_code" db:"pin_code" validate:"required,max=10"`
}

// Name devolve o nome completo do destinatário
func (s ShippingInfo) Name() string {
	return s.FirstName + " " + s.LastName
}

// Métodos de pagamento aceitos
const (
	PaymentMethodPayPal    = "PayPal"
	PaymentMethodOther     = "Other Method"
	PaymentMethodDifferent = "Different Method"
)

// OrderStatus representa os possíveis status de um pedido
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "New"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusAccepted   OrderStatus = "Accepted"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
	OrderStatusFailed     OrderStatus = "Failed"
	OrderStatusTimedOut   OrderStatus = "TimedOut"
)

// Processing marca o pedido reservado para uma cobrança em andamento;
// só o resultado dessa cobrança tira o pedido desse status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:        {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusTimedOut:   {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusAccepted, OrderStatusNew, OrderStatusFailed, OrderStatusTimedOut},
	OrderStatusAccepted:   {OrderStatusCompleted},
}

// openOrderStatuses são os status de pedidos que ainda podem consumir o carrinho
var openOrderStatuses = []OrderStatus{OrderStatusNew, OrderStatusProcessing, OrderStatusAccepted, OrderStatusTimedOut}

// CanTransitionTo informa se a transição de status é permitida
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order é o registro de intenção de compra criado no checkout
type Order struct {
	ID            string          `json:"id" db:"id"`
	OrderNumber   string          `json:"order_number" db:"order_number"`
	UserID        string          `json:"user_id" db:"user_id"`
	PaymentID     *string         `json:"payment_id,omitempty" db:"payment_id"`
	Shipping      ShippingInfo    `json:"shipping"`
	Total         decimal.Decimal `json:"total" db:"total"`
	TotalTax      decimal.Decimal `json:"total_tax" db:"total_tax"`
	PaymentMethod string          `json:"payment_method" db:"payment_method"`
	Status        OrderStatus     `json:"status" db:"status"`
	IsOrdered     bool            `json:"is_ordered" db:"is_ordered"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// NewOrder cria um pedido com status New a partir dos totais do carrinho
func NewOrder(orderNumber string, cart *Cart, shipping ShippingInfo, paymentMethod string) *Order {
	now := time.Now()
	return &Order{
		ID:            uuid.New().String(),
		OrderNumber:   orderNumber,
		UserID:        cart.UserID,
		Shipping:      shipping,
		Total:         cart.TotalAmount.Add(cart.TotalTaxAmount),
		TotalTax:      cart.TotalTaxAmount,
		PaymentMethod: paymentMethod,
		Status:        OrderStatusNew,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// TransitionTo muda o status do pedido validando a máquina de estados
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return newError(KindConflict, "order %s cannot move from %s to %s", o.OrderNumber, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = time.Now()
	return nil
}

// Accept marca o pedido como pago
func (o *Order) Accept(paymentID string) error {
	if err := o.TransitionTo(OrderStatusAccepted); err != nil {
		return err
	}
	o.PaymentID = &paymentID
	o.IsOrdered = true
	return nil
}

// PaymentStatus representa o resultado de uma tentativa de pagamento
type PaymentStatus string

const (
	PaymentStatusCompleted    PaymentStatus = "Completed"
	PaymentStatusDeclined     PaymentStatus = "Declined"
	PaymentStatusGatewayError PaymentStatus = "GatewayError"
	PaymentStatusTimedOut     PaymentStatus = "TimedOut"
)

// Payment é o registro append-only de uma tentativa de pagamento
type Payment struct {
	ID            string          `json:"id" db:"id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	UserID        string          `json:"user_id" db:"user_id"`
	OrderNumber   string          `json:"order_number" db:"order_number"`
	PaymentMethod string          `json:"payment_method" db:"payment_method"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        PaymentStatus   `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// NewPayment cria uma nova instância de Payment para o pedido
func NewPayment(order *Order, transactionID string, status PaymentStatus) *Payment {
	return &Payment{
		ID:            uuid.New().String(),
		TransactionID: transactionID,
		UserID:        order.UserID,
		OrderNumber:   order.OrderNumber,
		PaymentMethod: order.PaymentMethod,
		Amount:        order.Total,
		Status:        status,
		CreatedAt:     time.Now(),
	}
}

// PlacedOrderItem é o snapshot imutável de uma linha do pedido
type PlacedOrderItem struct {
	Product  string          `json:"product"`
	SKU      string          `json:"sku"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// PlacedOrder é o registro histórico imutável criado após o pagamento
type PlacedOrder struct {
	ID          string            `json:"id" db:"id"`
	UserID      string            `json:"user_id" db:"user_id"`
	OrderNumber string            `json:"order_number" db:"order_number"`
	OrderItems  []PlacedOrderItem `json:"order_items" db:"order_items"`
	TotalAmount decimal.Decimal   `json:"total_amount" db:"total_amount"`
	TotalTax    decimal.Decimal   `json:"total_tax" db:"total_tax"`
	OrderDate   time.Time         `json:"order_date" db:"order_date"`
}

// NewPlacedOrder tira o snapshot dos itens do carrinho para o histórico
func NewPlacedOrder(order *Order, items []*LineItem) *PlacedOrder {
	snapshot := make([]PlacedOrderItem, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, PlacedOrderItem{
			Product:  item.ProductName,
			SKU:      item.SKU,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	return &PlacedOrder{
		ID:          uuid.New().String(),
		UserID:      order.UserID,
		OrderNumber: order.OrderNumber,
		OrderItems:  snapshot,
		TotalAmount: order.Total,
		TotalTax:    order.TotalTax,
		OrderDate:   time.Now(),
	}
}
