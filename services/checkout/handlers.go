package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CartService define as operações de carrinho expostas via HTTP
type CartService interface {
	AddToCart(ctx context.Context, userID, sku string, quantity int) (*CartView, error)
	UpdateLineItemQuantity(ctx context.Context, userID, sku string, quantity int) (*CartView, error)
	RemoveLineItem(ctx context.Context, userID, sku string) (*CartView, error)
	ClearCart(ctx context.Context, userID string) error
	GetCart(ctx context.Context, userID string) (*CartView, error)
	CartQuantity(ctx context.Context, userID string) (int, error)
}

// CheckoutService define as operações de pedido expostas via HTTP
type CheckoutService interface {
	PlaceOrder(ctx context.Context, userID string, shipping ShippingInfo, paymentMethod string) (*Order, error)
	ProcessPayment(ctx context.Context, userID, orderNumber string) (*Payment, error)
	FinalizeOrder(ctx context.Context, userID, orderNumber string) (*PlacedOrder, error)
	CancelOrder(ctx context.Context, userID, orderNumber string) (*Order, error)
	GetOrder(ctx context.Context, userID, orderNumber string) (*Order, error)
	GetPlacedOrder(ctx context.Context, userID, orderNumber string) (*PlacedOrder, error)
	ListPlacedOrders(ctx context.Context, userID string) ([]*PlacedOrder, error)
}

// CatalogService define as leituras de catálogo expostas via HTTP
type CatalogService interface {
	GetVariant(ctx context.Context, sku string) (*VariantDetail, error)
	ListOnSale(ctx context.Context) ([]*ProductVariant, error)
}

// AddItemRequest representa a requisição para adicionar um item ao carrinho
type AddItemRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity *int   `json:"quantity"`
}

// UpdateItemRequest representa a requisição para alterar a quantidade de uma linha
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// PlaceOrderRequest representa a submissão do formulário de checkout
type PlaceOrderRequest struct {
	UserID        string       `json:"user_id" binding:"required"`
	Shipping      ShippingInfo `json:"shipping"`
	PaymentMethod string       `json:"payment_method" binding:"required"`
}

// OrderActionRequest identifica o dono do pedido nas ações de pagamento, finalização e cancelamento
type OrderActionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// OwnerQuery identifica o dono do pedido nas leituras
type OwnerQuery struct {
	UserID string `form:"user_id" binding:"required"`
}

// CheckoutHandler contém os handlers HTTP
type CheckoutHandler struct {
	catalog  CatalogService
	carts    CartService
	checkout CheckoutService
}

// NewCheckoutHandler cria uma nova instância de CheckoutHandler
func NewCheckoutHandler(catalog CatalogService, carts CartService, checkout CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{catalog: catalog, carts: carts, checkout: checkout}
}

// RegisterRoutes registra as rotas do serviço
func (h *CheckoutHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)

	r.GET("/api/catalog/on-sale", h.ListOnSale)
	r.GET("/api/catalog/variants/:sku", h.GetVariant)

	carts := r.Group("/api/carts/:user_id")
	carts.GET("", h.GetCart)
	carts.DELETE("", h.ClearCart)
	carts.GET("/quantity", h.CartQuantity)
	carts.POST("/items", h.AddItem)
	carts.PATCH("/items/:sku", h.UpdateItem)
	carts.DELETE("/items/:sku", h.RemoveItem)

	r.POST("/api/orders", h.PlaceOrder)
	r.GET("/api/orders/:order_number", h.GetOrder)
	r.POST("/api/orders/:order_number/payment", h.ProcessPayment)
	r.POST("/api/orders/:order_number/finalize", h.FinalizeOrder)
	r.POST("/api/orders/:order_number/cancel", h.CancelOrder)

	r.GET("/api/placed-orders/:order_number", h.GetPlacedOrder)
	r.GET("/api/users/:user_id/placed-orders", h.ListPlacedOrders)
}

// statusFor mapeia o tipo do erro para o status HTTP
func statusFor(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindEmptyCart:
		return http.StatusUnprocessableEntity
	case KindInsufficientStock, KindConflict:
		return http.StatusConflict
	case KindPaymentFailed:
		return http.StatusPaymentRequired
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	if kind := KindOf(err); kind != "" {
		body["kind"] = kind
	}
	c.JSON(statusFor(err), body)
}

// GetVariant devolve a variante com preço efetivo, atributos e estoque
func (h *CheckoutHandler) GetVariant(c *gin.Context) {
	detail, err := h.catalog.GetVariant(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListOnSale lista as variantes em promoção
func (h *CheckoutHandler) ListOnSale(c *gin.Context) {
	variants, err := h.catalog.ListOnSale(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": variants})
}

// GetCart devolve o carrinho do usuário com itens e impostos
func (h *CheckoutHandler) GetCart(c *gin.Context) {
	view, err := h.carts.GetCart(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CartQuantity devolve o total de unidades no carrinho
func (h *CheckoutHandler) CartQuantity(c *gin.Context) {
	quantity, err := h.carts.CartQuantity(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quantity": quantity})
}

// AddItem adiciona um SKU ao carrinho
func (h *CheckoutHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.carts.AddToCart(c.Request.Context(), c.Param("user_id"), req.SKU, quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateItem altera a quantidade de uma linha do carrinho
func (h *CheckoutHandler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.carts.UpdateLineItemQuantity(c.Request.Context(), c.Param("user_id"), c.Param("sku"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RemoveItem remove uma linha do carrinho
func (h *CheckoutHandler) RemoveItem(c *gin.Context) {
	view, err := h.carts.RemoveLineItem(c.Request.Context(), c.Param("user_id"), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ClearCart esvazia o carrinho
func (h *CheckoutHandler) ClearCart(c *gin.Context) {
	if err := h.carts.ClearCart(c.Request.Context(), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PlaceOrder cria o pedido a partir do carrinho
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.checkout.PlaceOrder(c.Request.Context(), req.UserID, req.Shipping, req.PaymentMethod)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrder busca um pedido do usuário pelo order_number
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	var q OwnerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.checkout.GetOrder(c.Request.Context(), q.UserID, c.Param("order_number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ProcessPayment cobra o pedido
func (h *CheckoutHandler) ProcessPayment(c *gin.Context) {
	var req OrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.checkout.ProcessPayment(c.Request.Context(), req.UserID, c.Param("order_number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// FinalizeOrder arquiva o pedido pago
func (h *CheckoutHandler) FinalizeOrder(c *gin.Context) {
	var req OrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	placed, err := h.checkout.FinalizeOrder(c.Request.Context(), req.UserID, c.Param("order_number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, placed)
}

// CancelOrder cancela um pedido não pago
func (h *CheckoutHandler) CancelOrder(c *gin.Context) {
	var req OrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.checkout.CancelOrder(c.Request.Context(), req.UserID, c.Param("order_number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetPlacedOrder busca o pedido arquivado do usuário
func (h *CheckoutHandler) GetPlacedOrder(c *gin.Context) {
	var q OwnerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	placed, err := h.checkout.GetPlacedOrder(c.Request.Context(), q.UserID, c.Param("order_number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, placed)
}

// ListPlacedOrders lista o histórico do usuário
func (h *CheckoutHandler) ListPlacedOrders(c *gin.Context) {
	placed, err := h.checkout.ListPlacedOrders(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"placed_orders": placed})
}

// HealthCheck verifica se o serviço está funcionando
func (h *CheckoutHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "checkout-service",
	})
}
