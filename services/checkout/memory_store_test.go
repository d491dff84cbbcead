package main

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// memoryStore implementa Repository em memória. Uma transação aberta segura o
// lock global até Commit/Rollback, e Rollback restaura o snapshot inicial.
type memoryStore struct {
	mu    sync.Mutex
	state *memState

	failMu   sync.Mutex
	failures map[string][]error
}

type memState struct {
	variants map[string]ProductVariant
	attrs    []ProductAttributeValue
	stock    map[string]StockRecord
	taxRules []TaxRule
	carts    map[string]Cart
	items    map[string]LineItem
	itemSeq  map[string]int
	orders   map[string]Order
	payments []Payment
	placed   map[string]PlacedOrder
	seq      int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		state: &memState{
			variants: map[string]ProductVariant{},
			stock:    map[string]StockRecord{},
			carts:    map[string]Cart{},
			items:    map[string]LineItem{},
			itemSeq:  map[string]int{},
			orders:   map[string]Order{},
			placed:   map[string]PlacedOrder{},
		},
		failures: map[string][]error{},
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		variants: make(map[string]ProductVariant, len(st.variants)),
		stock:    make(map[string]StockRecord, len(st.stock)),
		attrs:    append([]ProductAttributeValue(nil), st.attrs...),
		taxRules: append([]TaxRule(nil), st.taxRules...),
		carts:    make(map[string]Cart, len(st.carts)),
		items:    make(map[string]LineItem, len(st.items)),
		itemSeq:  make(map[string]int, len(st.itemSeq)),
		orders:   make(map[string]Order, len(st.orders)),
		payments: append([]Payment(nil), st.payments...),
		placed:   make(map[string]PlacedOrder, len(st.placed)),
		seq:      st.seq,
	}
	for k, v := range st.variants {
		c.variants[k] = v
	}
	for k, v := range st.stock {
		c.stock[k] = v
	}
	for k, v := range st.carts {
		c.carts[k] = v
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	for k, v := range st.itemSeq {
		c.itemSeq[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	for k, v := range st.placed {
		c.placed[k] = v
	}
	return c
}

// failNext faz as próximas chamadas de op devolverem errs, na ordem
func (s *memoryStore) failNext(op string, errs ...error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[op] = append(s.failures[op], errs...)
}

func (s *memoryStore) injected(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	queue := s.failures[op]
	if len(queue) == 0 {
		return nil
	}
	s.failures[op] = queue[1:]
	return queue[0]
}

// do executa fn no estado atual; sem transação, segura o lock só durante a chamada
func (s *memoryStore) do(tx Tx, op string, fn func(st *memState) error) error {
	if tx == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err := s.injected(op); err != nil {
		return err
	}
	return fn(s.state)
}

// seed helpers

func (s *memoryStore) addVariant(v ProductVariant, unitsAvailable int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.variants[v.SKU] = v
	s.state.stock[v.SKU] = StockRecord{SKU: v.SKU, UnitsAvailable: unitsAvailable}
}

func (s *memoryStore) addAttribute(sku, attribute string, values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		s.state.attrs = append(s.state.attrs, ProductAttributeValue{SKU: sku, Attribute: attribute, Value: v})
	}
}

// setOrderStatus muda o status por fora dos casos de uso, como outro processo faria
func (s *memoryStore) setOrderStatus(orderNumber string, status OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.state.orders[orderNumber]
	o.Status = status
	s.state.orders[orderNumber] = o
}

func (s *memoryStore) addTaxRule(rule TaxRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.taxRules = append(s.state.taxRules, rule)
}

func (s *memoryStore) stockOf(sku string) StockRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.stock[sku]
}

func (s *memoryStore) paymentsFor(orderNumber string) []Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Payment
	for _, p := range s.state.payments {
		if p.OrderNumber == orderNumber {
			out = append(out, p)
		}
	}
	return out
}

func (s *memoryStore) placedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.placed)
}

type memTx struct {
	store    *memoryStore
	snapshot *memState
	done     bool
}

func (s *memoryStore) BeginTx(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memTx{store: s, snapshot: s.state.clone()}, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("transaction already closed")
	}
	if err := t.store.injected("Commit"); err != nil {
		t.store.state = t.snapshot
		t.done = true
		t.store.mu.Unlock()
		return err
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.store.state = t.snapshot
	t.done = true
	t.store.mu.Unlock()
	return nil
}

// CatalogStore

func (s *memoryStore) FindVariantBySKU(ctx context.Context, tx Tx, sku string) (*ProductVariant, error) {
	var out *ProductVariant
	err := s.do(tx, "FindVariantBySKU", func(st *memState) error {
		v, ok := st.variants[sku]
		if !ok {
			return newError(KindNotFound, "product variant %s not found", sku)
		}
		out = &v
		return nil
	})
	return out, err
}

func (s *memoryStore) GetStock(ctx context.Context, tx Tx, sku string) (*StockRecord, error) {
	var out *StockRecord
	err := s.do(tx, "GetStock", func(st *memState) error {
		rec, ok := st.stock[sku]
		if !ok {
			return newError(KindNotFound, "stock for %s not found", sku)
		}
		out = &rec
		return nil
	})
	return out, err
}

func (s *memoryStore) TaxRulesForProductType(ctx context.Context, tx Tx, productType string) ([]TaxRule, error) {
	var out []TaxRule
	err := s.do(tx, "TaxRulesForProductType", func(st *memState) error {
		for _, rule := range st.taxRules {
			if rule.AppliesTo(productType) {
				out = append(out, rule)
			}
		}
		return nil
	})
	return out, err
}

func (s *memoryStore) AttributesForVariant(ctx context.Context, tx Tx, sku string) (map[string][]string, error) {
	var out map[string][]string
	err := s.do(tx, "AttributesForVariant", func(st *memState) error {
		var values []ProductAttributeValue
		for _, v := range st.attrs {
			if v.SKU == sku {
				values = append(values, v)
			}
		}
		out = GroupAttributes(values)
		return nil
	})
	return out, err
}

func (s *memoryStore) ListOnSaleVariants(ctx context.Context, tx Tx) ([]*ProductVariant, error) {
	var out []*ProductVariant
	err := s.do(tx, "ListOnSaleVariants", func(st *memState) error {
		for _, v := range st.variants {
			if v.IsOnSale && v.IsActive {
				v := v
				out = append(out, &v)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
		return nil
	})
	return out, err
}

func (s *memoryStore) DecrementStock(ctx context.Context, tx Tx, sku string, quantity int) error {
	return s.do(tx, "DecrementStock", func(st *memState) error {
		rec, ok := st.stock[sku]
		if !ok {
			return newError(KindNotFound, "stock for %s not found", sku)
		}
		if rec.UnitsAvailable < quantity {
			return newError(KindInsufficientStock, "insufficient stock for product %s", sku)
		}
		rec.UnitsAvailable -= quantity
		rec.UnitsSold += quantity
		st.stock[sku] = rec
		return nil
	})
}

// CartStore

func (s *memoryStore) GetCartForUpdate(ctx context.Context, tx Tx, userID string) (*Cart, error) {
	return s.getCart(tx, "GetCartForUpdate", userID)
}

func (s *memoryStore) GetCart(ctx context.Context, tx Tx, userID string) (*Cart, error) {
	return s.getCart(tx, "GetCart", userID)
}

func (s *memoryStore) getCart(tx Tx, op, userID string) (*Cart, error) {
	var out *Cart
	err := s.do(tx, op, func(st *memState) error {
		c, ok := st.carts[userID]
		if !ok {
			return newError(KindNotFound, "cart for user %s not found", userID)
		}
		out = &c
		return nil
	})
	return out, err
}

func (s *memoryStore) CreateCart(ctx context.Context, tx Tx, cart *Cart) error {
	return s.do(tx, "CreateCart", func(st *memState) error {
		if _, ok := st.carts[cart.UserID]; ok {
			return conflictError(nil, "cart for user %s already exists", cart.UserID)
		}
		st.carts[cart.UserID] = *cart
		return nil
	})
}

func (s *memoryStore) UpdateCart(ctx context.Context, tx Tx, cart *Cart) error {
	return s.do(tx, "UpdateCart", func(st *memState) error {
		st.carts[cart.UserID] = *cart
		return nil
	})
}

func (s *memoryStore) ListLineItems(ctx context.Context, tx Tx, cartID string) ([]*LineItem, error) {
	var out []*LineItem
	err := s.do(tx, "ListLineItems", func(st *memState) error {
		for _, item := range st.items {
			if item.CartID == cartID {
				item := item
				out = append(out, &item)
			}
		}
		sort.Slice(out, func(i, j int) bool { return st.itemSeq[out[i].ID] < st.itemSeq[out[j].ID] })
		return nil
	})
	return out, err
}

func (s *memoryStore) GetLineItem(ctx context.Context, tx Tx, cartID, sku string) (*LineItem, error) {
	var out *LineItem
	err := s.do(tx, "GetLineItem", func(st *memState) error {
		for _, item := range st.items {
			if item.CartID == cartID && item.SKU == sku {
				item := item
				out = &item
				return nil
			}
		}
		return newError(KindNotFound, "line item %s not found in cart", sku)
	})
	return out, err
}

func (s *memoryStore) CreateLineItem(ctx context.Context, tx Tx, item *LineItem) error {
	return s.do(tx, "CreateLineItem", func(st *memState) error {
		for _, existing := range st.items {
			if existing.CartID == item.CartID && existing.SKU == item.SKU {
				return conflictError(nil, "line item %s already in cart", item.SKU)
			}
		}
		st.seq++
		st.items[item.ID] = *item
		st.itemSeq[item.ID] = st.seq
		return nil
	})
}

func (s *memoryStore) UpdateLineItem(ctx context.Context, tx Tx, item *LineItem) error {
	return s.do(tx, "UpdateLineItem", func(st *memState) error {
		st.items[item.ID] = *item
		return nil
	})
}

func (s *memoryStore) DeleteLineItem(ctx context.Context, tx Tx, itemID string) error {
	return s.do(tx, "DeleteLineItem", func(st *memState) error {
		delete(st.items, itemID)
		delete(st.itemSeq, itemID)
		return nil
	})
}

func (s *memoryStore) DeleteLineItems(ctx context.Context, tx Tx, cartID string) error {
	return s.do(tx, "DeleteLineItems", func(st *memState) error {
		for id, item := range st.items {
			if item.CartID == cartID {
				delete(st.items, id)
				delete(st.itemSeq, id)
			}
		}
		return nil
	})
}

// OrderStore

func (s *memoryStore) CreateOrder(ctx context.Context, tx Tx, order *Order) error {
	return s.do(tx, "CreateOrder", func(st *memState) error {
		if _, ok := st.orders[order.OrderNumber]; ok {
			return conflictError(nil, "order number %s already exists", order.OrderNumber)
		}
		st.orders[order.OrderNumber] = *order
		return nil
	})
}

func (s *memoryStore) GetOrder(ctx context.Context, tx Tx, orderNumber string) (*Order, error) {
	return s.getOrder(tx, "GetOrder", orderNumber)
}

func (s *memoryStore) GetOrderForUpdate(ctx context.Context, tx Tx, orderNumber string) (*Order, error) {
	return s.getOrder(tx, "GetOrderForUpdate", orderNumber)
}

func (s *memoryStore) getOrder(tx Tx, op, orderNumber string) (*Order, error) {
	var out *Order
	err := s.do(tx, op, func(st *memState) error {
		o, ok := st.orders[orderNumber]
		if !ok {
			return newError(KindNotFound, "order %s not found", orderNumber)
		}
		out = &o
		return nil
	})
	return out, err
}

func (s *memoryStore) UpdateOrder(ctx context.Context, tx Tx, order *Order) error {
	return s.do(tx, "UpdateOrder", func(st *memState) error {
		st.orders[order.OrderNumber] = *order
		return nil
	})
}

func (s *memoryStore) FindOpenOrder(ctx context.Context, tx Tx, userID string) (*Order, error) {
	var out *Order
	err := s.do(tx, "FindOpenOrder", func(st *memState) error {
		for _, o := range st.orders {
			if o.UserID != userID || !isOpenStatus(o.Status) {
				continue
			}
			if out == nil || o.CreatedAt.After(out.CreatedAt) {
				o := o
				out = &o
			}
		}
		if out == nil {
			return newError(KindNotFound, "no open order for user %s", userID)
		}
		return nil
	})
	return out, err
}

func isOpenStatus(status OrderStatus) bool {
	for _, s := range openOrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *memoryStore) CreatePayment(ctx context.Context, tx Tx, payment *Payment) error {
	return s.do(tx, "CreatePayment", func(st *memState) error {
		st.payments = append(st.payments, *payment)
		return nil
	})
}

func (s *memoryStore) CreatePlacedOrder(ctx context.Context, tx Tx, placed *PlacedOrder) error {
	return s.do(tx, "CreatePlacedOrder", func(st *memState) error {
		if _, ok := st.placed[placed.OrderNumber]; ok {
			return conflictError(nil, "order %s already placed", placed.OrderNumber)
		}
		st.placed[placed.OrderNumber] = *placed
		return nil
	})
}

func (s *memoryStore) GetPlacedOrder(ctx context.Context, tx Tx, orderNumber string) (*PlacedOrder, error) {
	var out *PlacedOrder
	err := s.do(tx, "GetPlacedOrder", func(st *memState) error {
		p, ok := st.placed[orderNumber]
		if !ok {
			return newError(KindNotFound, "placed order %s not found", orderNumber)
		}
		out = &p
		return nil
	})
	return out, err
}

func (s *memoryStore) ListPlacedOrders(ctx context.Context, tx Tx, userID string) ([]*PlacedOrder, error) {
	var out []*PlacedOrder
	err := s.do(tx, "ListPlacedOrders", func(st *memState) error {
		for _, p := range st.placed {
			if p.UserID == userID {
				p := p
				out = append(out, &p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
		return nil
	})
	return out, err
}

var _ Repository = (*memoryStore)(nil)
