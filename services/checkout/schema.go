package main

const schemaSQL = `
CREATE TABLE IF NOT EXISTS product_variants (
    sku          VARCHAR(20) PRIMARY KEY,
    upc          VARCHAR(12) NOT NULL UNIQUE,
    product_name VARCHAR(255) NOT NULL,
    product_type VARCHAR(100) NOT NULL,
    brand        VARCHAR(100) NOT NULL DEFAULT '',
    retail_price NUMERIC(10,2) NOT NULL,
    store_price  NUMERIC(10,2) NOT NULL,
    sale_price   NUMERIC(10,2) NOT NULL,
    is_on_sale   BOOLEAN NOT NULL DEFAULT FALSE,
    is_active    BOOLEAN NOT NULL DEFAULT TRUE,
    weight       DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_product_variants_type ON product_variants (product_type);

CREATE TABLE IF NOT EXISTS stock (
    sku             VARCHAR(20) PRIMARY KEY REFERENCES product_variants (sku),
    units_available INTEGER NOT NULL DEFAULT 0 CHECK (units_available >= 0),
    units_sold      INTEGER NOT NULL DEFAULT 0 CHECK (units_sold >= 0),
    last_checked    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS product_attribute_values (
    id             BIGSERIAL PRIMARY KEY,
    sku            VARCHAR(20) NOT NULL REFERENCES product_variants (sku) ON DELETE CASCADE,
    attribute_name VARCHAR(50) NOT NULL,
    value          VARCHAR(100) NOT NULL,
    UNIQUE (sku, attribute_name, value)
);

CREATE TABLE IF NOT EXISTS tax_rules (
    id             UUID PRIMARY KEY,
    tax_type       VARCHAR(50) NOT NULL,
    tax_percentage INTEGER NOT NULL CHECK (tax_percentage >= 0),
    is_active      BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS tax_rule_product_types (
    tax_rule_id  UUID NOT NULL REFERENCES tax_rules (id) ON DELETE CASCADE,
    product_type VARCHAR(100) NOT NULL,
    PRIMARY KEY (tax_rule_id, product_type)
);

CREATE TABLE IF NOT EXISTS carts (
    id               UUID PRIMARY KEY,
    user_id          VARCHAR(255) NOT NULL UNIQUE,
    quantity         INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    total_amount     NUMERIC(10,2) NOT NULL DEFAULT 0,
    total_tax_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS line_items (
    id         UUID PRIMARY KEY,
    cart_id    UUID NOT NULL REFERENCES carts (id) ON DELETE CASCADE,
    sku        VARCHAR(20) NOT NULL REFERENCES product_variants (sku),
    quantity   INTEGER NOT NULL CHECK (quantity >= 1),
    price      NUMERIC(10,2) NOT NULL,
    amount     NUMERIC(10,2) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (cart_id, sku)
);

CREATE TABLE IF NOT EXISTS orders (
    id             UUID PRIMARY KEY,
    order_number   VARCHAR(40) NOT NULL UNIQUE,
    user_id        VARCHAR(255) NOT NULL,
    payment_id     UUID,
    first_name     VARCHAR(50) NOT NULL,
    last_name      VARCHAR(50) NOT NULL,
    phone          VARCHAR(15) NOT NULL DEFAULT '',
    email          VARCHAR(50) NOT NULL,
    address        VARCHAR(200) NOT NULL,
    country        VARCHAR(15) NOT NULL DEFAULT '',
    state          VARCHAR(15) NOT NULL DEFAULT '',
    city           VARCHAR(50) NOT NULL,
    pin_code       VARCHAR(10) NOT NULL,
    total          NUMERIC(10,2) NOT NULL,
    total_tax      NUMERIC(10,2) NOT NULL,
    payment_method VARCHAR(25) NOT NULL,
    status         VARCHAR(10) NOT NULL DEFAULT 'New',
    is_ordered     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders (user_id, status);

CREATE TABLE IF NOT EXISTS payments (
    id             UUID PRIMARY KEY,
    transaction_id VARCHAR(100) NOT NULL DEFAULT '',
    user_id        VARCHAR(255) NOT NULL,
    order_number   VARCHAR(40) NOT NULL REFERENCES orders (order_number),
    payment_method VARCHAR(25) NOT NULL,
    amount         NUMERIC(10,2) NOT NULL,
    status         VARCHAR(15) NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_payments_order_number ON payments (order_number);

CREATE TABLE IF NOT EXISTS placed_orders (
    id           UUID PRIMARY KEY,
    user_id      VARCHAR(255) NOT NULL,
    order_number VARCHAR(40) NOT NULL UNIQUE REFERENCES orders (order_number),
    order_items  JSONB NOT NULL,
    total_amount NUMERIC(10,2) NOT NULL,
    total_tax    NUMERIC(10,2) NOT NULL,
    order_date   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_placed_orders_user_id ON placed_orders (user_id, order_date DESC);
`

const seedSQL = `
INSERT INTO product_variants (sku, upc, product_name, product_type, brand, retail_price, store_price, sale_price, is_on_sale, is_active, weight) VALUES
    ('A1',      '000000000001', 'Canvas Tote',          'accessories', 'Northwind', 12.00,  10.00,  8.00, FALSE, TRUE, 0.4),
    ('TSHIRT-M','000000000002', 'Cotton T-Shirt (M)',   'apparel',     'Northwind', 25.00,  20.00, 15.00, TRUE,  TRUE, 0.2),
    ('TSHIRT-L','000000000003', 'Cotton T-Shirt (L)',   'apparel',     'Northwind', 25.00,  20.00, 22.00, TRUE,  TRUE, 0.2),
    ('HDPH-01', '000000000004', 'Wireless Headphones',  'electronics', 'Contoso',  199.99, 179.99, 149.99, FALSE, TRUE, 0.3),
    ('BOOK-GO', '000000000005', 'Concurrency in Practice', 'books',    'Fabrikam',  49.90,  45.00, 39.90, TRUE,  TRUE, 0.9),
    ('OLD-01',  '000000000006', 'Discontinued Mug',     'accessories', 'Contoso',    9.00,   8.00,  5.00, FALSE, FALSE, 0.5)
ON CONFLICT (sku) DO NOTHING;

INSERT INTO stock (sku, units_available, units_sold) VALUES
    ('A1', 100, 0),
    ('TSHIRT-M', 50, 0),
    ('TSHIRT-L', 1, 0),
    ('HDPH-01', 10, 0),
    ('BOOK-GO', 25, 0),
    ('OLD-01', 0, 0)
ON CONFLICT (sku) DO NOTHING;

INSERT INTO product_attribute_values (sku, attribute_name, value) VALUES
    ('A1',       'color',    'natural'),
    ('A1',       'material', 'canvas'),
    ('TSHIRT-M', 'color',    'blue'),
    ('TSHIRT-M', 'color',    'white'),
    ('TSHIRT-M', 'size',     'M'),
    ('TSHIRT-L', 'color',    'blue'),
    ('TSHIRT-L', 'size',     'L'),
    ('HDPH-01',  'color',    'black'),
    ('BOOK-GO',  'format',   'paperback')
ON CONFLICT DO NOTHING;

INSERT INTO tax_rules (id, tax_type, tax_percentage, is_active) VALUES
    ('6f0c2f0e-4d7a-4b53-9a61-2f6d1b1a0001', 'GST', 8, TRUE),
    ('6f0c2f0e-4d7a-4b53-9a61-2f6d1b1a0002', 'Luxury', 10, TRUE),
    ('6f0c2f0e-4d7a-4b53-9a61-2f6d1b1a0003', 'Legacy', 3, FALSE)
ON CONFLICT (id) DO NOTHING;

INSERT INTO tax_rule_product_types (tax_rule_id, product_type) VALUES
    ('6f0c2f0e-4d7a-4b53-9a61-2f6d1b1a0001', 'accessories'),
    ('6f0c2f0e-4d7a-4b53-9a61-2f6d1b1a0001', 'apparel'),
    ('6f0c2f0e-4d7a-4b53-9a61-2f6d1b1a0001', 'electronics'),
    ('6f0c2f0e-4d7a-4b53-9a61-2f6d1b1a0002', 'electronics'),
    ('6f0c2f0e-4d7a-4b53-9a61-2f6d1b1a0003', 'books')
ON CONFLICT DO NOTHING;
`
