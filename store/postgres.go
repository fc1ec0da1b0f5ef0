package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"storefront/model"
)

// PostgresStore is a Store backed by Postgres.
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore opens a connection and verifies it.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, gatewayErr("ping", err)
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// --- Catalog ---

func (s *PostgresStore) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return gatewayErr("begin", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO products (id, name, slug, description, brand, price, features, images, is_popular)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, p.ID, p.Name, p.Slug, p.Description, p.Brand, p.Price,
		pq.Array(p.Features), pq.Array(p.Images), p.IsPopular).Scan(&p.CreatedAt)
	if err != nil {
		return gatewayErr("insert product", err)
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.ProductID = p.ID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_variants (id, product_id, color, color_name, capacity, price, stock)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, v.ID, v.ProductID, v.Color, v.ColorName, v.Capacity, v.Price, v.Stock); err != nil {
			return gatewayErr("insert variant", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return gatewayErr("commit", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return gatewayErr("begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name=$2, slug=$3, description=$4, brand=$5, price=$6, features=$7, images=$8, is_popular=$9
		WHERE id=$1
	`, p.ID, p.Name, p.Slug, p.Description, p.Brand, p.Price,
		pq.Array(p.Features), pq.Array(p.Images), p.IsPopular)
	if err != nil {
		return gatewayErr("update product", err)
	}
	if ra, _ := res.RowsAffected(); ra == 0 {
		return ErrNotFound
	}

	keep := make([]uuid.UUID, 0, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.ProductID = p.ID
		keep = append(keep, v.ID)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_variants (id, product_id, color, color_name, capacity, price, stock)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id)
			DO UPDATE SET color=$3, color_name=$4, capacity=$5, price=$6, stock=$7
		`, v.ID, v.ProductID, v.Color, v.ColorName, v.Capacity, v.Price, v.Stock); err != nil {
			return gatewayErr("upsert variant", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM product_variants WHERE product_id=$1 AND NOT (id = ANY($2))`,
		p.ID, pq.Array(keep)); err != nil {
		return gatewayErr("prune variants", err)
	}
	if err := tx.Commit(); err != nil {
		return gatewayErr("commit", err)
	}
	return nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return gatewayErr("delete product", err)
	}
	if ra, _ := res.RowsAffected(); ra == 0 {
		return ErrNotFound
	}
	return nil
}

const productCols = `id, name, slug, description, brand, price, features, images,
	is_popular, view_count, purchase_count, popularity_score, created_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Brand, &p.Price,
		pq.Array(&p.Features), pq.Array(&p.Images),
		&p.IsPopular, &p.ViewCount, &p.PurchaseCount, &p.PopularityScore, &p.CreatedAt)
	return p, err
}

func (s *PostgresStore) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	q := `SELECT ` + productCols + ` FROM products`
	var (
		where []string
		args  []interface{}
	)
	if f.Brand != "" {
		args = append(args, f.Brand)
		where = append(where, `brand = $1`)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		switch len(args) {
		case 1:
			where = append(where, `name ILIKE $1`)
		case 2:
			where = append(where, `name ILIKE $2`)
		}
	}
	if f.PopularOnly {
		where = append(where, `is_popular`)
	}
	for i, w := range where {
		if i == 0 {
			q += ` WHERE ` + w
		} else {
			q += ` AND ` + w
		}
	}
	if f.RecentFirst {
		q += ` ORDER BY created_at DESC`
	} else {
		q += ` ORDER BY name`
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		switch len(args) {
		case 1:
			q += ` LIMIT $1`
		case 2:
			q += ` LIMIT $2`
		case 3:
			q += ` LIMIT $3`
		}
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, gatewayErr("list products", err)
	}
	defer rows.Close()

	out := []model.Product{}
	ids := []uuid.UUID{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, gatewayErr("scan product", err)
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list products", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	variants, err := s.variantsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Variants = variants[out[i].ID]
	}
	return out, nil
}

func (s *PostgresStore) variantsFor(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]model.Variant, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, product_id, color, color_name, capacity, price, stock
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY color, capacity
	`, pq.Array(productIDs))
	if err != nil {
		return nil, gatewayErr("list variants", err)
	}
	defer rows.Close()

	out := map[uuid.UUID][]model.Variant{}
	for rows.Next() {
		var v model.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Color, &v.ColorName, &v.Capacity, &v.Price, &v.Stock); err != nil {
			return nil, gatewayErr("scan variant", err)
		}
		out[v.ProductID] = append(out[v.ProductID], v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	return s.getProduct(ctx, `id=$1`, id)
}

func (s *PostgresStore) GetProductBySlug(ctx context.Context, slug string) (model.Product, error) {
	return s.getProduct(ctx, `slug=$1`, slug)
}

func (s *PostgresStore) getProduct(ctx context.Context, cond string, arg interface{}) (model.Product, error) {
	p, err := scanProduct(s.DB.QueryRowContext(ctx,
		`SELECT `+productCols+` FROM products WHERE `+cond, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, ErrNotFound
	}
	if err != nil {
		return model.Product{}, gatewayErr("get product", err)
	}
	variants, err := s.variantsFor(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return model.Product{}, err
	}
	p.Variants = variants[p.ID]
	return p, nil
}

func (s *PostgresStore) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE products
		SET view_count = view_count + 1, popularity_score = popularity_score + 1
		WHERE id=$1
	`, id)
	if err != nil {
		return gatewayErr("increment view count", err)
	}
	return nil
}

// --- Variants ---

func (s *PostgresStore) GetVariant(ctx context.Context, id uuid.UUID) (model.Variant, error) {
	var v model.Variant
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, product_id, color, color_name, capacity, price, stock
		FROM product_variants WHERE id=$1
	`, id).Scan(&v.ID, &v.ProductID, &v.Color, &v.ColorName, &v.Capacity, &v.Price, &v.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Variant{}, ErrNotFound
	}
	if err != nil {
		return model.Variant{}, gatewayErr("get variant", err)
	}
	return v, nil
}

// --- Cart ---

// GetOrCreateActiveCart relies on the partial unique index on
// (user_id) WHERE status='active': the conditional insert either wins or is a
// no-op, and the follow-up select observes whichever cart won. Two concurrent
// callers converge on the same cart id.
func (s *PostgresStore) GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	if _, err := s.DB.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, status) VALUES ($1,$2,'active')
		ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING
	`, uuid.New(), userID); err != nil {
		return uuid.Nil, gatewayErr("create cart", err)
	}
	var id uuid.UUID
	err := s.DB.QueryRowContext(ctx,
		`SELECT id FROM carts WHERE user_id=$1 AND status='active'`, userID).Scan(&id)
	if err != nil {
		return uuid.Nil, gatewayErr("get cart", err)
	}
	return id, nil
}

const cartLineCols = `
	SELECT ci.id, ci.cart_id, ci.product_id, ci.variant_id, ci.quantity,
	       ci.created_at, ci.updated_at,
	       p.name, COALESCE(p.images[1], ''),
	       v.color, v.color_name, v.capacity, v.price, v.stock
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	JOIN product_variants v ON v.id = ci.variant_id`

func scanCartLine(row interface{ Scan(...interface{}) error }) (model.CartLine, error) {
	var l model.CartLine
	err := row.Scan(&l.ID, &l.CartID, &l.ProductID, &l.VariantID, &l.Quantity,
		&l.CreatedAt, &l.UpdatedAt,
		&l.ProductName, &l.ProductImage,
		&l.VariantColor, &l.VariantName, &l.Capacity, &l.Price, &l.Stock)
	return l, err
}

func (s *PostgresStore) GetCartLines(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error) {
	rows, err := s.DB.QueryContext(ctx, cartLineCols+`
	WHERE ci.cart_id = $1
	ORDER BY ci.created_at`, cartID)
	if err != nil {
		return nil, gatewayErr("get cart lines", err)
	}
	defer rows.Close()

	out := []model.CartLine{}
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			return nil, gatewayErr("scan cart line", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertCartLine merges qty into the (cart, product, variant) line, clamping
// the committed quantity to the variant's current stock. The second return is
// true when clamping happened. A brand-new line against zero stock fails with
// ErrStockExceeded since a stored quantity below 1 is not representable.
func (s *PostgresStore) UpsertCartLine(ctx context.Context, cartID, productID, variantID uuid.UUID, qty int) (model.CartLine, bool, error) {
	var line model.CartLine
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return line, false, gatewayErr("begin", err)
	}
	defer tx.Rollback()

	var stock int
	err = tx.QueryRowContext(ctx,
		`SELECT stock FROM product_variants WHERE id=$1 FOR UPDATE`, variantID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return line, false, ErrNotFound
	}
	if err != nil {
		return line, false, gatewayErr("read stock", err)
	}

	existing := 0
	err = tx.QueryRowContext(ctx, `
		SELECT quantity FROM cart_items
		WHERE cart_id=$1 AND product_id=$2 AND variant_id=$3
	`, cartID, productID, variantID).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return line, false, gatewayErr("read line", err)
	}

	target := existing + qty
	clamped := false
	if target > stock {
		target = stock
		clamped = true
	}
	if target < 1 {
		return line, false, ErrStockExceeded
	}

	var lineID uuid.UUID
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, variant_id, quantity)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (cart_id, product_id, variant_id)
		DO UPDATE SET quantity = $5, updated_at = now()
	`, uuid.New(), cartID, productID, variantID, target); err != nil {
		return line, false, gatewayErr("upsert line", err)
	}
	if err := tx.QueryRowContext(ctx, `
		SELECT id FROM cart_items WHERE cart_id=$1 AND product_id=$2 AND variant_id=$3
	`, cartID, productID, variantID).Scan(&lineID); err != nil {
		return line, false, gatewayErr("read line id", err)
	}
	if err := tx.Commit(); err != nil {
		return line, false, gatewayErr("commit", err)
	}

	line, err = s.getCartLine(ctx, lineID)
	return line, clamped, err
}

func (s *PostgresStore) getCartLine(ctx context.Context, lineID uuid.UUID) (model.CartLine, error) {
	l, err := scanCartLine(s.DB.QueryRowContext(ctx, cartLineCols+`
	WHERE ci.id = $1`, lineID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.CartLine{}, ErrNotFound
	}
	if err != nil {
		return model.CartLine{}, gatewayErr("get cart line", err)
	}
	return l, nil
}

// UpdateLineQuantity sets an absolute quantity, re-checking stock at call
// time. Unlike UpsertCartLine it never clamps: exceeding stock is a failure
// and the line is left unchanged. The line must belong to cartID; a line id
// from another cart is ErrNotFound.
func (s *PostgresStore) UpdateLineQuantity(ctx context.Context, cartID, lineID uuid.UUID, qty int) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return gatewayErr("begin", err)
	}
	defer tx.Rollback()

	var stock int
	err = tx.QueryRowContext(ctx, `
		SELECT v.stock
		FROM cart_items ci
		JOIN product_variants v ON v.id = ci.variant_id
		WHERE ci.id=$1 AND ci.cart_id=$2
		FOR UPDATE OF v
	`, lineID, cartID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return gatewayErr("read stock", err)
	}
	if qty > stock {
		return ErrStockExceeded
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE cart_items SET quantity=$3, updated_at=now() WHERE id=$1 AND cart_id=$2`,
		lineID, cartID, qty); err != nil {
		return gatewayErr("update line", err)
	}
	if err := tx.Commit(); err != nil {
		return gatewayErr("commit", err)
	}
	return nil
}

// DeleteLine is idempotent: deleting a line that is already gone, or that
// belongs to another cart, is a no-op.
func (s *PostgresStore) DeleteLine(ctx context.Context, cartID, lineID uuid.UUID) error {
	if _, err := s.DB.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id=$1 AND cart_id=$2`, lineID, cartID); err != nil {
		return gatewayErr("delete line", err)
	}
	return nil
}

func (s *PostgresStore) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
		return gatewayErr("clear cart", err)
	}
	return nil
}

func (s *PostgresStore) CountCartItems(ctx context.Context, cartID uuid.UUID) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE cart_id=$1`, cartID).Scan(&n)
	if err != nil {
		return 0, gatewayErr("count cart items", err)
	}
	return n, nil
}

// --- Orders ---

// PlaceOrder commits the checkout as one transaction: compare-and-decrement
// stock per item, insert the order header and items, bump purchase counters
// and retire the cart. Any stock conflict rolls the whole thing back and is
// reported as *StockChangedError; nothing is written.
func (s *PostgresStore) PlaceOrder(ctx context.Context, o model.Order, cartID uuid.UUID) (model.Order, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return model.Order{}, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Order{}, gatewayErr("begin", err)
	}
	defer tx.Rollback()

	// Decrement in variant-id order to keep lock acquisition deterministic.
	items := append([]model.OrderItem(nil), o.Items...)
	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i].VariantID[:], items[j].VariantID[:]) < 0
	})
	var conflicts []uuid.UUID
	for _, it := range items {
		res, err := tx.ExecContext(ctx,
			`UPDATE product_variants SET stock = stock - $1 WHERE id = $2 AND stock >= $1`,
			it.Quantity, it.VariantID)
		if err != nil {
			return model.Order{}, gatewayErr("decrement stock", err)
		}
		if ra, _ := res.RowsAffected(); ra == 0 {
			conflicts = append(conflicts, it.VariantID)
		}
	}
	if len(conflicts) > 0 {
		return model.Order{}, &StockChangedError{VariantIDs: conflicts}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, user_id, customer_name, shipping_address, payment_method,
		                    subtotal, shipping_fee, total, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, o.ID, o.UserID, o.CustomerName, addr, o.PaymentMethod,
		o.Subtotal, o.ShippingFee, o.Total, o.Status).Scan(&o.CreatedAt)
	if err != nil {
		return model.Order{}, gatewayErr("insert order", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_items (id, order_id, product_id, variant_id, quantity, price)
		VALUES ($1,$2,$3,$4,$5,$6)
	`)
	if err != nil {
		return model.Order{}, gatewayErr("prepare order items", err)
	}
	defer stmt.Close()
	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.OrderID = o.ID
		if _, err := stmt.ExecContext(ctx, it.ID, it.OrderID, it.ProductID, it.VariantID, it.Quantity, it.Price); err != nil {
			return model.Order{}, gatewayErr("insert order item", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE products
			SET purchase_count = purchase_count + $1, popularity_score = popularity_score + $1 * 5
			WHERE id = $2
		`, it.Quantity, it.ProductID); err != nil {
			return model.Order{}, gatewayErr("bump purchase count", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
		return model.Order{}, gatewayErr("clear cart", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE carts SET status='checked_out' WHERE id=$1`, cartID); err != nil {
		return model.Order{}, gatewayErr("retire cart", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Order{}, gatewayErr("commit", err)
	}
	return o, nil
}

const orderCols = `id, user_id, customer_name, shipping_address, payment_method,
	subtotal, shipping_fee, total, status, created_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (model.Order, error) {
	var o model.Order
	var addr []byte
	err := row.Scan(&o.ID, &o.UserID, &o.CustomerName, &addr, &o.PaymentMethod,
		&o.Subtotal, &o.ShippingFee, &o.Total, &o.Status, &o.CreatedAt)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return o, err
	}
	return o, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders`
	var (
		where []string
		args  []interface{}
	)
	if f.UserID != uuid.Nil {
		args = append(args, f.UserID)
		where = append(where, `user_id = $1`)
	}
	if f.Status != "" {
		args = append(args, f.Status)
		switch len(args) {
		case 1:
			where = append(where, `status = $1`)
		case 2:
			where = append(where, `status = $2`)
		}
	}
	for i, w := range where {
		if i == 0 {
			q += ` WHERE ` + w
		} else {
			q += ` AND ` + w
		}
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, gatewayErr("list orders", err)
	}
	defer rows.Close()

	out := []model.Order{}
	ids := []uuid.UUID{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, gatewayErr("scan order", err)
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list orders", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := s.orderItemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (s *PostgresStore) orderItemsFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]model.OrderItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, order_id, product_id, variant_id, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, gatewayErr("list order items", err)
	}
	defer rows.Close()

	out := map[uuid.UUID][]model.OrderItem{}
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Quantity, &it.Price); err != nil {
			return nil, gatewayErr("scan order item", err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	o, err := scanOrder(s.DB.QueryRowContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	if err != nil {
		return model.Order{}, gatewayErr("get order", err)
	}
	items, err := s.orderItemsFor(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return model.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return gatewayErr("update order status", err)
	}
	if ra, _ := res.RowsAffected(); ra == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
