package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
)

const selectOrders = `SELECT id, user_id, payment_method, COALESCE(payment_reference, ''), transaction_id,
        payment_status, status, subtotal, tax, total, shipping, created_at, updated_at
    FROM orders`

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	const insertOrder = `INSERT INTO orders (id, user_id, payment_method, payment_reference, transaction_id,
            payment_status, status, subtotal, tax, total, shipping, created_at, updated_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $12)`
	const insertItem = `INSERT INTO order_items (order_id, line, product_id, quantity, unit_price, size, color)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertOrder,
			order.ID, order.UserID, string(order.PaymentMethod), order.PaymentReference, order.TransactionID,
			string(order.PaymentStatus), string(order.Status),
			model.Cents(order.Subtotal), model.Cents(order.Tax), model.Cents(order.Total),
			order.Shipping, order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i, item := range order.Items {
			_, err := tx.Exec(ctx, insertItem,
				order.ID, i, item.ProductID, item.Quantity, model.Cents(item.UnitPrice), item.Size, item.Color,
			)
			if err != nil {
				return fmt.Errorf("insert order item %d: %w", i, err)
			}
		}
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, selectOrders+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if order.Items, err = loadItems(ctx, r.storage.pool, id); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx, selectOrders+` WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range result {
		if result[i].Items, err = loadItems(ctx, r.storage.pool, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *orderRepository) AttachPaymentReference(ctx context.Context, orderID, reference string) error {
	const update = `UPDATE orders SET payment_reference=$2, updated_at=NOW() WHERE id=$1 AND status='PENDING'`
	tag, err := r.storage.pool.Exec(ctx, update, orderID, reference)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	const lookup = `SELECT status FROM orders WHERE id=$1`
	var status model.OrderStatus
	if err := r.storage.pool.QueryRow(ctx, lookup, orderID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainErrors.ErrNotFound
		}
		return err
	}
	return domainErrors.ErrOrderNotPending
}

// Settle serialises concurrent deliveries on the order row lock. The stock of a
// cancelled order is released inside the same transaction.
func (r *orderRepository) Settle(ctx context.Context, orderID string, outcome model.Outcome, transactionID string) (*model.Order, error) {
	const update = `UPDATE orders SET status=$2, payment_status=$3, transaction_id=$4, updated_at=NOW() WHERE id=$1`

	var settled *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		order, err := scanOrder(tx.QueryRow(ctx, selectOrders+` WHERE id=$1 FOR UPDATE`, orderID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}
		if order.Items, err = loadItems(ctx, tx, orderID); err != nil {
			return err
		}
		settled = order

		if err := order.Settle(outcome, transactionID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, update, order.ID, string(order.Status), string(order.PaymentStatus), order.TransactionID); err != nil {
			return err
		}

		if outcome != model.OutcomeFailed {
			return nil
		}
		for _, item := range order.Items {
			err := releaseStock(ctx, tx, item.ProductID, item.Quantity)
			if errors.Is(err, domainErrors.ErrNotFound) {
				r.storage.logger.Warn("release skipped for unknown product",
					slog.String("order_id", order.ID), slog.String("product_id", item.ProductID))
				continue
			}
			if err != nil {
				return fmt.Errorf("release %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrOrderNotPending) {
			return settled, err
		}
		return nil, err
	}
	return settled, nil
}

// SelectStalePending is a plain read. Each candidate is locked later by
// Settle, which skips orders another sweeper already resolved.
func (r *orderRepository) SelectStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	const where = ` WHERE status='PENDING' AND created_at < $1
                   ORDER BY created_at
                   LIMIT $2`

	rows, err := r.storage.pool.Query(ctx, selectOrders+where, createdBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o                    model.Order
		subtotal, tax, total int64
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.PaymentMethod, &o.PaymentReference, &o.TransactionID,
		&o.PaymentStatus, &o.Status, &subtotal, &tax, &total, &o.Shipping, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Subtotal = model.FromCents(subtotal)
	o.Tax = model.FromCents(tax)
	o.Total = model.FromCents(total)
	return &o, nil
}

func loadItems(ctx context.Context, q querier, orderID string) ([]model.OrderItem, error) {
	const query = `SELECT product_id, quantity, unit_price, size, color FROM order_items WHERE order_id=$1 ORDER BY line`
	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var (
			item  model.OrderItem
			price int64
		)
		if err := rows.Scan(&item.ProductID, &item.Quantity, &price, &item.Size, &item.Color); err != nil {
			return nil, err
		}
		item.UnitPrice = model.FromCents(price)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
