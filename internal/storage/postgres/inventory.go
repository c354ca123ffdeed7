package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
)

func (r *inventoryRepository) Reserve(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domainErrors.ErrInvalidQuantity
	}
	const query = `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`
	tag, err := r.storage.pool.Exec(ctx, query, productID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", productID, domainErrors.ErrInsufficientStock)
	}
	return nil
}

func (r *inventoryRepository) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domainErrors.ErrInvalidQuantity
	}
	return releaseStock(ctx, r.storage.pool, productID, quantity)
}

func (r *inventoryRepository) Stock(ctx context.Context, productID string) (*model.Product, error) {
	const query = `SELECT id, stock FROM products WHERE id=$1`
	var p model.Product
	if err := r.storage.pool.QueryRow(ctx, query, productID).Scan(&p.ID, &p.Stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func releaseStock(ctx context.Context, q querier, productID string, quantity int) error {
	const query = `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`
	tag, err := q.Exec(ctx, query, productID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", productID, domainErrors.ErrNotFound)
	}
	return nil
}

// SeedInventory inserts products that do not exist yet. Existing stock is left as is.
func (s *Storage) SeedInventory(ctx context.Context, seed map[string]int) error {
	const query = `INSERT INTO products (id, stock) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	return s.WithinTransaction(ctx, func(tx pgx.Tx) error {
		for id, stock := range seed {
			if _, err := tx.Exec(ctx, query, id, stock); err != nil {
				return fmt.Errorf("seed product %s: %w", id, err)
			}
		}
		return nil
	})
}
