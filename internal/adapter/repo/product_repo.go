package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fotnik/internal/domain"
)

// ProductRepositoryPG implements domain.ProductRepository using PostgreSQL.
type ProductRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProductRepository constructs a new product repository instance.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepositoryPG {
	return &ProductRepositoryPG{pool: pool}
}

// Create persists a product description and returns it with its id.
func (r *ProductRepositoryPG) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO product_descriptions (name, product_description, target_customers)
VALUES ($1, $2, $3)
RETURNING id, created_at;
`, product.Name, product.Description, product.TargetAudience)

	saved := *product
	if err := row.Scan(&saved.ID, &saved.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return &saved, nil
}

// LinkUser attaches a product to its owning user.
func (r *ProductRepositoryPG) LinkUser(ctx context.Context, userID, productID string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO user_products (user_id, product_id)
VALUES ($1, $2);
`, userID, productID)
	return err
}

// Unlink removes a product and its user link. Used to roll back a creation
// whose link step failed.
func (r *ProductRepositoryPG) Unlink(ctx context.Context, productID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM user_products WHERE product_id = $1;`, productID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM product_descriptions WHERE id = $1;`, productID)
	return err
}

// ListByUser returns the user's products, newest first.
func (r *ProductRepositoryPG) ListByUser(ctx context.Context, userID string) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `
SELECT p.id, p.name, p.product_description, p.target_customers, p.created_at
FROM product_descriptions p
JOIN user_products up ON up.product_id = p.id
WHERE up.user_id = $1
ORDER BY p.created_at DESC;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.TargetAudience, &product.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// GetContext returns the description and target audience the generation
// pipeline needs. Absence of the product is domain.ErrNotFound.
func (r *ProductRepositoryPG) GetContext(ctx context.Context, productID string) (*domain.ProductContext, error) {
	row := r.pool.QueryRow(ctx, `
SELECT product_description, target_customers
FROM product_descriptions
WHERE id = $1;
`, productID)

	var pc domain.ProductContext
	err := row.Scan(&pc.Description, &pc.TargetAudience)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

var _ domain.ProductRepository = (*ProductRepositoryPG)(nil)
