package products

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storeflow/internal/domain"
)

// ErrInsufficientInventory is returned when a decrement would take a
// product's inventory below zero.
var ErrInsufficientInventory = errors.New("insufficient inventory")

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = uuid.New().String()

	return r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, store_id, name, description, price, compare_at_price,
			inventory, category, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at
	`, product.ID, product.StoreID, product.Name, product.Description, product.Price,
		product.CompareAtPrice, product.Inventory, product.Category, product.Status).
		Scan(&product.CreatedAt)
}

const productColumns = `
	id, store_id, name, description, price, compare_at_price,
	inventory, category, status, created_at
`

func scanProduct(row interface{ Scan(dest ...any) error }) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(&product.ID, &product.StoreID, &product.Name, &product.Description,
		&product.Price, &product.CompareAtPrice, &product.Inventory, &product.Category,
		&product.Status, &product.CreatedAt)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, storeID, id string) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND store_id = $2
	`, id, storeID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}

func (r *ProductRepository) ListByStore(ctx context.Context, storeID string, onlyActive bool) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE store_id = $1
		ORDER BY created_at DESC
	`
	if onlyActive {
		query = `
			SELECT ` + productColumns + `
			FROM products
			WHERE store_id = $1 AND status = 'active'
			ORDER BY created_at DESC
		`
	}

	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $3, description = $4, price = $5, compare_at_price = $6,
			inventory = $7, category = $8, status = $9, updated_at = NOW()
		WHERE id = $1 AND store_id = $2
	`, product.ID, product.StoreID, product.Name, product.Description, product.Price,
		product.CompareAtPrice, product.Inventory, product.Category, product.Status)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, product.StoreID, product.ID)
}

func (r *ProductRepository) Delete(ctx context.Context, storeID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM products
		WHERE id = $1 AND store_id = $2
	`, id, storeID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *ProductRepository) CountByStore(ctx context.Context, storeID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM products WHERE store_id = $1
	`, storeID).Scan(&count)
	return count, err
}

// DecrementInventory atomically reduces stock at checkout. The guard keeps
// inventory non-negative; an order for more units than remain fails the
// decrement rather than driving the count below zero.
func (r *ProductRepository) DecrementInventory(ctx context.Context, productID string, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET inventory = inventory - $2, updated_at = NOW()
		WHERE id = $1 AND inventory >= $2
	`, productID, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientInventory
	}

	return nil
}
