package stores

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storeflow/internal/domain"
)

type StoreRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) Create(ctx context.Context, store *domain.Store) error {
	store.ID = uuid.New().String()

	return r.db.QueryRowContext(ctx, `
		INSERT INTO stores (id, slug, subdomain, name, email, phone, address, description,
			theme_color, currency, timezone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at
	`, store.ID, store.Slug, store.Subdomain, store.Name, store.Email, store.Phone,
		store.Address, store.Description, store.ThemeColor, store.Currency,
		store.Timezone, store.IsActive).Scan(&store.CreatedAt)
}

const storeColumns = `
	id, slug, subdomain, name, email, phone, address, description,
	theme_color, currency, timezone, is_active, created_at
`

func scanStore(row interface{ Scan(dest ...any) error }) (*domain.Store, error) {
	store := &domain.Store{}
	err := row.Scan(&store.ID, &store.Slug, &store.Subdomain, &store.Name, &store.Email,
		&store.Phone, &store.Address, &store.Description, &store.ThemeColor,
		&store.Currency, &store.Timezone, &store.IsActive, &store.CreatedAt)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (r *StoreRepository) getBy(ctx context.Context, column, value string) (*domain.Store, error) {
	store, err := scanStore(r.db.QueryRowContext(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		WHERE `+column+` = $1 AND is_active
	`, value))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return store, nil
}

func (r *StoreRepository) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	return r.getBy(ctx, "id", id)
}

func (r *StoreRepository) GetBySlug(ctx context.Context, slug string) (*domain.Store, error) {
	return r.getBy(ctx, "slug", slug)
}

func (r *StoreRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Store, error) {
	return r.getBy(ctx, "subdomain", subdomain)
}

func (r *StoreRepository) List(ctx context.Context) ([]domain.Store, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		WHERE is_active
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	stores := []domain.Store{}
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *store)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stores, nil
}

// UpdateSettings writes the tenant-editable fields. Slug and subdomain are
// only changed through UpdateIdentifier.
func (r *StoreRepository) UpdateSettings(ctx context.Context, store *domain.Store) (*domain.Store, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stores
		SET name = $2, email = $3, phone = $4, address = $5, description = $6,
			theme_color = $7, currency = $8, timezone = $9, updated_at = NOW()
		WHERE id = $1
	`, store.ID, store.Name, store.Email, store.Phone, store.Address,
		store.Description, store.ThemeColor, store.Currency, store.Timezone)
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

	return r.GetByID(ctx, store.ID)
}

// UpdateIdentifier writes slug and subdomain together; the two columns are
// kept identical until subdomain routing diverges from path routing.
func (r *StoreRepository) UpdateIdentifier(ctx context.Context, id, subdomain string) (*domain.Store, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stores
		SET slug = $2, subdomain = $2, updated_at = NOW()
		WHERE id = $1
	`, id, subdomain)
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

	return r.GetByID(ctx, id)
}

// SlugExists is the existence probe handed to the identifier allocator.
// Exact match, inactive stores included: a released name is not recycled.
func (r *StoreRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM stores WHERE slug = $1)
	`, slug).Scan(&exists)
	return exists, err
}

// SubdomainTaken reports whether another store already uses the subdomain.
func (r *StoreRepository) SubdomainTaken(ctx context.Context, subdomain, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM stores WHERE subdomain = $1 AND id::text <> $2)
	`, subdomain, excludeID).Scan(&exists)
	return exists, err
}
