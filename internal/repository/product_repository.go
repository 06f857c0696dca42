package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/storefront-admin/internal/model"
)

// ProductRepo reads the product catalog.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a new ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// ListByIDs returns the products whose id is in ids.  Unknown ids are
// simply absent from the result.
func (r *ProductRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := "SELECT id, item_number, description FROM products WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY id"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap(EntityProduct, "list", err)
	}
	defer rows.Close()
	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.ItemNumber, &p.Description); err != nil {
			return nil, wrap(EntityProduct, "list", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(EntityProduct, "list", err)
	}
	return out, nil
}

// MissingIDs returns the ids from ids that do not exist in the catalog,
// preserving input order.
func (r *ProductRepo) MissingIDs(ctx context.Context, ids []string) ([]string, error) {
	found, err := r.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(found))
	for _, p := range found {
		known[p.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
