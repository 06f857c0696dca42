package repository

import (
	"context"
	"database/sql"
)

// OrderRepo exposes the two order operations needed when a customer is
// removed.  Orders themselves are never created or deleted here.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// ListIDsByCustomer returns the ids of orders placed by a customer.
func (r *OrderRepo) ListIDsByCustomer(ctx context.Context, customerID string) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM orders WHERE customer_id = ? ORDER BY id", customerID)
	if err != nil {
		return nil, wrap(EntityOrder, "list", err)
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, wrap(EntityOrder, "list", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(EntityOrder, "list", err)
	}
	return ids, nil
}

// DetachCustomer sets customer_id to NULL on all of a customer's orders so
// order history survives the customer being deleted.
func (r *OrderRepo) DetachCustomer(ctx context.Context, customerID string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE orders SET customer_id = NULL WHERE customer_id = ?", customerID)
	return wrap(EntityOrder, "update", err)
}
