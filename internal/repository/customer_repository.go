// Package repository contains data access logic separated from HTTP handlers.
// This file holds the customer repository.  A customer row shares its ID
// with the login identity it was provisioned for.
package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/storefront-admin/internal/model"
)

// CustomerRepo encapsulates all database queries related to customers.
type CustomerRepo struct {
	db *sql.DB
}

// NewCustomerRepo constructs a CustomerRepo with the provided DB handle.
func NewCustomerRepo(db *sql.DB) *CustomerRepo {
	return &CustomerRepo{db: db}
}

// Get fetches a customer by id.  A missing row is reported as a
// *StoreError wrapping ErrNotFound.
func (r *CustomerRepo) Get(ctx context.Context, id string) (*model.Customer, error) {
	const q = "SELECT id, name, email, created_at, updated_at FROM customers WHERE id = ?"
	var c model.Customer
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, wrap(EntityCustomer, "get", err)
	}
	return &c, nil
}

// Insert creates the customer row.  Timestamps default in the DB and are
// read back so callers get a fully populated record.
func (r *CustomerRepo) Insert(ctx context.Context, c *model.Customer) error {
	const qInsert = "INSERT INTO customers (id, name, email) VALUES (?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, qInsert, c.ID, c.Name, c.Email); err != nil {
		return wrap(EntityCustomer, "insert", err)
	}
	const qSelect = "SELECT created_at, updated_at FROM customers WHERE id = ?"
	if err := r.db.QueryRowContext(ctx, qSelect, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return wrap(EntityCustomer, "insert", err)
	}
	return nil
}

// Update applies the non-nil fields of patch.  It returns ErrNotFound when
// the customer does not exist.  The connection is opened with
// clientFoundRows=true, so an update that changes nothing still counts as
// a matched row.
func (r *CustomerRepo) Update(ctx context.Context, id string, patch model.CustomerPatch) error {
	if patch.Empty() {
		return nil
	}
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	q := "UPDATE customers SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return wrap(EntityCustomer, "update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(EntityCustomer, "update")
	}
	return nil
}

// Delete removes the customer row.  Deleting a row that is already gone is
// not an error, so repeated deprovisioning converges.  A row still
// referenced by entitlements, profiles or orders fails with ErrForeignKey.
func (r *CustomerRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
	return wrap(EntityCustomer, "delete", err)
}
