package repository

import (
	"context"
	"database/sql"
)

// ProfileRepo touches the profiles table.  Profiles are created at first
// sign-in by another part of the system; this repository only clears
// their customer reference.
type ProfileRepo struct {
	db *sql.DB
}

// NewProfileRepo returns a new ProfileRepo bound to the given database.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// DetachCustomer sets customer_id to NULL on every profile that references
// the customer.  Matching nothing is not an error.
func (r *ProfileRepo) DetachCustomer(ctx context.Context, customerID string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE profiles SET customer_id = NULL WHERE customer_id = ?", customerID)
	return wrap(EntityProfile, "update", err)
}
