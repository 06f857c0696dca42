package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/storefront-admin/internal/model"
)

// EntitlementRepo provides access to the entitlements table, which links
// customers to the products they may order.
type EntitlementRepo struct {
	db *sql.DB
}

// NewEntitlementRepo returns a new EntitlementRepo bound to the given database.
func NewEntitlementRepo(db *sql.DB) *EntitlementRepo { return &EntitlementRepo{db: db} }

// ListByCustomer returns every entitlement of a customer ordered by product id.
func (r *EntitlementRepo) ListByCustomer(ctx context.Context, customerID string) ([]model.Entitlement, error) {
	const q = `SELECT customer_id, product_id, notes, created_at
	           FROM entitlements WHERE customer_id = ? ORDER BY product_id`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, wrap(EntityEntitlement, "list", err)
	}
	defer rows.Close()

	var out []model.Entitlement
	for rows.Next() {
		var (
			e     model.Entitlement
			notes sql.NullString
		)
		if err := rows.Scan(&e.CustomerID, &e.ProductID, &notes, &e.CreatedAt); err != nil {
			return nil, wrap(EntityEntitlement, "list", err)
		}
		if notes.Valid {
			n := notes.String
			e.Notes = &n
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(EntityEntitlement, "list", err)
	}
	return out, nil
}

// Upsert inserts all rows in a single statement.  Rows that already exist
// are left as they are (notes included), so re-running the same insert is
// a success rather than a duplicate-key failure.  INSERT IGNORE is not used
// because it would also downgrade foreign key failures to warnings.
func (r *EntitlementRepo) Upsert(ctx context.Context, rows []model.Entitlement) error {
	if len(rows) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("INSERT INTO entitlements (customer_id, product_id, notes) VALUES ")
	args := make([]interface{}, 0, len(rows)*3)
	for i, e := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, e.CustomerID, e.ProductID, nullString(e.Notes))
	}
	b.WriteString(" ON DUPLICATE KEY UPDATE customer_id = customer_id")
	_, err := r.db.ExecContext(ctx, b.String(), args...)
	return wrap(EntityEntitlement, "insert", err)
}

// DeleteProducts removes the given products from a customer's entitlements.
// Products the customer is not entitled to are ignored.
func (r *EntitlementRepo) DeleteProducts(ctx context.Context, customerID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	q := "DELETE FROM entitlements WHERE customer_id = ? AND product_id IN (" + placeholders(len(productIDs)) + ")"
	args := make([]interface{}, 0, len(productIDs)+1)
	args = append(args, customerID)
	for _, id := range productIDs {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx, q, args...)
	return wrap(EntityEntitlement, "delete", err)
}

// DeleteByCustomer removes every entitlement of a customer.  An empty set
// is not an error.
func (r *EntitlementRepo) DeleteByCustomer(ctx context.Context, customerID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM entitlements WHERE customer_id = ?", customerID)
	return wrap(EntityEntitlement, "delete", err)
}

// UpdateNotes sets or clears (nil) the notes of one entitlement.  It
// returns ErrNotFound when the customer is not entitled to the product.
func (r *EntitlementRepo) UpdateNotes(ctx context.Context, customerID, productID string, notes *string) error {
	const q = "UPDATE entitlements SET notes = ? WHERE customer_id = ? AND product_id = ?"
	res, err := r.db.ExecContext(ctx, q, nullString(notes), customerID, productID)
	if err != nil {
		return wrap(EntityEntitlement, "update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(EntityEntitlement, "update")
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
