package model

import "time"

// Entitlement grants a customer the right to see and order a product.
// Rows are unique per (CustomerID, ProductID).  Notes is free text kept
// by administrators and is never rewritten by set reconciliation.
type Entitlement struct {
	CustomerID string    `json:"customer_id"`     // entitlements.customer_id
	ProductID  string    `json:"product_id"`      // entitlements.product_id
	Notes      *string   `json:"notes,omitempty"` // entitlements.notes (nullable)
	CreatedAt  time.Time `json:"created_at"`      // entitlements.created_at
}

// Product is a catalog item.  Read-only from the lifecycle perspective.
type Product struct {
	ID          string `json:"id"`          // products.id
	ItemNumber  string `json:"item_number"` // products.item_number
	Description string `json:"description"` // products.description
}

// Order is only referenced here so deprovisioning can detach it from a
// deleted customer.
type Order struct {
	ID         uint64    // orders.id
	CustomerID *string   // orders.customer_id (nullable)
	Status     string    // orders.status
	CreatedAt  time.Time // orders.created_at
}
