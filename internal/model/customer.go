package model

import "time"

// Customer represents a business account that can order products.  Its ID
// is the ID of the login identity it was provisioned for.  This struct
// corresponds to a row in the `customers` table.
//
// Fields:
//  ID        – primary key, equal to the identity id.
//  Name      – display name of the business.
//  Email     – contact email (normally the login email).
//  CreatedAt – timestamp when the customer was created.
//  UpdatedAt – timestamp of last update.
type Customer struct {
	ID        string    `json:"id"`         // customers.id
	Name      string    `json:"name"`       // customers.name
	Email     string    `json:"email"`      // customers.email
	CreatedAt time.Time `json:"created_at"` // customers.created_at
	UpdatedAt time.Time `json:"updated_at"` // customers.updated_at
}

// CustomerPatch carries the optional fields of a customer update.  A nil
// field is left untouched.
type CustomerPatch struct {
	Name  *string
	Email *string
}

// Empty reports whether the patch changes nothing.
func (p CustomerPatch) Empty() bool {
	return p.Name == nil && p.Email == nil
}

// Profile is the per-login profile row created at first sign-in.  The
// lifecycle code only ever clears its customer reference.
type Profile struct {
	ID         string  // profiles.id (= identity id)
	CustomerID *string // profiles.customer_id (nullable)
}
