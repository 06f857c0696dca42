package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/storefront-admin/internal/entitlement"
	"github.com/iliyamo/storefront-admin/internal/model"
	"github.com/iliyamo/storefront-admin/internal/repository"
)

// UpdateInput changes an existing customer.  Nil fields are left alone;
// empty product lists mean no change.
type UpdateInput struct {
	CustomerID       string
	Name             *string
	Email            *string
	ProductsToAdd    []string
	ProductsToRemove []string
}

var updatePlan = []Step{StepValidate, StepUpdateCustomer, StepAddEntitlements, StepRemoveEntitlements}

// Update applies the customer patch, then adds, then removes entitlements.
// A failed customer update stops before any entitlement change.  Adding a
// product the customer already has keeps its notes.
func (o *Orchestrator) Update(ctx context.Context, in UpdateInput) (*Result, error) {
	customerID := strings.TrimSpace(in.CustomerID)
	res := newResult(OpUpdate, customerID)
	if customerID == "" {
		return res, o.invalid(res, invalidf("customer id is required"), updatePlan...)
	}

	var patch model.CustomerPatch
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return res, o.invalid(res, invalidf("customer name must not be blank"), updatePlan...)
		}
		patch.Name = &name
	}
	var email string
	if in.Email != nil {
		e, err := normalizeEmail(*in.Email)
		if err != nil {
			return res, o.invalid(res, err, updatePlan...)
		}
		email = e
		patch.Email = &email
	}
	add := entitlement.Normalize(in.ProductsToAdd)
	remove := entitlement.Normalize(in.ProductsToRemove)
	if both := intersect(add, remove); len(both) > 0 {
		return res, o.invalid(res, invalidf("products both added and removed: %s", strings.Join(both, ", ")), updatePlan...)
	}
	if err := o.checkProducts(ctx, res, add); err != nil {
		res.finish(updatePlan...)
		return res, err
	}
	res.ok(StepValidate, "")

	if patch.Empty() {
		res.skip(StepUpdateCustomer, "no customer fields changed")
	} else {
		err := o.run(ctx, res, StepUpdateCustomer, func(ctx context.Context) (string, error) {
			return "", o.customers.Update(ctx, customerID, patch)
		})
		if err != nil {
			res.finish(updatePlan...)
			return res, o.stepFailed(ctx, res, CodeCustomerUpdateFailed, StepUpdateCustomer, repository.EntityCustomer, err, "")
		}
	}

	if err := o.applyEntitlements(ctx, res, customerID, add, remove); err != nil {
		res.finish(updatePlan...)
		return res, err
	}

	o.completed(ctx, res, EventUpdated, email)
	return res, nil
}

var setEntitlementsPlan = []Step{StepValidate, StepLoadEntitlements, StepAddEntitlements, StepRemoveEntitlements}

// SetEntitlements replaces the customer's entitlement set with desired.
// Only the difference is written, so unchanged rows keep their notes and a
// repeated call writes nothing.
func (o *Orchestrator) SetEntitlements(ctx context.Context, customerID string, desired []string) (*Result, error) {
	customerID = strings.TrimSpace(customerID)
	res := newResult(OpSetEntitlements, customerID)
	if customerID == "" {
		return res, o.invalid(res, invalidf("customer id is required"), setEntitlementsPlan...)
	}
	want := entitlement.Normalize(desired)
	if err := o.checkProducts(ctx, res, want); err != nil {
		res.finish(setEntitlementsPlan...)
		return res, err
	}
	res.ok(StepValidate, fmt.Sprintf("%d product(s)", len(want)))

	var current []model.Entitlement
	err := o.run(ctx, res, StepLoadEntitlements, func(ctx context.Context) (string, error) {
		var err error
		current, err = o.entitlements.ListByCustomer(ctx, customerID)
		return fmt.Sprintf("%d current", len(current)), err
	})
	if err != nil {
		res.finish(setEntitlementsPlan...)
		return res, o.stepFailed(ctx, res, CodeEntitlementLookupFailed, StepLoadEntitlements, repository.EntityEntitlement, err, "")
	}

	diff := entitlement.Reconcile(customerID, want, current)
	if err := o.applyEntitlements(ctx, res, customerID, diff.InsertIDs(), diff.ToDelete); err != nil {
		res.finish(setEntitlementsPlan...)
		return res, err
	}

	o.completed(ctx, res, EventUpdated, "")
	return res, nil
}

// applyEntitlements runs the add step and then the remove step.
func (o *Orchestrator) applyEntitlements(ctx context.Context, res *Result, customerID string, add, remove []string) error {
	if len(add) == 0 {
		res.skip(StepAddEntitlements, "nothing to add")
	} else {
		err := o.run(ctx, res, StepAddEntitlements, func(ctx context.Context) (string, error) {
			return strings.Join(add, ","), o.entitlements.Upsert(ctx, rowsFor(customerID, add))
		})
		if err != nil {
			return o.stepFailed(ctx, res, CodeEntitlementAddFailed, StepAddEntitlements, repository.EntityEntitlement, err, "")
		}
	}

	if len(remove) == 0 {
		res.skip(StepRemoveEntitlements, "nothing to remove")
	} else {
		err := o.run(ctx, res, StepRemoveEntitlements, func(ctx context.Context) (string, error) {
			return strings.Join(remove, ","), o.entitlements.DeleteProducts(ctx, customerID, remove)
		})
		if err != nil {
			return o.stepFailed(ctx, res, CodeEntitlementRemoveFailed, StepRemoveEntitlements, repository.EntityEntitlement, err, "")
		}
	}
	return nil
}

// UpdateEntitlementNotes sets the notes of one entitlement.  Nil or blank
// notes clear them.  An entitlement that does not exist is reported as a
// NotesUpdateFailed step wrapping repository.ErrNotFound.
func (o *Orchestrator) UpdateEntitlementNotes(ctx context.Context, customerID, productID string, notes *string) (*Result, error) {
	customerID = strings.TrimSpace(customerID)
	productID = strings.TrimSpace(productID)
	res := newResult(OpUpdateNotes, customerID)
	if customerID == "" || productID == "" {
		return res, o.invalid(res, invalidf("customer id and product id are required"), StepValidate, StepUpdateNotes)
	}
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		if trimmed == "" {
			notes = nil
		} else {
			notes = &trimmed
		}
	}
	res.ok(StepValidate, "")

	err := o.run(ctx, res, StepUpdateNotes, func(ctx context.Context) (string, error) {
		return productID, o.entitlements.UpdateNotes(ctx, customerID, productID, notes)
	})
	if err != nil {
		return res, o.stepFailed(ctx, res, CodeNotesUpdateFailed, StepUpdateNotes, repository.EntityEntitlement, err, "")
	}
	o.completed(ctx, res, EventUpdated, "")
	return res, nil
}

// CustomerView is a customer with its entitlements.
type CustomerView struct {
	Customer     model.Customer      `json:"customer"`
	Entitlements []model.Entitlement `json:"entitlements"`
}

// Get returns the customer and its entitlements, or ErrCustomerNotFound.
func (o *Orchestrator) Get(ctx context.Context, customerID string) (*CustomerView, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, invalidf("customer id is required")
	}
	c, err := o.customers.Get(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load customer %s: %w", customerID, err)
	}
	ents, err := o.entitlements.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load entitlements of %s: %w", customerID, err)
	}
	if ents == nil {
		ents = []model.Entitlement{}
	}
	return &CustomerView{Customer: *c, Entitlements: ents}, nil
}

func intersect(a, b []string) []string {
	in := make(map[string]bool, len(a))
	for _, s := range a {
		in[s] = true
	}
	var out []string
	for _, s := range b {
		if in[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
