package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/storefront-admin/internal/repository"
)

var deprovisionPlan = []Step{
	StepValidate,
	StepDeleteEntitlements,
	StepDetachProfiles,
	StepDetachOrders,
	StepDeleteCustomer,
	StepDeleteIdentity,
}

// Deprovision removes everything that references the customer, then the
// customer row, then the login identity.  Orders are kept with a null
// customer.  Any failure stops the sequence; steps after it do not run, so
// a failed entitlement cleanup leaves the customer and identity intact.
// Every step succeeds on already-missing data, so calling Deprovision again
// after a failure, or after a success, converges.
func (o *Orchestrator) Deprovision(ctx context.Context, customerID string) (*Result, error) {
	customerID = strings.TrimSpace(customerID)
	res := newResult(OpDeprovision, customerID)
	if customerID == "" {
		return res, o.invalid(res, invalidf("customer id is required"), deprovisionPlan...)
	}
	res.ok(StepValidate, "")

	steps := []struct {
		step   Step
		code   Code
		entity string
		fn     func(ctx context.Context) (string, error)
	}{
		{StepDeleteEntitlements, CodeEntitlementCleanupFailed, repository.EntityEntitlement, func(ctx context.Context) (string, error) {
			return "", o.entitlements.DeleteByCustomer(ctx, customerID)
		}},
		{StepDetachProfiles, CodeProfileDetachFailed, repository.EntityProfile, func(ctx context.Context) (string, error) {
			return "", o.profiles.DetachCustomer(ctx, customerID)
		}},
		{StepDetachOrders, CodeOrderDetachFailed, repository.EntityOrder, o.detachOrders(customerID)},
		{StepDeleteCustomer, CodeCustomerDeleteFailed, repository.EntityCustomer, func(ctx context.Context) (string, error) {
			return "", o.customers.Delete(ctx, customerID)
		}},
	}
	for _, s := range steps {
		if err := o.run(ctx, res, s.step, s.fn); err != nil {
			res.finish(deprovisionPlan...)
			return res, o.stepFailed(ctx, res, s.code, s.step, s.entity, err, "")
		}
	}

	err := o.run(ctx, res, StepDeleteIdentity, func(ctx context.Context) (string, error) {
		return "", o.identities.DeleteIdentity(ctx, customerID)
	})
	if err != nil {
		residual := fmt.Sprintf("identity %s remains after its customer was deleted", customerID)
		return res, o.stepFailed(ctx, res, CodeIdentityDeleteFailed, StepDeleteIdentity, repository.EntityIdentity, err, residual)
	}

	o.completed(ctx, res, EventDeprovisioned, "")
	return res, nil
}

// detachOrders lists first and only writes when orders reference the
// customer.
func (o *Orchestrator) detachOrders(customerID string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		ids, err := o.orders.ListIDsByCustomer(ctx, customerID)
		if err != nil {
			return "", err
		}
		if len(ids) == 0 {
			return "no orders", nil
		}
		if err := o.orders.DetachCustomer(ctx, customerID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d order(s) detached", len(ids)), nil
	}
}
