package lifecycle

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/iliyamo/storefront-admin/internal/entitlement"
	"github.com/iliyamo/storefront-admin/internal/model"
	"github.com/iliyamo/storefront-admin/internal/repository"
	"github.com/iliyamo/storefront-admin/internal/utils"
)

// ProvisionInput describes a new customer.  InitialCredential may be empty,
// in which case a random one is generated and the customer is expected to
// reset it.
type ProvisionInput struct {
	Name              string
	Email             string
	InitialCredential string
	ProductIDs        []string
}

var provisionPlan = []Step{StepValidate, StepCreateIdentity, StepInsertCustomer, StepInsertEntitlements}

// Provision creates the login identity, then the customer row sharing its
// id, then the requested entitlements.  On failure the returned error is
// ErrInvalidInput (nothing was written) or a *StepError.  The Result is
// returned in both cases.
func (o *Orchestrator) Provision(ctx context.Context, in ProvisionInput) (*Result, error) {
	res := newResult(OpProvision, "")

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return res, o.invalid(res, invalidf("customer name is required"), provisionPlan...)
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return res, o.invalid(res, err, provisionPlan...)
	}
	products := entitlement.Normalize(in.ProductIDs)
	if err := o.checkProducts(ctx, res, products); err != nil {
		res.finish(provisionPlan...)
		return res, err
	}
	credential := in.InitialCredential
	if credential == "" {
		if credential, err = utils.RandomSecret(16); err != nil {
			return res, fmt.Errorf("generate initial credential: %w", err)
		}
	}
	res.ok(StepValidate, fmt.Sprintf("%d product(s)", len(products)))

	var ident model.Identity
	err = o.run(ctx, res, StepCreateIdentity, func(ctx context.Context) (string, error) {
		var err error
		ident, err = o.identities.CreateIdentity(ctx, email, credential)
		return "", err
	})
	if err != nil {
		res.finish(provisionPlan...)
		return res, o.stepFailed(ctx, res, CodeIdentityCreationFailed, StepCreateIdentity, repository.EntityIdentity, err, "")
	}
	res.CustomerID = ident.ID

	err = o.run(ctx, res, StepInsertCustomer, func(ctx context.Context) (string, error) {
		return "", o.customers.Insert(ctx, &model.Customer{ID: ident.ID, Name: name, Email: email})
	})
	if err != nil {
		res.finish(provisionPlan...)
		residual := fmt.Sprintf("identity %s (%s) exists without a customer record", ident.ID, email)
		return res, o.stepFailed(ctx, res, CodeCustomerCreationFailed, StepInsertCustomer, repository.EntityCustomer, err, residual)
	}

	if len(products) == 0 {
		res.skip(StepInsertEntitlements, "no products requested")
	} else {
		err = o.run(ctx, res, StepInsertEntitlements, func(ctx context.Context) (string, error) {
			return fmt.Sprintf("%d entitlement(s)", len(products)), o.entitlements.Upsert(ctx, rowsFor(ident.ID, products))
		})
		if err != nil {
			return res, o.stepFailed(ctx, res, CodeEntitlementCreationFailed, StepInsertEntitlements, repository.EntityEntitlement, err, "")
		}
	}

	o.completed(ctx, res, EventProvisioned, email)
	return res, nil
}

// checkProducts rejects product ids the catalog does not know.  It writes
// nothing.  A nil catalog accepts every id and leaves the foreign keys to
// the store.
func (o *Orchestrator) checkProducts(ctx context.Context, res *Result, ids []string) error {
	if o.products == nil || len(ids) == 0 {
		return nil
	}
	missing, err := o.products.MissingIDs(ctx, ids)
	if err != nil {
		res.fail(StepValidate, err)
		return o.stepFailed(ctx, res, CodeProductLookupFailed, StepValidate, repository.EntityProduct, err, "")
	}
	if len(missing) > 0 {
		err := invalidf("unknown product ids: %s", strings.Join(missing, ", "))
		res.fail(StepValidate, err)
		return err
	}
	return nil
}

// normalizeEmail lower-cases and trims raw and requires a bare address
// without a display name.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalidf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", invalidf("email %q is not a valid address", raw)
	}
	return email, nil
}

func rowsFor(customerID string, productIDs []string) []model.Entitlement {
	rows := make([]model.Entitlement, len(productIDs))
	for i, p := range productIDs {
		rows[i] = model.Entitlement{CustomerID: customerID, ProductID: p}
	}
	return rows
}
