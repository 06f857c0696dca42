// Package lifecycle runs the customer provisioning, update and
// deprovisioning sequences.  The identity provider and the relational store
// share no transaction, so every operation is an ordered list of idempotent
// steps.  The first failing step stops the operation and is reported by
// name together with the steps that had already committed.  Nothing is
// rolled back and nothing is retried here; callers converge by re-invoking.
package lifecycle

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-admin/internal/identity"
	"github.com/iliyamo/storefront-admin/internal/model"
)

// CustomerStore persists customer rows.
type CustomerStore interface {
	Get(ctx context.Context, id string) (*model.Customer, error)
	Insert(ctx context.Context, c *model.Customer) error
	Update(ctx context.Context, id string, patch model.CustomerPatch) error
	Delete(ctx context.Context, id string) error
}

// EntitlementStore persists (customer, product) entitlement rows.
type EntitlementStore interface {
	ListByCustomer(ctx context.Context, customerID string) ([]model.Entitlement, error)
	Upsert(ctx context.Context, rows []model.Entitlement) error
	DeleteProducts(ctx context.Context, customerID string, productIDs []string) error
	DeleteByCustomer(ctx context.Context, customerID string) error
	UpdateNotes(ctx context.Context, customerID, productID string, notes *string) error
}

// ProfileStore clears profile references to a customer.
type ProfileStore interface {
	DetachCustomer(ctx context.Context, customerID string) error
}

// OrderStore clears order references to a customer.  Orders are history
// and outlive the customer.
type OrderStore interface {
	ListIDsByCustomer(ctx context.Context, customerID string) ([]uint64, error)
	DetachCustomer(ctx context.Context, customerID string) error
}

// ProductCatalog answers which product ids are unknown.
type ProductCatalog interface {
	MissingIDs(ctx context.Context, ids []string) ([]string, error)
}

// Deps groups the collaborators of an Orchestrator.  Notifier and Logger
// are optional.
type Deps struct {
	Customers    CustomerStore
	Entitlements EntitlementStore
	Profiles     ProfileStore
	Orders       OrderStore
	Products     ProductCatalog
	Identities   identity.Provider
	Notifier     Notifier
	Logger       *zap.Logger
}

// Orchestrator is safe for concurrent use; it holds no per-request state.
type Orchestrator struct {
	customers    CustomerStore
	entitlements EntitlementStore
	profiles     ProfileStore
	orders       OrderStore
	products     ProductCatalog
	identities   identity.Provider
	notifier     Notifier
	log          *zap.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// New builds an Orchestrator from d.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		customers:    d.Customers,
		entitlements: d.Entitlements,
		profiles:     d.Profiles,
		orders:       d.Orders,
		products:     d.Products,
		identities:   d.Identities,
		notifier:     d.Notifier,
		log:          d.Logger,
		tracer:       otel.Tracer("github.com/iliyamo/storefront-admin/internal/lifecycle"),
		now:          time.Now,
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// run executes one step inside its own span and records the outcome.
func (o *Orchestrator) run(ctx context.Context, res *Result, step Step, fn func(ctx context.Context) (string, error)) error {
	ctx, span := o.tracer.Start(ctx, "lifecycle."+string(step),
		trace.WithAttributes(
			attribute.String("lifecycle.operation", res.Operation),
			attribute.String("lifecycle.customer_id", res.CustomerID),
		))
	defer span.End()

	detail, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res.fail(step, err)
		return err
	}
	res.ok(step, detail)
	return nil
}

// stepFailed builds the StepError for a failed step, logs it once and
// publishes an orphan notice when an identity was left behind.
func (o *Orchestrator) stepFailed(ctx context.Context, res *Result, code Code, step Step, entity string, err error, residual string) *StepError {
	se := &StepError{
		Code:       code,
		Step:       step,
		Entity:     entity,
		CustomerID: res.CustomerID,
		Committed:  res.Committed(),
		Residual:   residual,
		Err:        err,
	}
	fields := []zap.Field{
		zap.String("operation", res.Operation),
		zap.String("step", string(step)),
		zap.String("code", string(code)),
		zap.String("entity", entity),
		zap.String("customer_id", res.CustomerID),
		zap.Error(err),
	}
	if residual != "" {
		fields = append(fields, zap.String("residual", residual))
	}
	o.log.Error("lifecycle step failed", fields...)

	if residual != "" {
		o.publish(ctx, Event{
			Type:       EventIdentityOrphaned,
			CustomerID: res.CustomerID,
			IdentityID: res.CustomerID,
			Step:       step,
			Detail:     residual,
			Steps:      res.Steps,
		})
	}
	return se
}

// invalid records a failed validation step and returns err unchanged.
func (o *Orchestrator) invalid(res *Result, err error, plan ...Step) error {
	res.fail(StepValidate, err)
	res.finish(plan...)
	o.log.Info("lifecycle input rejected",
		zap.String("operation", res.Operation),
		zap.String("customer_id", res.CustomerID),
		zap.Error(err))
	return err
}

// publish hands ev to the notifier.  It runs on a context detached from
// the request so a cancelled caller does not drop the notice.
func (o *Orchestrator) publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = o.now().UTC()
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.notifier.Publish(pctx, ev); err != nil {
		o.log.Warn("lifecycle event not published",
			zap.String("event", string(ev.Type)),
			zap.String("customer_id", ev.CustomerID),
			zap.Error(err))
	}
}

func (o *Orchestrator) completed(ctx context.Context, res *Result, typ EventType, email string) {
	o.log.Info("lifecycle operation completed",
		zap.String("operation", res.Operation),
		zap.String("customer_id", res.CustomerID),
		zap.Int("committed_steps", len(res.Committed())))
	if len(res.Committed()) == 0 {
		return
	}
	o.publish(ctx, Event{
		Type:       typ,
		CustomerID: res.CustomerID,
		IdentityID: res.CustomerID,
		Email:      email,
		Steps:      res.Steps,
	})
}
