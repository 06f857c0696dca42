package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/storefront-admin/internal/identity"
	"github.com/iliyamo/storefront-admin/internal/model"
	"github.com/iliyamo/storefront-admin/internal/repository"
)

var errInjected = errors.New("injected failure")

// world is an in-memory storefront: identities, customers, entitlements,
// profiles and orders, with foreign keys enforced the way MySQL would and
// per-call failure injection.
type world struct {
	mu          sync.Mutex
	identities  map[string]string // id -> email
	credentials map[string]string // id -> initial credential
	customers   map[string]model.Customer
	ents        map[string]map[string]model.Entitlement
	profiles    map[string]*string
	orders      map[uint64]*string
	products    map[string]bool
	fail        map[string]error
	calls       map[string]int
	nextID      int
}

func newWorld(products ...string) *world {
	w := &world{
		identities:  map[string]string{},
		credentials: map[string]string{},
		customers:   map[string]model.Customer{},
		ents:        map[string]map[string]model.Entitlement{},
		profiles:    map[string]*string{},
		orders:      map[uint64]*string{},
		products:    map[string]bool{},
		fail:        map[string]error{},
		calls:       map[string]int{},
	}
	for _, p := range products {
		w.products[p] = true
	}
	return w
}

// hit records a call and returns the injected failure for it, if any.
func (w *world) hit(op string) error {
	w.calls[op]++
	return w.fail[op]
}

func (w *world) failOn(op string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail[op] = err
}

func (w *world) clearFailures() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail = map[string]error{}
}

func (w *world) productIDs(customerID string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for id := range w.ents[customerID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (w *world) countEntitlements() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, m := range w.ents {
		n += len(m)
	}
	return n
}

func (w *world) hasCustomer(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.customers[id]
	return ok
}

func (w *world) hasIdentity(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.identities[id]
	return ok
}

func (w *world) orderCustomer(id uint64) *string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.orders[id]
}

func (w *world) addOrder(id uint64, customerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.orders[id] = &customerID
}

func (w *world) addProfile(id, customerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.profiles[id] = &customerID
}

func fkError(entity, op, constraint string) error {
	return &repository.StoreError{Entity: entity, Op: op, Constraint: constraint, Err: repository.ErrForeignKey}
}

func notFoundError(entity, op string) error {
	return &repository.StoreError{Entity: entity, Op: op, Err: repository.ErrNotFound}
}

// fakeIdentities implements identity.Provider.
type fakeIdentities struct{ w *world }

func (f fakeIdentities) CreateIdentity(_ context.Context, email, credential string) (model.Identity, error) {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("identity.create"); err != nil {
		return model.Identity{}, err
	}
	for _, e := range w.identities {
		if e == email {
			return model.Identity{}, identity.ErrEmailTaken
		}
	}
	w.nextID++
	id := fmt.Sprintf("id-%03d", w.nextID)
	w.identities[id] = email
	w.credentials[id] = credential
	return model.Identity{ID: id, Email: email, CreatedAt: time.Now()}, nil
}

func (f fakeIdentities) DeleteIdentity(_ context.Context, id string) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("identity.delete"); err != nil {
		return err
	}
	delete(w.identities, id)
	return nil
}

func (f fakeIdentities) ValidateSession(context.Context, string) (model.Identity, error) {
	return model.Identity{}, identity.ErrInvalidSession
}

type fakeCustomers struct{ w *world }

func (f fakeCustomers) Get(_ context.Context, id string) (*model.Customer, error) {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("customer.get"); err != nil {
		return nil, err
	}
	c, ok := w.customers[id]
	if !ok {
		return nil, notFoundError(repository.EntityCustomer, "get")
	}
	return &c, nil
}

func (f fakeCustomers) Insert(_ context.Context, c *model.Customer) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("customer.insert"); err != nil {
		return err
	}
	if _, ok := w.customers[c.ID]; ok {
		return &repository.StoreError{Entity: repository.EntityCustomer, Op: "insert", Constraint: "PRIMARY", Err: repository.ErrDuplicate}
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	w.customers[c.ID] = *c
	return nil
}

func (f fakeCustomers) Update(_ context.Context, id string, patch model.CustomerPatch) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("customer.update"); err != nil {
		return err
	}
	c, ok := w.customers[id]
	if !ok {
		return notFoundError(repository.EntityCustomer, "update")
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	w.customers[id] = c
	return nil
}

func (f fakeCustomers) Delete(_ context.Context, id string) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("customer.delete"); err != nil {
		return err
	}
	if len(w.ents[id]) > 0 {
		return fkError(repository.EntityCustomer, "delete", "fk_entitlements_customer")
	}
	for _, ref := range w.profiles {
		if ref != nil && *ref == id {
			return fkError(repository.EntityCustomer, "delete", "fk_profiles_customer")
		}
	}
	for _, ref := range w.orders {
		if ref != nil && *ref == id {
			return fkError(repository.EntityCustomer, "delete", "fk_orders_customer")
		}
	}
	delete(w.customers, id)
	return nil
}

type fakeEntitlements struct{ w *world }

func (f fakeEntitlements) ListByCustomer(_ context.Context, customerID string) ([]model.Entitlement, error) {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("entitlement.list"); err != nil {
		return nil, err
	}
	var out []model.Entitlement
	for _, e := range w.ents[customerID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (f fakeEntitlements) Upsert(_ context.Context, rows []model.Entitlement) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("entitlement.upsert"); err != nil {
		return err
	}
	// single statement: validate every row before writing any
	for _, r := range rows {
		if _, ok := w.customers[r.CustomerID]; !ok {
			return fkError(repository.EntityEntitlement, "insert", "fk_entitlements_customer")
		}
		if !w.products[r.ProductID] {
			return fkError(repository.EntityEntitlement, "insert", "fk_entitlements_product")
		}
	}
	for _, r := range rows {
		m := w.ents[r.CustomerID]
		if m == nil {
			m = map[string]model.Entitlement{}
			w.ents[r.CustomerID] = m
		}
		if _, ok := m[r.ProductID]; ok {
			continue
		}
		r.CreatedAt = time.Now()
		m[r.ProductID] = r
	}
	return nil
}

func (f fakeEntitlements) DeleteProducts(_ context.Context, customerID string, productIDs []string) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("entitlement.deleteProducts"); err != nil {
		return err
	}
	for _, p := range productIDs {
		delete(w.ents[customerID], p)
	}
	return nil
}

func (f fakeEntitlements) DeleteByCustomer(_ context.Context, customerID string) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("entitlement.deleteByCustomer"); err != nil {
		return err
	}
	delete(w.ents, customerID)
	return nil
}

func (f fakeEntitlements) UpdateNotes(_ context.Context, customerID, productID string, notes *string) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("entitlement.notes"); err != nil {
		return err
	}
	e, ok := w.ents[customerID][productID]
	if !ok {
		return notFoundError(repository.EntityEntitlement, "update")
	}
	e.Notes = notes
	w.ents[customerID][productID] = e
	return nil
}

type fakeProfiles struct{ w *world }

func (f fakeProfiles) DetachCustomer(_ context.Context, customerID string) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("profile.detach"); err != nil {
		return err
	}
	for id, ref := range w.profiles {
		if ref != nil && *ref == customerID {
			w.profiles[id] = nil
		}
	}
	return nil
}

type fakeOrders struct{ w *world }

func (f fakeOrders) ListIDsByCustomer(_ context.Context, customerID string) ([]uint64, error) {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("order.list"); err != nil {
		return nil, err
	}
	var ids []uint64
	for id, ref := range w.orders {
		if ref != nil && *ref == customerID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f fakeOrders) DetachCustomer(_ context.Context, customerID string) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("order.detach"); err != nil {
		return err
	}
	for id, ref := range w.orders {
		if ref != nil && *ref == customerID {
			w.orders[id] = nil
		}
	}
	return nil
}

type fakeCatalog struct{ w *world }

func (f fakeCatalog) MissingIDs(_ context.Context, ids []string) ([]string, error) {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.hit("product.missing"); err != nil {
		return nil, err
	}
	var out []string
	for _, id := range ids {
		if !w.products[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// recordingNotifier keeps every published event.
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) ofType(t EventType) []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Event
	for _, ev := range n.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestOrchestrator(w *world) (*Orchestrator, *recordingNotifier) {
	n := &recordingNotifier{}
	o := New(Deps{
		Customers:    fakeCustomers{w},
		Entitlements: fakeEntitlements{w},
		Profiles:     fakeProfiles{w},
		Orders:       fakeOrders{w},
		Products:     fakeCatalog{w},
		Identities:   fakeIdentities{w},
		Notifier:     n,
	})
	return o, n
}
