package lifecycle

// Step names one call in an operation's fixed sequence.
type Step string

const (
	StepValidate           Step = "validate_input"
	StepCreateIdentity     Step = "create_identity"
	StepInsertCustomer     Step = "insert_customer"
	StepInsertEntitlements Step = "insert_entitlements"
	StepUpdateCustomer     Step = "update_customer"
	StepLoadEntitlements   Step = "load_entitlements"
	StepAddEntitlements    Step = "add_entitlements"
	StepRemoveEntitlements Step = "remove_entitlements"
	StepUpdateNotes        Step = "update_notes"
	StepDeleteEntitlements Step = "delete_entitlements"
	StepDetachProfiles     Step = "detach_profiles"
	StepDetachOrders       Step = "detach_orders"
	StepDeleteCustomer     Step = "delete_customer"
	StepDeleteIdentity     Step = "delete_identity"
)

// mutating reports whether a successful step changed persisted state.
func (s Step) mutating() bool {
	switch s {
	case StepValidate, StepLoadEntitlements:
		return false
	}
	return true
}

// Operation names.
const (
	OpProvision       = "provision"
	OpUpdate          = "update"
	OpSetEntitlements = "set_entitlements"
	OpUpdateNotes     = "update_notes"
	OpDeprovision     = "deprovision"
)

// Status is the outcome of a single step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped" // nothing to do
	StatusFailed  Status = "failed"
	StatusNotRun  Status = "not_run" // an earlier step failed
)

// StepOutcome records what happened to one step.
type StepOutcome struct {
	Step   Step   `json:"step"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result summarizes an operation step by step.  It is returned on success
// and on failure, so partial success is always visible.
type Result struct {
	Operation  string        `json:"operation"`
	CustomerID string        `json:"customerId,omitempty"`
	Steps      []StepOutcome `json:"steps"`
}

func newResult(op, customerID string) *Result {
	return &Result{Operation: op, CustomerID: customerID}
}

func (r *Result) ok(step Step, detail string) {
	r.Steps = append(r.Steps, StepOutcome{Step: step, Status: StatusOK, Detail: detail})
}

func (r *Result) skip(step Step, detail string) {
	r.Steps = append(r.Steps, StepOutcome{Step: step, Status: StatusSkipped, Detail: detail})
}

func (r *Result) fail(step Step, err error) {
	r.Steps = append(r.Steps, StepOutcome{Step: step, Status: StatusFailed, Error: err.Error()})
}

// finish marks every planned step that has no outcome yet as not run.
func (r *Result) finish(plan ...Step) {
	seen := make(map[Step]bool, len(r.Steps))
	for _, s := range r.Steps {
		seen[s.Step] = true
	}
	for _, s := range plan {
		if !seen[s] {
			r.Steps = append(r.Steps, StepOutcome{Step: s, Status: StatusNotRun})
		}
	}
}

// Outcome returns the recorded outcome of step.
func (r *Result) Outcome(step Step) (StepOutcome, bool) {
	for _, s := range r.Steps {
		if s.Step == step {
			return s, true
		}
	}
	return StepOutcome{}, false
}

// Committed lists the mutating steps that succeeded, in execution order.
func (r *Result) Committed() []Step {
	var out []Step
	for _, s := range r.Steps {
		if s.Status == StatusOK && s.Step.mutating() {
			out = append(out, s.Step)
		}
	}
	return out
}
