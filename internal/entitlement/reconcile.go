// Package entitlement computes the difference between the products a
// customer should be entitled to and the entitlement rows they have.
// Everything here is pure: no I/O, no clocks.
package entitlement

import (
	"sort"
	"strings"

	"github.com/iliyamo/storefront-admin/internal/model"
)

// Diff is the minimal change set that moves current state to desired state.
type Diff struct {
	ToInsert []model.Entitlement // rows to create (customer_id, product_id only)
	ToDelete []string            // product ids to remove
}

// Empty reports whether applying the diff would change nothing.
func (d Diff) Empty() bool { return len(d.ToInsert) == 0 && len(d.ToDelete) == 0 }

// InsertIDs returns the product ids of ToInsert.
func (d Diff) InsertIDs() []string {
	ids := make([]string, len(d.ToInsert))
	for i, e := range d.ToInsert {
		ids[i] = e.ProductID
	}
	return ids
}

// Normalize trims product ids, drops blanks and removes duplicates while
// keeping first-seen order.
func Normalize(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Reconcile returns desired minus current as inserts and current minus
// desired as deletes.  Products present in both are left alone, so their
// notes survive.  Both lists are sorted by product id.
func Reconcile(customerID string, desired []string, current []model.Entitlement) Diff {
	want := make(map[string]bool, len(desired))
	for _, id := range Normalize(desired) {
		want[id] = true
	}
	have := make(map[string]bool, len(current))
	for _, e := range current {
		have[e.ProductID] = true
	}

	var d Diff
	for id := range want {
		if !have[id] {
			d.ToInsert = append(d.ToInsert, model.Entitlement{CustomerID: customerID, ProductID: id})
		}
	}
	for id := range have {
		if !want[id] {
			d.ToDelete = append(d.ToDelete, id)
		}
	}
	sort.Slice(d.ToInsert, func(i, j int) bool { return d.ToInsert[i].ProductID < d.ToInsert[j].ProductID })
	sort.Strings(d.ToDelete)
	return d
}

// Apply returns the entitlement set that results from applying d to
// current.  Existing rows keep their notes.
func Apply(current []model.Entitlement, d Diff) []model.Entitlement {
	drop := make(map[string]bool, len(d.ToDelete))
	for _, id := range d.ToDelete {
		drop[id] = true
	}
	out := make([]model.Entitlement, 0, len(current)+len(d.ToInsert))
	present := make(map[string]bool, len(current))
	for _, e := range current {
		if drop[e.ProductID] {
			continue
		}
		present[e.ProductID] = true
		out = append(out, e)
	}
	for _, e := range d.ToInsert {
		if !present[e.ProductID] {
			present[e.ProductID] = true
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
