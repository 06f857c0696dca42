// Package repository defines error types that are reused across multiple
// repositories.  Every failure leaving this package is a *StoreError naming
// the entity and operation, wrapping one of the sentinel values below when
// the driver error could be classified.  Higher layers such as the
// lifecycle orchestrator use errors.Is/errors.As to tell a missing row from
// a broken constraint without parsing driver messages themselves.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a point lookup or a targeted update matched
// no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// ErrForeignKey is returned when a write violates a foreign key, e.g.
// inserting an entitlement for an unknown product or deleting a customer
// that is still referenced.
var ErrForeignKey = errors.New("foreign key violation")

// Entity names used in StoreError.
const (
	EntityIdentity    = "identity"
	EntitySession     = "session"
	EntityCustomer    = "customer"
	EntityProfile     = "profile"
	EntityProduct     = "product"
	EntityEntitlement = "entitlement"
	EntityOrder       = "order"
)

// MySQL server error numbers we classify.
const (
	mysqlDupEntry         = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	mysqlRowIsReferenced2 = 1217
	mysqlNoReferencedRow2 = 1216
)

// StoreError is the typed failure returned by every repository call.
type StoreError struct {
	Entity     string // entity the call operated on
	Op         string // get, list, insert, update, delete
	Constraint string // violated constraint name, when the driver reported one
	Err        error  // classified sentinel joined with the driver error
}

func (e *StoreError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s %s: %v (constraint %s)", e.Entity, e.Op, e.Err, e.Constraint)
	}
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// constraintRe pulls the constraint name out of MySQL FK messages such as
// "... CONSTRAINT `fk_entitlements_product` FOREIGN KEY ...".
var constraintRe = regexp.MustCompile("CONSTRAINT `([^`]+)`")

// dupKeyRe pulls the key name out of "Duplicate entry 'x' for key 'customers.PRIMARY'".
var dupKeyRe = regexp.MustCompile(`for key '([^']+)'`)

// wrap converts a driver error into a *StoreError.  A nil err stays nil.
func wrap(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	out := &StoreError{Entity: entity, Op: op, Err: err}
	if errors.Is(err, sql.ErrNoRows) {
		out.Err = ErrNotFound
		return out
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			out.Err = fmt.Errorf("%w: %s", ErrDuplicate, me.Message)
			if m := dupKeyRe.FindStringSubmatch(me.Message); m != nil {
				out.Constraint = m[1]
			}
		case mysqlRowIsReferenced, mysqlNoReferencedRow, mysqlRowIsReferenced2, mysqlNoReferencedRow2:
			out.Err = fmt.Errorf("%w: %s", ErrForeignKey, me.Message)
			if m := constraintRe.FindStringSubmatch(me.Message); m != nil {
				out.Constraint = m[1]
			}
		}
	}
	return out
}

// notFound builds the StoreError for a targeted write that matched no row.
func notFound(entity, op string) error {
	return &StoreError{Entity: entity, Op: op, Err: ErrNotFound}
}
