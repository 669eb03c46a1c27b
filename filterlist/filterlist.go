// Package filterlist contains rule lists, the scanners that read them, and the
// storage that materializes rules by their indexes.
package filterlist

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrDuplicateListID is returned when two lists in a storage have the
	// same identifier.
	ErrDuplicateListID errors.Error = "duplicate list id"

	// ErrListIDOutOfRange is returned when a list identifier is not in the
	// [0, MaxListID) range.
	ErrListIDOutOfRange errors.Error = "list id out of range"

	// ErrRuleRetrieval is returned when a rule cannot be retrieved from a
	// list by its position.
	ErrRuleRetrieval errors.Error = "cannot retrieve the rule"
)

// MaxListID is the exclusive upper bound of the list identifiers.
const MaxListID = 10_000

// RuleIdx is the composite index of a rule inside a [RuleStorage].
type RuleIdx struct {
	// ListID is the identifier of the list the rule belongs to.
	ListID int

	// Position is the byte offset of the rule line inside the list.
	Position int
}

// String implements the [fmt.Stringer] interface for RuleIdx.
func (idx RuleIdx) String() (s string) {
	return fmt.Sprintf("%d:%d", idx.ListID, idx.Position)
}

// validateListID returns an error if id cannot be used as a list identifier.
func validateListID(id int) (err error) {
	if id < 0 || id >= MaxListID {
		return fmt.Errorf("%w: %d", ErrListIDOutOfRange, id)
	}

	return nil
}
