package linking

import (
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/common"
)

// Mutation ops.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Linkage ops.
const (
	OpLink   = "link"
	OpUnlink = "unlink"
)

// MutationError reports a failed create, update or delete of a child
// resource. Nothing was changed remotely.
type MutationError struct {
	Op   string
	Kind string
	Err  error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

func (e *MutationError) Is(target error) bool { return target == common.ErrRemoteMutationFailed }

// LinkageError reports that the child mutation succeeded but the owning
// profile's reference list could not be updated to match.
type LinkageError struct {
	Op      string
	Kind    string
	ChildID int64
	Err     error
}

func (e *LinkageError) Error() string {
	if e.Op == OpLink {
		return fmt.Sprintf("%s %d created but not linked to profile: %v", e.Kind, e.ChildID, e.Err)
	}
	return fmt.Sprintf("%s %d deleted but not unlinked from profile: %v", e.Kind, e.ChildID, e.Err)
}

func (e *LinkageError) Unwrap() error { return e.Err }

func (e *LinkageError) Is(target error) bool { return target == common.ErrLinkageInconsistent }
