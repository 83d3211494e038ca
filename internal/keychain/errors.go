package keychain

import (
	"errors"
	"fmt"
)

// ErrCorruptData is returned when an item exists but its payload cannot be
// decoded into the expected shape. Unlike availability failures, corruption
// is surfaced to the caller immediately.
var ErrCorruptData = errors.New("keychain: corrupt item data")

// FailureKind classifies an AccessError for callers and telemetry.
type FailureKind int

const (
	FailureLookup FailureKind = iota
	FailureSave
	FailureDelete
)

func (k FailureKind) String() string {
	switch k {
	case FailureLookup:
		return "lookup"
	case FailureSave:
		return "save"
	default:
		return "delete"
	}
}

// AccessError is a secure-store failure that reached the caller: a lookup,
// save, or delete hitting a status that is neither expected control flow
// (not found, duplicate) nor absorbable into the backlog.
type AccessError struct {
	Kind   FailureKind
	Status Status
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("keychain %s failure: %s", e.Kind, e.Status)
}

// AccessType identifies which Manager operation detected a failure, for the
// telemetry callback.
type AccessType string

const (
	AccessRetrieve AccessType = "retrieve"
	AccessStore    AccessType = "store"
	AccessDelete   AccessType = "delete"
	AccessFlush    AccessType = "flush"
)

// ReportFunc receives every failure worth reporting. Invoked synchronously
// on whichever goroutine detected the failure; fire and forget.
type ReportFunc func(op AccessType, err error)
