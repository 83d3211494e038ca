package keychain

// Status is the outcome of a SecureStore operation, mirroring the result
// codes of the underlying OS store. Logical outcomes (not found, duplicate)
// are distinct from transient availability failures so the Manager can
// route each to the right branch.
type Status int

const (
	// StatusSuccess: the operation completed.
	StatusSuccess Status = iota

	// StatusItemNotFound: no item exists for the key. Benign on delete and
	// lookup; on update it means add should have been used.
	StatusItemNotFound

	// StatusDuplicateItem: add found an existing item for the key. Expected
	// on re-save; the caller retries as an update.
	StatusDuplicateItem

	// StatusAuthFailed: the store refused access (transient).
	StatusAuthFailed

	// StatusInteractionNotAllowed: the store needs user interaction that is
	// not currently possible, e.g. the machine is locked (transient).
	StatusInteractionNotAllowed

	// StatusNotAvailable: the store is not reachable right now (transient).
	StatusNotAvailable

	// StatusDecode: the item exists but its payload could not be decoded.
	StatusDecode

	// StatusParam: the request itself was malformed.
	StatusParam

	// StatusUnexpected: any failure the backend could not classify.
	StatusUnexpected
)

// Transient reports whether the status is an availability failure worth
// retrying later, as opposed to a logical outcome or a hard error.
func (s Status) Transient() bool {
	switch s {
	case StatusAuthFailed, StatusInteractionNotAllowed, StatusNotAvailable:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusItemNotFound:
		return "item not found"
	case StatusDuplicateItem:
		return "duplicate item"
	case StatusAuthFailed:
		return "authentication failed"
	case StatusInteractionNotAllowed:
		return "interaction not allowed"
	case StatusNotAvailable:
		return "store not available"
	case StatusDecode:
		return "decode failed"
	case StatusParam:
		return "invalid parameter"
	default:
		return "unexpected failure"
	}
}
