package meshauth

import "errors"

// Kind classifies a library error without tying callers to a concrete
// error type. Every public operation either succeeds or returns an
// error whose Kind can be recovered with errors.As against *Error.
type Kind int

const (
	// KindUnknown is never intentionally returned; seeing it means an
	// error was not classified before reaching the caller.
	KindUnknown Kind = iota
	// KindDuplicateName is an authenticator name collision.
	KindDuplicateName
	// KindDuplicateGroup is a group name collision.
	KindDuplicateGroup
	// KindInvalidGroupName is a group name that fails ^[a-z-]+$.
	KindInvalidGroupName
	// KindUnknownGroup is an operation referencing a non-existent group.
	KindUnknownGroup
	// KindUnknownEdgeType is an edge row with an edgetype outside {or, and, not, account}.
	KindUnknownEdgeType
	// KindUnknownCondition is a rule with a condition other than "always".
	KindUnknownCondition
	// KindInvalidVerifier is a malformed verifier payload.
	KindInvalidVerifier
	// KindStorage is an underlying database failure not otherwise classified.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindDuplicateName:
		return "duplicate_name"
	case KindDuplicateGroup:
		return "duplicate_group"
	case KindInvalidGroupName:
		return "invalid_group_name"
	case KindUnknownGroup:
		return "unknown_group"
	case KindUnknownEdgeType:
		return "unknown_edge_type"
	case KindUnknownCondition:
		return "unknown_condition"
	case KindInvalidVerifier:
		return "invalid_verifier"
	case KindStorage:
		return "storage_error"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced across the public API. The
// library never returns bare errors for expected failure modes; every
// such failure wraps an *Error so callers can branch on Kind with
// errors.As rather than string matching.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a classified *Error.
func NewError(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Sentinel errors a Store implementation returns so the Engine can map
// them to the right Kind without depending on a driver's error types.
var (
	ErrDuplicateGroup = errors.New("group already exists")
	ErrDuplicateEdge  = errors.New("edge already exists")
	ErrGroupNotFound  = errors.New("group does not exist")
)
