package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/timeblock/internal/logger"
)

// Kind classifies an engine error by how callers are expected to react to it.
type Kind int

const (
	// KindUnknown is any error that was not produced by this package.
	KindUnknown Kind = iota
	// KindValidation means the caller supplied malformed input (4xx).
	KindValidation
	// KindPersistence means the database failed or rejected a write (5xx).
	KindPersistence
	// KindItemLevel means a single backlog item is malformed; the pass continues.
	KindItemLevel
	// KindLockContention means another pass already holds the user's lease (retryable).
	KindLockContention
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	case KindItemLevel:
		return "item"
	case KindLockContention:
		return "lock_contention"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidTimeZone is returned when a supplied zone name cannot be loaded.
	ErrInvalidTimeZone = stderrors.New("invalid time zone")
	// ErrLockContention is returned when a scheduling pass is already running for a user.
	ErrLockContention = stderrors.New("scheduling pass already running")
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = stderrors.New("not found")
)

// Error is an engine error carrying its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a KindValidation error.
func Validation(op, format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// ValidationWrap builds a KindValidation error around a cause.
func ValidationWrap(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// Persistence wraps a database failure.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// ItemLevel describes why a single backlog item was skipped.
func ItemLevel(op, format string, args ...interface{}) error {
	return &Error{Kind: KindItemLevel, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// LockContention reports that userID already has a pass in flight.
func LockContention(userID string) error {
	return &Error{Kind: KindLockContention, Op: "acquire lease", Msg: "user " + userID, Err: ErrLockContention}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	if stderrors.Is(err, ErrInvalidTimeZone) {
		return KindValidation
	}
	if stderrors.Is(err, ErrLockContention) {
		return KindLockContention
	}
	return KindUnknown
}

// Is reports whether err has the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err, "kind", KindOf(err))
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
