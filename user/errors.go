package user

import (
	"fmt"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrPreferencesRequired   = errors.New("preferences cannot be nil")
	ErrMissingSessionDetails = errors.New("both the user id and the token are required")
	ErrMissingUserDetails    = errors.New("both the email and password are required")
)

// PersistenceError is returned by writes that the store rejected or never
// acknowledged.
type PersistenceError struct {
	Op    string
	cause error
}

func newPersistenceError(op string, cause error) *PersistenceError {
	return &PersistenceError{Op: op, cause: errors.WithStack(cause)}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("userstore: %s: %v", e.Op, e.cause)
}

// Cause satisfies the github.com/pkg/errors causer interface.
func (e *PersistenceError) Cause() error { return e.cause }

func (e *PersistenceError) Unwrap() error { return e.cause }

func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsDuplicateUser reports whether err comes from inserting an email that is
// already registered.
func IsDuplicateUser(err error) bool {
	if !IsPersistenceError(err) {
		return false
	}
	if errors.Is(err, errDuplicateEmail) {
		return true
	}
	return mongo.IsDuplicateKeyError(errors.Cause(err))
}

// returned by the in-memory store in place of the server's E11000
var errDuplicateEmail = errors.New("duplicate email")
