package usecases

import (
	"errors"
	"fmt"
)

// Kind classifies a usecase failure.
type Kind int

const (
	VerificationFailed Kind = iota + 1
	NotFound
	ExistingConflict
	WrongId
	OverwriteConflict
	WrongOwner
	OwnerVerificationError
	InvalidId
	TrackListTooLarge
	DatastoreError
	PublishError
)

var kindNames = map[Kind]string{
	VerificationFailed:     "verification failed",
	NotFound:               "not found",
	ExistingConflict:       "existing conflict",
	WrongId:                "wrong id",
	OverwriteConflict:      "overwrite conflict",
	WrongOwner:             "wrong owner",
	OwnerVerificationError: "owner verification error",
	InvalidId:              "invalid id",
	TrackListTooLarge:      "tracklist too large",
	DatastoreError:         "datastore error",
	PublishError:           "publish error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type returned by usecases.
//
// ID names the entity the failure is about, when there is one.
type Error struct {
	Kind Kind
	ID   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first [*Error] in err's chain.
func KindOf(err error) (Kind, bool) {
	var uerr *Error
	if errors.As(err, &uerr) {
		return uerr.Kind, true
	}
	return 0, false
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func notFound(id string) *Error {
	return &Error{Kind: NotFound, ID: id, Msg: fmt.Sprintf("song %q not found", id)}
}

func verificationFailed(err error) *Error {
	return newError(VerificationFailed, "identity token could not be verified", err)
}

func datastoreError(err error) *Error {
	return newError(DatastoreError, "datastore request failed", err)
}
