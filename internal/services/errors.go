package services

import "errors"

var (
	// ErrNoSession means no signed-in user; the call touched no store
	ErrNoSession = errors.New("not signed in")
	// ErrValidation wraps a missing or malformed required field
	ErrValidation = errors.New("missing info")
	// ErrInvalidCredentials is returned for a wrong email or password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when registering an existing email
	ErrEmailTaken = errors.New("email already in use")
	// ErrNotOwner is returned when editing a record the caller did not create
	ErrNotOwner = errors.New("only prayers you created can be edited")
	// ErrNotFound is returned when a record is not in the caller's partition
	ErrNotFound = errors.New("not found")
	// ErrWriteFailed wraps a rejected store write; the caller may retry
	ErrWriteFailed = errors.New("could not save, please try again")
)

func requireUser(userID string) error {
	if userID == "" {
		return ErrNoSession
	}
	return nil
}
