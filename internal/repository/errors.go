package repository

import "errors"

var (
	// ErrEmailExists is returned by UserRepo.Create on a duplicate email.
	ErrEmailExists = errors.New("email already exists")
	// ErrNotFound is returned when a row does not exist or is not owned by
	// the requesting user.
	ErrNotFound = errors.New("not found")
)
