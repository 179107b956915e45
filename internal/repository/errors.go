package repository

import "errors"

// ErrDuplicateEmail is returned by UserRepository.Create when the email is
// already registered.
var ErrDuplicateEmail = errors.New("email already registered")
