package service

import "errors"

var (
	ErrNotRestored      = errors.New("session has not been restored yet")
	ErrAlreadyRestored  = errors.New("session has already been restored")
	ErrBusy             = errors.New("another operation is in progress")
	ErrNotAuthenticated = errors.New("no user is signed in")
	ErrRemoteRequired   = errors.New("operation requires the remote store")
)
