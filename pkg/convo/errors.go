package convo

import (
	"errors"

	"parley/pkg/keylock"
)

var (
	// ErrNotFound indicates an operation targeted an id the store does not
	// hold. Recoverable; the caller decides whether to create it.
	ErrNotFound = errors.New("conversation not found")

	// ErrServiceUnavailable indicates compression or curation was requested
	// but no compression service is configured.
	ErrServiceUnavailable = errors.New("compression service unavailable")

	// ErrLockTimeout indicates a mutation was abandoned after waiting too
	// long for the conversation's lock. The mutation was not applied.
	ErrLockTimeout = keylock.ErrTimeout
)
