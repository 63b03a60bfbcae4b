// Package common defines shared constants and sentinel errors used across
// client and server layers of ImageVault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Protocol-level errors. A protocol fault is fatal to the session that
	// raised it: the connection is closed and no further messages are read.
	ErrProtocolFault = errors.New("protocol fault")

	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrDuplicateUser = errors.New("user already exists")
	ErrDuplicateName = errors.New("image name already exists")
	ErrNotOwner      = errors.New("not the owner")

	// Command-level errors: reported to the client as a structured error
	// response, the session stays open.
	ErrBadCredential        = errors.New("bad credentials")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrUnknownTag           = errors.New("unknown tag")
	ErrInvalidArgument      = errors.New("invalid argument")

	// Generic/internal flow control.
	ErrInternal = errors.New("internal error")

	// Backing store transiently unreachable; surfaced to the client as a
	// retryable command error.
	ErrStoreUnavailable = errors.New("store unavailable")

	// External collaborator (feature extraction) failed for one request.
	ErrCollaborator = errors.New("collaborator failure")
)
