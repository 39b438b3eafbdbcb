// Package apperr defines the error taxonomy shared by every conversion phase.
package apperr

import "errors"

var (
	// ErrConfiguration reports a missing or invalid source, target or
	// attachments directory. Always fatal.
	ErrConfiguration = errors.New("configuration error")
	// ErrRead reports a listed source document that cannot be opened.
	ErrRead = errors.New("read error")
	// ErrAttachmentMissing reports a referenced attachment that does not
	// exist at copy time.
	ErrAttachmentMissing = errors.New("attachment missing")
)
