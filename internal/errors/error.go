package errors

import "github.com/pkg/errors"

var (
	// authorization errors
	ErrSenderNotAllowed    = errors.New("sender is not on the fax allow-list")
	ErrRecipientNotAllowed = errors.New("recipient phone is not on the fax allow-list")

	// message errors
	ErrMalformedMessage = errors.New("message could not be parsed")
	ErrNoAttachment     = errors.New("message has no qualifying attachment")
	ErrMissingMetadata  = errors.New("stored fax job is missing required metadata")

	// dispatch errors
	ErrDispatchTimeout = errors.New("fax dispatch timed out before reaching a terminal status")
	ErrDispatchFailed  = errors.New("fax dispatch reached a terminal failure status")
)
