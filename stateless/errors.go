package stateless

import "errors"

var (
	// ErrMissingCorrelationMetadata is returned when a callback method has no
	// correlation tag. It is a code generation defect and is never retried.
	ErrMissingCorrelationMetadata = errors.New("stateless: missing callback correlation metadata")

	// ErrMalformedRequestReplyID is returned for a request/reply id that is
	// blank or carries no method correlation part.
	ErrMalformedRequestReplyID = errors.New("stateless: malformed request/reply id")

	// ErrUnknownParticipant is returned by Registry.Resolve for a participant
	// id that was never recorded.
	ErrUnknownParticipant = errors.New("stateless: unknown participant id")

	// ErrEnumeration wraps a failure of the host environment to list its
	// callback handler components.
	ErrEnumeration = errors.New("stateless: enumerate callback handlers")

	// ErrDuplicateCorrelation is returned when two methods of one callback
	// share a correlation tag.
	ErrDuplicateCorrelation = errors.New("stateless: duplicate callback correlation")

	// ErrInvalidEndpoint is returned for a blank or non UTF-8 endpoint identity.
	ErrInvalidEndpoint = errors.New("stateless: invalid endpoint identity")
)
