package line

import "errors"

var (
	// ErrFetchStatus indicates the content API did not return a success status.
	ErrFetchStatus = errors.New("content fetch failed")
	// ErrReplyStatus indicates the reply API did not accept the message.
	ErrReplyStatus = errors.New("reply delivery failed")
)
