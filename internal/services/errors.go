package services

import "errors"

var (
	// ErrEmptyMessage is returned when a message body is empty after trimming.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrMissingSession is returned when a visitor request carries no session id.
	ErrMissingSession = errors.New("session id is required")

	// ErrConversationNotFound is returned when an operator references a
	// conversation id that does not exist. Visitor-side lookups never return
	// this; a missing conversation is silently created instead.
	ErrConversationNotFound = errors.New("conversation not found")
)
