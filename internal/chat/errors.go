package chat

import "errors"

var (
	// ErrBind - server can't listen the requested address.
	ErrBind = errors.New("chat.Server: unable to bind")

	// ErrAlreadyStarted - server was started already.
	ErrAlreadyStarted = errors.New("chat.Server: already started")

	// ErrServerClosed - server was shut down and can't be started again.
	ErrServerClosed = errors.New("chat.Server: closed")

	// ErrHandshake - connected client did not introduce itself.
	ErrHandshake = errors.New("chat.Server: handshake failed")
)
