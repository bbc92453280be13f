package types

import "errors"

// Error kinds shared by the codec and the session. Concrete errors wrap one of these.
var (
	// ErrEndOfInput means the peer closed the stream cleanly between messages.
	ErrEndOfInput = errors.New("end of input")
	// ErrProtocol covers illegal or unrecognised commands and malformed frames.
	ErrProtocol = errors.New("protocol error")
	// ErrIO covers stream read/write failures and local file failures.
	ErrIO = errors.New("i/o error")
)
