package tool

import (
	"errors"

	"github.com/moyoez/gcomserver-go/types"
)

// Process exit statuses reported after a session or server run.
const (
	ExitSuccess       = 0
	ExitUnknownError  = 1
	ExitProtocolError = 2
	ExitIOError       = 3
)

// ExitStatus maps the final error of a run to an exit code and the line
// logged before exiting. A clean end of input counts as success.
func ExitStatus(err error) (int, string) {
	switch {
	case err == nil, errors.Is(err, types.ErrEndOfInput):
		return ExitSuccess, "Finished transfer."
	case errors.Is(err, types.ErrProtocol):
		return ExitProtocolError, "Protocol error. Disconnecting."
	case errors.Is(err, types.ErrIO):
		return ExitIOError, "I/O error. Disconnecting."
	default:
		return ExitUnknownError, "Unknown error. Disconnecting."
	}
}
