package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors classifying Telegram API failures. Callers distinguish
// them with errors.Is.
var (
	// ErrTransport marks network-level failures: timeouts, refused
	// connections, cancelled contexts. Retrying may succeed.
	ErrTransport = errors.New("relay transport error")

	// ErrAPI marks failures reported by the Telegram Bot API itself,
	// such as a bad token or an unknown chat. Retrying will not help
	// without fixing the request.
	ErrAPI = errors.New("relay api error")
)

// classify wraps err with the matching sentinel so callers get an
// explicit reason instead of a bare failure.
func classify(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrAPI, err)
}
