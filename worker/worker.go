package worker // import "github.com/johnyfernandes/shlf-sync/worker"

import (
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/pkg/errors"
)

// ErrPeerUnreachable marks transient connection failures. The channel is
// fire-and-forget, so workers drop these instead of retrying.
var ErrPeerUnreachable = errors.New("worker: peer unreachable")

// Sender delivers outbound traffic to the paired device.
type Sender interface {
	// Send posts a single framed message.
	Send(envelope *model.Envelope) error
	// UpdateContext replaces the peer's copy of the library context. Only the
	// most recent update matters, stale ones are superseded.
	UpdateContext(broadcast *model.LibraryBroadcast) error
}

// Outbound is one unit of work for the send pool. Exactly one of Envelope or
// Context is set.
type Outbound struct {
	Envelope *model.Envelope
	Context  *model.LibraryBroadcast
}

type WorkPool interface {
	Push(job Outbound)
}
