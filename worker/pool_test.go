package worker // import "github.com/johnyfernandes/shlf-sync/worker"

import (
	"testing"
	"time"

	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
)

// Initialize the logger and config
func init() {
	config.Opts = config.GetDefaultOptions()
	log.Logger = log.NewLogger()
}

// stuckSender holds every delivery until released, simulating a peer that
// hangs at the request timeout.
type stuckSender struct {
	release chan struct{}
}

func (s *stuckSender) Send(*model.Envelope) error {
	<-s.release
	return nil
}

func (s *stuckSender) UpdateContext(*model.LibraryBroadcast) error {
	<-s.release
	return nil
}

func TestPushNeverBlocksOnFullQueue(t *testing.T) {
	sender := &stuckSender{release: make(chan struct{})}
	defer close(sender.release)
	pool := NewSendPool(sender, 1)

	// Far more jobs than the queue and workers can hold while the sender is
	// stuck. Push must drop the overflow, not stall the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			pool.Push(Outbound{Envelope: &model.Envelope{}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Push blocked while the peer was hanging")
	}
}
