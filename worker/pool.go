package worker // import "github.com/johnyfernandes/shlf-sync/worker"

import (
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SendPool fans outbound messages across a fixed set of workers so a slow or
// unreachable peer never blocks the caller.
type SendPool struct {
	queue chan Outbound
}

func NewSendPool(sender Sender, size int) *SendPool {
	pool := &SendPool{
		queue: make(chan Outbound, size*4),
	}

	for i := 0; i < size; i++ {
		worker := &SendWorker{id: i, sender: sender}
		go worker.Run(pool.queue)
	}

	return pool
}

// Push enqueues a job without ever blocking the caller. The channel is
// fire-and-forget; when the queue is full the job is dropped and the next
// snapshot or broadcast carries current state anyway.
// Implement WorkPool interface
func (p *SendPool) Push(job Outbound) {
	select {
	case p.queue <- job:
	default:
		log.Warn("Send queue full, dropping outbound message")
	}
}

type SendWorker struct {
	id     int
	sender Sender
}

func (w *SendWorker) Run(c <-chan Outbound) {
	log.Debug("SendWorker is running", zap.Int("worker_id", w.id))

	for job := range c {
		var err error
		switch {
		case job.Envelope != nil:
			err = w.sender.Send(job.Envelope)
		case job.Context != nil:
			err = w.sender.UpdateContext(job.Context)
		default:
			continue
		}

		if err == nil {
			continue
		}

		// Dropped messages are recovered by the next snapshot or broadcast,
		// every payload is safe to lose.
		if errors.Is(err, ErrPeerUnreachable) {
			log.Debug("Peer unreachable, dropping outbound message",
				zap.Int("worker_id", w.id),
				zap.Error(err))
			continue
		}
		log.Warn("Failed to deliver outbound message",
			zap.Int("worker_id", w.id),
			zap.Error(err))
	}
}
