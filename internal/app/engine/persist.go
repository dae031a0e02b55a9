package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/osa030/playqueue/internal/domain/queue"
)

// persister saves snapshots in the background. Only the latest pending
// snapshot is kept, so a slow store never blocks a mutation.
type persister struct {
	store   Store
	timeout time.Duration
	mailbox chan queue.Snapshot
	done    chan struct{}
	log     zerolog.Logger
}

func newPersister(store Store, timeout time.Duration, log zerolog.Logger) *persister {
	p := &persister{
		store:   store,
		timeout: timeout,
		mailbox: make(chan queue.Snapshot, 1),
		done:    make(chan struct{}),
		log:     log,
	}
	go p.run()
	return p
}

// submit replaces any pending snapshot with snap. Called with the engine lock held.
func (p *persister) submit(snap queue.Snapshot) {
	for {
		select {
		case p.mailbox <- snap:
			return
		default:
		}
		select {
		case <-p.mailbox:
		default:
		}
	}
}

func (p *persister) run() {
	defer close(p.done)
	for snap := range p.mailbox {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.store.Save(ctx, snap)
		cancel()
		if err != nil {
			p.log.Error().Msgf("queue: failed to persist queue: %v", err)
			continue
		}
		p.log.Debug().Msgf("queue: persisted: play_next=%d user_queue=%d current=%d",
			len(snap.PlayNextIDs), len(snap.UserQueueIDs), snap.CurrentMainIndex)
	}
}

// close flushes the pending snapshot and stops the worker.
func (p *persister) close() {
	close(p.mailbox)
	<-p.done
}
