// bus.go - the single serialisation point shared by every cache

/*
bus.go implements the Bus: the component that fans a broadcast out to every
attached cache but the sender, aggregates their responses into a single
Shared-vs-Ok decision, and forwards write-backs and memory fetches to Main
Memory on a cache's behalf.

Broadcast is synchronous: by the time Bus.broadcast returns, every snoop
handler - including any write-back a handler triggered - has already run.
This ordering is load-bearing (see DESIGN.md's open-question log): a cache
that then fetches from main memory via readFromMain is guaranteed to
observe whatever a Modified sharer just flushed.

A mutex guards the cache registry and broadcast path. The coherence model
itself has no genuine parallelism - this lock exists only so that an
embedding program driving the simulator from multiple goroutines can't
interleave two broadcasts, which would violate the single-writer
invariant.
*/

package coherence

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// memoryPort is the narrow main-memory surface the Bus needs.
type memoryPort[V Value] interface {
	Read(a int) (block[V], error)
	Write(a int, data block[V]) error
}

// Bus is the shared serialisation point connecting every cache to every
// other cache and to main memory.
type Bus[V Value] struct {
	mu     sync.Mutex
	caches []snoopHandler[V]
	memory memoryPort[V]
	log    *logrus.Entry
}

// NewBus constructs a Bus over the given main memory, with no caches
// attached yet.
func NewBus[V Value](memory memoryPort[V]) *Bus[V] {
	return &Bus[V]{
		memory: memory,
		log:    logrus.WithField("component", "bus"),
	}
}

// attach registers a cache with the bus. Attachment order determines
// broadcast order, but must never affect observable results - the
// aggregation function collapses to a single Shared-vs-Ok decision
// regardless of order.
func (b *Bus[V]) attach(c snoopHandler[V]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caches = append(b.caches, c)
}

// broadcast invokes handleSnoop on every attached cache other than sender,
// and returns Shared if any respondent did, else Ok.
func (b *Bus[V]) broadcast(msg SnoopMessage, blockBase int, sender snoopHandler[V]) SnoopResponse {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := Ok
	for _, c := range b.caches {
		if c == sender {
			continue
		}
		if c.handleSnoop(msg, blockBase) == Shared {
			result = Shared
		}
	}

	b.log.WithFields(logrus.Fields{
		"message": msg, "block": blockBase, "result": result,
	}).Trace("broadcast complete")
	return result
}

// writeBack forwards to Main Memory's Write, flushing only the block's
// data, never the whole CacheBlock (see DESIGN.md's open-question log).
func (b *Bus[V]) writeBack(a int, data block[V]) error {
	return b.memory.Write(a, data)
}

// readFromMain forwards to Main Memory's Read.
func (b *Bus[V]) readFromMain(a int) (block[V], error) {
	return b.memory.Read(a)
}
