// cache.go - the per-processor cache and the MESI state machine

/*
cache.go implements a fully-associative, FIFO-replaced cache of blocks, its
processor-facing Read/Write operations, and the bus-facing snoop handler
that together enforce the MESI invariants.

A cache block is created on a read miss, mutated in place by local writes
and snoops, and destroyed by eviction (always with a write-back of its
current data, regardless of tag - see DESIGN.md's open-question log).

The local/non-local split on read mirrors the is_local flag in the
reference implementation: a snoop handler performs a local, non-coherent
lookup only. It must never cause recursive bus traffic, so a local miss
simply returns "absent" rather than broadcasting.
*/

package coherence

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CacheBlock is a single resident block: its MESI tag and its data.
type CacheBlock[V Value] struct {
	Tag  MESITag
	Data block[V]
}

func (b *CacheBlock[V]) clone() *CacheBlock[V] {
	return &CacheBlock[V]{Tag: b.Tag, Data: cloneBlock(b.Data)}
}

// String renders a block the way the reference cache does: "(data || tag)".
func (b *CacheBlock[V]) String() string {
	return "(" + b.Data.String() + " || " + string(b.Tag) + ")"
}

// busPort is the narrow surface of the Bus a Cache needs. Depending on this
// interface rather than a concrete *Bus keeps the Cache/Bus reference cycle
// a matter of ordinary Go pointers within one package, not a hard coupling
// that would make the cache untestable in isolation.
type busPort[V Value] interface {
	broadcast(msg SnoopMessage, blockBase int, sender snoopHandler[V]) SnoopResponse
	writeBack(a int, data block[V]) error
	readFromMain(a int) (block[V], error)
}

// snoopHandler is what the Bus calls on every attached cache but the
// sender during a broadcast.
type snoopHandler[V Value] interface {
	handleSnoop(msg SnoopMessage, a int) SnoopResponse
}

// Cache is a fully-associative, FIFO-replaced store of up to maxLines
// blocks of blockSize cells each.
type Cache[V Value] struct {
	name      string
	maxLines  int
	blockSize int

	blocks map[int]*CacheBlock[V]
	queue  []int // FIFO order of resident block bases

	bus busPort[V]
	log *logrus.Entry
}

// newCache constructs a cache of maxLines blocks of blockSize cells,
// attached to bus. name is used only for log correlation.
func newCache[V Value](name string, maxLines, blockSize int, bus busPort[V]) *Cache[V] {
	return &Cache[V]{
		name:      name,
		maxLines:  maxLines,
		blockSize: blockSize,
		blocks:    make(map[int]*CacheBlock[V]),
		bus:       bus,
		log:       logrus.WithField("cache", name),
	}
}

func (c *Cache[V]) blockBase(a int) int {
	return a - (a % c.blockSize)
}

// Read performs a coherent processor read: a hit returns the resident
// block immediately; a miss broadcasts Read, fetches from main memory via
// the bus, and installs the result as Shared or Exclusive.
func (c *Cache[V]) Read(a int) (*CacheBlock[V], error) {
	blk, err := c.read(a, Read, false)
	if err != nil {
		return nil, err
	}
	return blk.clone(), nil
}

// Write performs a coherent processor write: it first obtains the block
// via a write-intent read (broadcasting RWITM on a miss), invalidates any
// other Shared copy if the block was already resident as Shared, then
// mutates the cell in place and marks the block Modified.
func (c *Cache[V]) Write(a int, v V) error {
	blk, err := c.read(a, ReadWithIntentToModify, false)
	if err != nil {
		return err
	}

	if blk.Tag == Shared {
		bi := c.blockBase(a)
		c.bus.broadcast(Invalidate, bi, c)
	}

	idx := a % c.blockSize
	cell := v
	blk.Data[idx] = &cell
	blk.Tag = Modified

	c.log.WithFields(logrus.Fields{"addr": a, "tag": Modified}).Debug("write committed")
	return nil
}

// read implements the single read operation the specification describes:
// Read and Write both funnel through it with a different intent, and the
// snoop handler calls it with local=true to perform a non-coherent lookup.
func (c *Cache[V]) read(a int, msg SnoopMessage, local bool) (*CacheBlock[V], error) {
	bi := c.blockBase(a)

	if blk, ok := c.blocks[bi]; ok && blk.Tag != Invalid {
		if !local {
			if msg == ReadWithIntentToModify {
				c.log.WithField("addr", a).Debug("Write Hit")
			} else {
				c.log.WithField("addr", a).Debug("Read Hit")
			}
		}
		return blk, nil
	}

	if local {
		return nil, nil
	}

	if msg == ReadWithIntentToModify {
		c.log.WithField("addr", a).Debug("Write Miss")
	} else {
		c.log.WithField("addr", a).Debug("Read Miss")
	}

	resp := c.bus.broadcast(msg, bi, c)

	data, err := c.bus.readFromMain(bi)
	if err != nil {
		return nil, errors.Wrapf(err, "cache %s: fetch block %d", c.name, bi)
	}

	tag := Exclusive
	if resp == Shared {
		tag = Shared
	}
	newBlock := &CacheBlock[V]{Tag: tag, Data: data}
	c.install(bi, newBlock)
	return newBlock, nil
}

// install places newBlock at bi, evicting the FIFO head (with write-back)
// if the cache is at capacity and bi is not already resident.
func (c *Cache[V]) install(bi int, newBlock *CacheBlock[V]) {
	if _, ok := c.blocks[bi]; ok {
		c.blocks[bi] = newBlock
		return
	}

	if len(c.queue) >= c.maxLines {
		c.evict()
	}

	c.blocks[bi] = newBlock
	c.queue = append(c.queue, bi)
}

// evict removes the oldest resident block, writing its current data back
// to main memory regardless of its tag - wasteful for S/E blocks whose
// contents already match memory, but this is deliberate FIFO eviction
// behaviour (see DESIGN.md), not a bug to silently fix.
func (c *Cache[V]) evict() {
	victim := c.queue[0]
	c.queue = c.queue[1:]

	blk := c.blocks[victim]
	delete(c.blocks, victim)

	if err := c.bus.writeBack(victim, blk.Data); err != nil {
		c.log.WithError(err).WithField("addr", victim).Warn("eviction write-back failed")
	}
	c.log.WithField("addr", victim).Debug("evicted")
}

// handleSnoop is the bus-facing entry point: the MESI snoop transition
// table. It never re-enters the bus - the local lookup it performs
// (msg, local=true) is guaranteed not to broadcast, which eliminates
// recursive coherence traffic.
func (c *Cache[V]) handleSnoop(msg SnoopMessage, a int) SnoopResponse {
	bi := c.blockBase(a)
	blk, _ := c.read(a, msg, true)

	switch msg {
	case Read:
		return c.handleReadSnoop(blk, bi)
	case ReadWithIntentToModify:
		return c.handleRWITMSnoop(blk, bi)
	case Invalidate:
		return c.handleInvalidateSnoop(blk, bi)
	default:
		return InvalidResponse
	}
}

func (c *Cache[V]) handleReadSnoop(blk *CacheBlock[V], bi int) SnoopResponse {
	if blk == nil || blk.Tag == Invalid {
		return Ok
	}

	if blk.Tag == Modified {
		if err := c.bus.writeBack(bi, blk.Data); err != nil {
			c.log.WithError(err).WithField("addr", bi).Warn("snoop write-back failed")
		}
		c.blocks[bi].Tag = Shared
		c.log.WithFields(logrus.Fields{"addr": bi, "from": Modified, "to": Shared}).Debug("snoop: read")
		return Shared
	}

	if blk.Tag == Exclusive {
		c.blocks[bi].Tag = Shared
		c.log.WithFields(logrus.Fields{"addr": bi, "from": Exclusive, "to": Shared}).Debug("snoop: read")
	}
	return Shared
}

func (c *Cache[V]) handleRWITMSnoop(blk *CacheBlock[V], bi int) SnoopResponse {
	if blk == nil || blk.Tag == Invalid {
		return Ok
	}

	if blk.Tag == Modified {
		if err := c.bus.writeBack(bi, blk.Data); err != nil {
			c.log.WithError(err).WithField("addr", bi).Warn("snoop write-back failed")
		}
	}

	from := blk.Tag
	c.blocks[bi].Tag = Invalid
	c.log.WithFields(logrus.Fields{"addr": bi, "from": from, "to": Invalid}).Debug("snoop: rwitm")
	return Ok
}

func (c *Cache[V]) handleInvalidateSnoop(blk *CacheBlock[V], bi int) SnoopResponse {
	if blk == nil || blk.Tag == Invalid {
		return Ok
	}

	from := blk.Tag
	c.blocks[bi].Tag = Invalid
	c.log.WithFields(logrus.Fields{"addr": bi, "from": from, "to": Invalid}).Debug("snoop: invalidate")
	return Ok
}

// Resident reports whether bi is currently resident with a non-Invalid
// tag, for test and inspection use.
func (c *Cache[V]) Resident(bi int) (*CacheBlock[V], bool) {
	blk, ok := c.blocks[bi]
	if !ok || blk.Tag == Invalid {
		return nil, false
	}
	return blk.clone(), true
}

// Queue returns a copy of the FIFO residency order, oldest first.
func (c *Cache[V]) Queue() []int {
	out := make([]int, len(c.queue))
	copy(out, c.queue)
	return out
}

// String renders resident blocks in FIFO order, like the reference cache's
// __str__.
func (c *Cache[V]) String() string {
	s := ""
	for i, bi := range c.queue {
		if i > 0 {
			s += "\n"
		}
		s += strconv.Itoa(bi) + ": " + c.blocks[bi].String()
	}
	return s
}
