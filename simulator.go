// simulator.go - wiring: main memory, bus, and N caches, attached together

/*
simulator.go is the construction layer: it has no coherence logic of its
own. It validates configuration, builds a MainMemory, a Bus over it, and
NCaches caches of CacheSize lines each, and attaches every cache to the
bus. Like any constructor that only allocates and wires, it leaves all
behaviour to the methods its pieces return.

Random population (PopulateMemory, PopulateCaches) is an explicit method
call, never a side effect of construction - per the Design Notes, the
reference source's module-load-time randomisation is deliberately not
reproduced here.
*/

package coherence

import (
	"math/rand"
	"strconv"

	"github.com/pkg/errors"
)

const (
	defaultMainMemorySize = 200
	defaultCacheSize      = 10
	defaultNCaches        = 4
	defaultBlockSize      = 5
)

// Config holds the dimensions NewSimulator validates and wires together.
// Zero-valued fields fall back to defaults appropriate for a small demo run.
type Config struct {
	MainMemorySize int
	CacheSize      int
	NCaches        int
	BlockSize      int
}

func (c Config) withDefaults() Config {
	if c.MainMemorySize == 0 {
		c.MainMemorySize = defaultMainMemorySize
	}
	if c.CacheSize == 0 {
		c.CacheSize = defaultCacheSize
	}
	if c.NCaches == 0 {
		c.NCaches = defaultNCaches
	}
	if c.BlockSize == 0 {
		c.BlockSize = defaultBlockSize
	}
	return c
}

func (c Config) validate() error {
	if c.BlockSize <= 0 {
		return errors.Wrap(ErrConfigInvalid, "block_size must be positive")
	}
	if c.MainMemorySize <= 0 {
		return errors.Wrap(ErrConfigInvalid, "main_memory_size must be positive")
	}
	if c.MainMemorySize%c.BlockSize != 0 {
		return errors.Wrapf(ErrConfigInvalid,
			"main_memory_size %d is not a multiple of block_size %d", c.MainMemorySize, c.BlockSize)
	}
	if c.CacheSize <= 0 {
		return errors.Wrap(ErrConfigInvalid, "cache_size must be positive")
	}
	if c.NCaches <= 0 {
		return errors.Wrap(ErrConfigInvalid, "n_caches must be at least 1")
	}
	return nil
}

// Simulator owns a MainMemory, a Bus over it, and the N attached Caches.
type Simulator[V Value] struct {
	Memory *MainMemory[V]
	Bus    *Bus[V]
	Caches []*Cache[V]

	blockSize int
}

// NewSimulator validates cfg (applying defaults for zero fields) and
// constructs the memory/bus/cache wiring. Returns ErrConfigInvalid if the
// dimensions don't form a valid layout.
func NewSimulator[V Value](cfg Config) (*Simulator[V], error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	memory := NewMainMemory[V](cfg.MainMemorySize, cfg.BlockSize)
	bus := NewBus[V](memory)

	caches := make([]*Cache[V], cfg.NCaches)
	for i := range caches {
		caches[i] = newCache[V](cacheName(i), cfg.CacheSize, cfg.BlockSize, bus)
		bus.attach(caches[i])
	}

	return &Simulator[V]{
		Memory:    memory,
		Bus:       bus,
		Caches:    caches,
		blockSize: cfg.BlockSize,
	}, nil
}

func cacheName(i int) string {
	return "cache-" + strconv.Itoa(i)
}

// PopulateMemory fills memory block-by-block with a pseudorandom sequence
// drawn from values, seeded by seed for determinism.
func (s *Simulator[V]) PopulateMemory(seed int64, values []V) {
	r := rand.New(rand.NewSource(seed))
	n := s.Memory.Len()
	for a := 0; a < n; a += s.blockSize {
		b := make(block[V], s.blockSize)
		for i := range b {
			v := values[r.Intn(len(values))]
			b[i] = &v
		}
		_ = s.Memory.Write(a, b)
	}
}

// PopulateCaches issues reads at random addresses into each cache until
// every cache is full, using a seeded generator per the same seed for
// determinism across runs. This assumes CacheSize*BlockSize <=
// MainMemorySize (the number of distinct blocks memory can offer must
// reach maxLines); a Config that violates this spins forever, since no
// amount of further reads can ever fill the cache. NewSimulator's
// validate does not reject such configs, matching the same unguarded
// assumption in the reference source's populate loop.
func (s *Simulator[V]) PopulateCaches(seed int64) {
	r := rand.New(rand.NewSource(seed))
	n := s.Memory.Len()
	if n == 0 {
		return
	}
	for _, c := range s.Caches {
		for len(c.queue) < c.maxLines {
			addr := r.Intn(n)
			if _, err := c.Read(addr); err != nil {
				continue
			}
		}
	}
}
