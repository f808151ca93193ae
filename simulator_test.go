package coherence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNewSimulatorDefaults verifies the default dimensions are applied
// when a zero-valued Config is supplied.
func TestNewSimulatorDefaults(t *testing.T) {
	sim, err := NewSimulator[testVal](Config{})
	require.NoError(t, err)

	require.Equal(t, defaultMainMemorySize, sim.Memory.Len())
	require.Len(t, sim.Caches, defaultNCaches)
	for _, c := range sim.Caches {
		require.Equal(t, defaultCacheSize, c.maxLines)
	}
}

// TestNewSimulatorRejectsMisalignedMemory verifies ConfigInvalid is raised
// when main_memory_size is not a multiple of block_size.
func TestNewSimulatorRejectsMisalignedMemory(t *testing.T) {
	_, err := NewSimulator[testVal](Config{MainMemorySize: 11, BlockSize: 5, CacheSize: 2, NCaches: 1})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrConfigInvalid)
}

// TestNewSimulatorRejectsNonPositiveDimensions verifies ConfigInvalid is
// raised for non-positive cache_size, n_caches, and block_size.
func TestNewSimulatorRejectsNonPositiveDimensions(t *testing.T) {
	cases := []Config{
		{MainMemorySize: 10, BlockSize: 5, CacheSize: -1, NCaches: 1},
		{MainMemorySize: 10, BlockSize: 5, CacheSize: 2, NCaches: -1},
		{MainMemorySize: 10, BlockSize: -5, CacheSize: 2, NCaches: 1},
	}
	for _, cfg := range cases {
		_, err := NewSimulator[testVal](cfg)
		require.ErrorIs(t, err, ErrConfigInvalid)
	}
}

// TestSimulatorAttachesAllCaches verifies every cache constructed by
// NewSimulator is attached to the bus and can observe the others' traffic.
func TestSimulatorAttachesAllCaches(t *testing.T) {
	sim, err := NewSimulator[testVal](Config{MainMemorySize: 4, BlockSize: 2, CacheSize: 2, NCaches: 3})
	require.NoError(t, err)
	require.NoError(t, sim.Memory.Write(0, block[testVal]{cell("X"), cell("Y")}))

	_, err = sim.Caches[0].Read(0)
	require.NoError(t, err)
	_, err = sim.Caches[1].Read(0)
	require.NoError(t, err)

	owners := 0
	for _, c := range sim.Caches {
		if _, ok := c.Resident(0); ok {
			owners++
		}
	}
	require.Equal(t, 2, owners, "only the two caches that actually read must be resident")
}

// TestPopulateMemoryIsDeterministic verifies that the same seed produces
// the same populated memory contents.
func TestPopulateMemoryIsDeterministic(t *testing.T) {
	sim1, err := NewSimulator[testVal](Config{MainMemorySize: 20, BlockSize: 5, CacheSize: 2, NCaches: 1})
	require.NoError(t, err)
	sim2, err := NewSimulator[testVal](Config{MainMemorySize: 20, BlockSize: 5, CacheSize: 2, NCaches: 1})
	require.NoError(t, err)

	values := []testVal{"A", "B", "C"}
	sim1.PopulateMemory(42, values)
	sim2.PopulateMemory(42, values)

	require.Equal(t, sim1.Memory.String(), sim2.Memory.String())
}

// TestPopulateCachesFillsEveryCache verifies PopulateCaches reads until
// every cache reaches capacity.
func TestPopulateCachesFillsEveryCache(t *testing.T) {
	sim, err := NewSimulator[testVal](Config{MainMemorySize: 40, BlockSize: 2, CacheSize: 3, NCaches: 2})
	require.NoError(t, err)
	sim.PopulateMemory(7, []testVal{"A", "B"})

	sim.PopulateCaches(7)

	for _, c := range sim.Caches {
		require.Len(t, c.Queue(), 3)
	}
}
