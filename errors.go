// errors.go - sentinel error kinds for the coherence engine

package coherence

import "github.com/pkg/errors"

var (
	// ErrConfigInvalid is returned by NewSimulator when the requested
	// dimensions can't form a valid memory/block/cache layout.
	ErrConfigInvalid = errors.New("config invalid")

	// ErrOutOfRange is returned by MainMemory.Read/Write, and propagated
	// unchanged through Cache.Read/Write, when an address is >= N.
	ErrOutOfRange = errors.New("address out of range")
)
