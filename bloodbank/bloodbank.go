// bloodbank.go - the narrative client layer atop the coherence engine

/*
bloodbank models memory cells as blood-type bags and performs use/donate/
request operations against a simulator's caches. It is explicitly not part
of the coherence core: it is merely a client of the Cache API, grounded
1:1 on original_source/src/blood_bank/BloodBank.py.

The client indexes the block a read returns at bloodID % blockSize, which
only makes sense if blockSize is 5 - the same coupling the Python source
has (blood_id % 5). That assumption is enforced here, at the client's own
boundary, never inside package coherence.
*/

package bloodbank

import (
	"fmt"

	"github.com/mesisim/coherence"
	"github.com/mesisim/coherence/bloodtype"
)

// requiredBlockSize is the only block size this client's bloodID%blockSize
// coupling is valid for, matching the reference source's hard-coded %5.
const requiredBlockSize = 5

// Bank operates on a simulator's caches, one per hospital.
type Bank struct {
	sim *coherence.Simulator[bloodtype.Type]
}

// New wraps sim for blood-bank operations. Returns an error if sim's block
// size isn't requiredBlockSize - the client's bloodID%blockSize coupling
// would silently misbehave otherwise.
func New(sim *coherence.Simulator[bloodtype.Type], blockSize int) (*Bank, error) {
	if blockSize != requiredBlockSize {
		return nil, fmt.Errorf("bloodbank: requires block size %d, got %d", requiredBlockSize, blockSize)
	}
	return &Bank{sim: sim}, nil
}

// UseBlood uses blood from bag bloodID at hospitalID if it matches
// requiredType, overwriting the bag with the empty sentinel on success.
func (b *Bank) UseBlood(hospitalID, bloodID int, requiredType bloodtype.Type) (string, error) {
	if requiredType == bloodtype.Empty {
		return "You can't use blood from an empty bag!", nil
	}

	cache := b.sim.Caches[hospitalID]
	blk, err := cache.Read(bloodID)
	if err != nil {
		return "", err
	}

	cell := blk.Data[bloodID%requiredBlockSize]
	if cell == nil || *cell != requiredType {
		return "Blood requested is not available anymore.", nil
	}

	if err := cache.Write(bloodID, bloodtype.Empty); err != nil {
		return "", err
	}
	return "Transaction successful.", nil
}

// RequestBlood reports the type of blood in bag bloodID at hospitalID,
// without mutating it.
func (b *Bank) RequestBlood(hospitalID, bloodID int) (string, error) {
	cache := b.sim.Caches[hospitalID]
	blk, err := cache.Read(bloodID)
	if err != nil {
		return "", err
	}

	cell := blk.Data[bloodID%requiredBlockSize]
	if cell == nil || *cell == bloodtype.Empty {
		return fmt.Sprintf("The bag number %d is empty.", bloodID), nil
	}
	return fmt.Sprintf("The type of the blood in bag %d is %s.", bloodID, string(*cell)), nil
}

// DonateBlood writes donatedType into the first empty bag it finds at
// hospitalID, scanning block-by-block across all of main memory.
func (b *Bank) DonateBlood(hospitalID int, donatedType bloodtype.Type) (string, error) {
	addr, found := b.findEmptyBag(hospitalID)
	if !found {
		return "The bank is out of empty bags!", nil
	}

	cache := b.sim.Caches[hospitalID]
	if err := cache.Write(addr, donatedType); err != nil {
		return "", err
	}
	return fmt.Sprintf("Blood accepted at bag number %d.", addr), nil
}

func (b *Bank) findEmptyBag(hospitalID int) (int, bool) {
	cache := b.sim.Caches[hospitalID]
	for addr := 0; addr < b.sim.Memory.Len(); addr += requiredBlockSize {
		blk, err := cache.Read(addr)
		if err != nil {
			continue
		}
		// A never-written bag is treated the same as one explicitly
		// emptied via UseBlood: both are free to donate into. The
		// reference source only ever encounters bags that were already
		// randomly populated with a real tag (including occasionally
		// Empty itself), so this distinction never surfaced there.
		for i, cell := range blk.Data {
			if cell == nil || *cell == bloodtype.Empty {
				return addr + i, true
			}
		}
	}
	return -1, false
}
