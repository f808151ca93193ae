// bloodtype.go - the reference value domain: blood-type tags plus "empty"

/*
bloodtype implements coherence.Value for the reference domain the
specification names: eight blood-type labels plus an explicit empty
sentinel. It is grounded directly on original_source/src/enums.py's
BloodType enum, including the fixed-width string padding its __str__
applies (one-character labels get two trailing spaces, two-character
labels get one, three-character labels none) so that tabular dumps of cache/memory state line up the
way the source's do.

This package knows nothing about coherence, caches, or buses - it is
purely the payload type coherence.Cache[bloodtype.Type] is instantiated
over.
*/

package bloodtype

// Type is a blood-type tag, or the empty sentinel.
type Type string

const (
	APositive  Type = "A+"
	ANegative  Type = "A-"
	BPositive  Type = "B+"
	BNegative  Type = "B-"
	ABPositive Type = "AB+"
	ABNegative Type = "AB-"
	OPositive  Type = "O+"
	ONegative  Type = "O-"
	Empty      Type = "E"
)

// All enumerates every donatable type plus the Empty sentinel, in the order
// the reference source lists them - used by callers that need to pick a
// random value.
var All = []Type{
	APositive, ANegative, BPositive, BNegative,
	ABPositive, ABNegative, OPositive, ONegative, Empty,
}

// String renders the tag padded to three characters, matching the
// reference __str__ (so "A+" prints as "A+ " and "E" prints as "E  ").
func (t Type) String() string {
	switch len(t) {
	case 1:
		return string(t) + "  "
	case 2:
		return string(t) + " "
	default:
		return string(t)
	}
}
