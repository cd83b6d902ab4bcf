package tree

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

const (
	// MinID and MaxID bound the numeric node id range (4 digits).
	MinID = 1000
	MaxID = 9999

	// maxRandomAttempts is how many random candidates Generate tries before
	// switching to a linear scan for a free id.
	maxRandomAttempts = 256
)

// IsValidID reports whether id is a 4-digit node id in [MinID, MaxID].
func IsValidID(id string) bool {
	if len(id) != 4 {
		return false
	}
	n, err := strconv.Atoi(id)
	return err == nil && n >= MinID && n <= MaxID
}

// IDGenerator produces short numeric node ids drawn uniformly from
// [min, max], unique within a given document.
type IDGenerator struct {
	min, max int
	intN     func(n int) int
}

// NewIDGenerator returns a generator over the default 4-digit range.
func NewIDGenerator() *IDGenerator {
	return NewIDGeneratorRange(MinID, MaxID, nil)
}

// NewIDGeneratorRange returns a generator over [min, max]. intN must return
// a uniform value in [0, n); nil uses math/rand/v2.
func NewIDGeneratorRange(min, max int, intN func(n int) int) *IDGenerator {
	if intN == nil {
		intN = rand.IntN
	}
	if max < min {
		min, max = max, min
	}
	return &IDGenerator{min: min, max: max, intN: intN}
}

var defaultIDs = NewIDGenerator()

// Generate returns a candidate id. With a nil document any candidate is
// returned; otherwise the id is guaranteed not to collide with any node
// already in doc. Returns ErrIDSpaceExhausted when the range is full.
func (g *IDGenerator) Generate(doc *Document) (string, error) {
	span := g.max - g.min + 1
	if doc == nil {
		return strconv.Itoa(g.min + g.intN(span)), nil
	}

	used := doc.idSet()
	taken := 0
	for id := range used {
		if n, err := strconv.Atoi(id); err == nil && n >= g.min && n <= g.max {
			taken++
		}
	}
	if taken >= span {
		return "", fmt.Errorf("%w: all %d ids in [%d, %d] are taken", ErrIDSpaceExhausted, span, g.min, g.max)
	}

	for range maxRandomAttempts {
		candidate := strconv.Itoa(g.min + g.intN(span))
		if !used[candidate] {
			return candidate, nil
		}
	}

	// Dense range: walk from a random offset so the scan still spreads ids.
	start := g.intN(span)
	for i := range span {
		candidate := strconv.Itoa(g.min + (start+i)%span)
		if !used[candidate] {
			return candidate, nil
		}
	}
	return "", ErrIDSpaceExhausted
}
