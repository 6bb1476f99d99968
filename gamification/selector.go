package gamification

import (
	"math/rand"
	"sync"

	"github.com/zero-Zino/gamevault/store"
)

// Selector picks the next game for an adventure step from a genre pool.
//
// Exclusion is tiered: the first tier drops owned, already-played, and the
// explicitly excluded game; if that leaves nothing, the second tier re-admits
// played-but-not-owned games so a small genre pool cannot stall an adventure.
// Only when both tiers are empty does Pick report ErrExhausted.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector. The random source is injected so tests
// can supply a deterministic sequence; rand.NewSource(time.Now().UnixNano())
// is the production choice.
func NewSelector(src rand.Source) *Selector {
	return &Selector{rng: rand.New(src)}
}

// Pick returns one eligible game from pool, chosen uniformly at random
// within the first non-empty exclusion tier. exclude is a game id to skip
// in every tier (0 means none).
func (s *Selector) Pick(pool []store.GameRef, owned, played map[int64]bool, exclude int64) (store.GameRef, error) {
	// Tier 1: fresh games only.
	candidates := filterPool(pool, func(g store.GameRef) bool {
		return !owned[g.ID] && !played[g.ID] && g.ID != exclude
	})

	// Tier 2: allow re-presenting played games, still never owned ones.
	if len(candidates) == 0 {
		candidates = filterPool(pool, func(g store.GameRef) bool {
			return !owned[g.ID] && g.ID != exclude
		})
	}

	if len(candidates) == 0 {
		return store.GameRef{}, ErrExhausted
	}

	s.mu.Lock()
	idx := s.rng.Intn(len(candidates))
	s.mu.Unlock()
	return candidates[idx], nil
}

func filterPool(pool []store.GameRef, keep func(store.GameRef) bool) []store.GameRef {
	var out []store.GameRef
	for _, g := range pool {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}
