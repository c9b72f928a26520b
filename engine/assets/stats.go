package assets

import "sync/atomic"

// Stats holds the advisory hit/miss/load counters of one Cache. They are
// plain atomics and are not synchronized with the cache map.
type Stats struct {
	hits   atomic.Uint64
	misses atomic.Uint64
	loads  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Hits   uint64
	Misses uint64
	Loads  uint64
}

// HitRate returns hits / (hits + misses), or 0 when nothing was requested.
func (s StatsSnapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Loads:  s.loads.Load(),
	}
}

func (s *Stats) reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.loads.Store(0)
}
