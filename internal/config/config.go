package config

import "sync"

const (
	// MaxRadius bounds either streaming radius, in chunks.
	MaxRadius = 32
)

// StreamSettings holds the streaming radii. They can be changed at runtime
// from any goroutine; the streamer reads them once per tick.
type StreamSettings struct {
	mu               sync.RWMutex
	horizontalRadius int // in chunks, applies to X and Z
	verticalRadius   int // in chunks, applies to Y
	evictMargin      int // extra chunks kept beyond the load box
}

// NewStreamSettings creates settings with the given radii, clamped to
// [0, MaxRadius].
func NewStreamSettings(horizontal, vertical, evictMargin int) *StreamSettings {
	s := &StreamSettings{}
	s.SetRadii(horizontal, vertical)
	s.SetEvictMargin(evictMargin)
	return s
}

// Radii returns the horizontal and vertical load radius in chunks.
func (s *StreamSettings) Radii() (horizontal, vertical int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.horizontalRadius, s.verticalRadius
}

// SetRadii sets both load radii.
func (s *StreamSettings) SetRadii(horizontal, vertical int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.horizontalRadius = clamp(horizontal, 0, MaxRadius)
	s.verticalRadius = clamp(vertical, 0, MaxRadius)
}

// EvictMargin returns how many chunks beyond the load box stay resident.
func (s *StreamSettings) EvictMargin() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evictMargin
}

// SetEvictMargin sets the eviction hysteresis. Negative disables eviction.
func (s *StreamSettings) SetEvictMargin(margin int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if margin < 0 {
		margin = -1
	}
	s.evictMargin = margin
}

// EvictRadii returns the box outside of which chunks are evicted, and false
// when eviction is disabled.
func (s *StreamSettings) EvictRadii() (horizontal, vertical int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.evictMargin < 0 {
		return 0, 0, false
	}
	return s.horizontalRadius + s.evictMargin, s.verticalRadius + s.evictMargin, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
