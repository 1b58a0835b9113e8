// Package scroll maps playback progress or manual input to a line offset into
// the current lyrics document.
package scroll

// Mode is the synchronizer state.
type Mode string

const (
	// Auto recomputes the offset from playback progress on every tick.
	Auto Mode = "auto"
	// Manual leaves the offset under user control until the track changes.
	Manual Mode = "manual"
)

// Sync is the scroll state machine. It is driven from a single goroutine and
// needs no locking.
type Sync struct {
	autoScroll bool
	mode       Mode
	offset     int
	numLines   int
	timestamps []float64
}

// New creates a synchronizer. When autoScroll is false the state machine is
// permanently manual: no tick ever moves the offset.
func New(autoScroll bool) *Sync {
	mode := Manual
	if autoScroll {
		mode = Auto
	}
	return &Sync{autoScroll: autoScroll, mode: mode}
}

// TrackChanged resets the offset for a new document. timestamps may hold one
// per-line timestamp in seconds for timed lyrics; pass nil for plain text.
func (s *Sync) TrackChanged(numLines int, timestamps []float64) {
	s.offset = 0
	s.numLines = numLines
	s.timestamps = nil
	if len(timestamps) == numLines && numLines > 0 {
		s.timestamps = timestamps
	}
	if s.autoScroll {
		s.mode = Auto
	}
}

// Tick recomputes the offset from playback progress. Timed lyrics snap to the
// current timestamped line; untimed text scrolls proportionally, assuming
// roughly uniform lyrics density over the track.
func (s *Sync) Tick(position, duration float64) {
	if s.mode != Auto || s.numLines == 0 {
		return
	}

	if s.timestamps != nil {
		s.offset = timestampIndex(s.timestamps, position)
		return
	}

	if duration <= 0 {
		return
	}
	ratio := position / duration
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	s.offset = int(ratio * float64(s.numLines-1))
}

// ManualScroll moves the offset by delta and switches to manual mode. Only a
// track change returns the machine to auto, so user adjustments are never
// fought by the next tick.
func (s *Sync) ManualScroll(delta int) {
	s.mode = Manual
	if s.numLines == 0 {
		s.offset = 0
		return
	}
	s.offset += delta
	if s.offset < 0 {
		s.offset = 0
	}
	if s.offset > s.numLines-1 {
		s.offset = s.numLines - 1
	}
}

// Offset returns the current line offset.
func (s *Sync) Offset() int {
	return s.offset
}

// Mode returns the current mode.
func (s *Sync) Mode() Mode {
	return s.mode
}

// timestampIndex finds the last line whose timestamp is at or before the
// given position.
func timestampIndex(timestamps []float64, position float64) int {
	left, right := 0, len(timestamps)-1
	result := 0
	for left <= right {
		mid := (left + right) / 2
		if timestamps[mid] <= position {
			result = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return result
}
