package silence

import "fmt"

// Tracker counts how many bytes of the capture buffer currently hold
// placeholder data rather than synthesized samples.
type Tracker struct {
	size   int
	silent int
}

// Reset marks the whole buffer of the given size as placeholder.
func (t *Tracker) Reset(size int) {
	if size < 0 {
		panic(fmt.Sprintf("silence: negative buffer size %d", size))
	}
	t.size = size
	t.silent = size
}

// Size returns the buffer size the tracker was reset with.
func (t *Tracker) Size() int { return t.size }

// Silent returns the placeholder byte count.
func (t *Tracker) Silent() int { return t.silent }

// Untouched reports whether no real data has been written since Reset.
func (t *Tracker) Untouched() bool { return t.silent >= t.size }

// Consume records n bytes of real data, saturating at zero.
func (t *Tracker) Consume(n int) {
	if n < t.silent {
		t.silent -= n
		return
	}
	t.silent = 0
}

// Room returns how many placeholder bytes may still be added.
func (t *Tracker) Room() int { return t.size - t.silent }

// Add records n bytes of placeholder written over real data. n must fit in Room.
func (t *Tracker) Add(n int) {
	if n < 0 || t.silent+n > t.size {
		panic(fmt.Sprintf("silence: add %d exceeds room %d", n, t.Room()))
	}
	t.silent += n
}
