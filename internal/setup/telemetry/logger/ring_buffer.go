package logger

// RingBuffer keeps the most recent lines written to a log file.
type RingBuffer struct {
	lines []string
	head  int // Next write position
	size  int // Number of lines held
}

// NewRingBuffer creates a new ring buffer with the specified capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{lines: make([]string, max(capacity, 1))}
}

// Add stores a line, evicting the oldest one when full.
func (rb *RingBuffer) Add(line string) {
	rb.lines[rb.head] = line
	rb.head = (rb.head + 1) % len(rb.lines)

	if rb.size < len(rb.lines) {
		rb.size++
	}
}

// Len returns the number of lines held.
func (rb *RingBuffer) Len() int {
	return rb.size
}

// Cap returns the maximum number of lines held.
func (rb *RingBuffer) Cap() int {
	return len(rb.lines)
}

// Lines returns all lines in chronological order.
func (rb *RingBuffer) Lines() []string {
	if rb.size == 0 {
		return nil
	}

	result := make([]string, rb.size)
	start := (rb.head - rb.size + len(rb.lines)) % len(rb.lines)

	for i := range rb.size {
		result[i] = rb.lines[(start+i)%len(rb.lines)]
	}

	return result
}
