package internal

import (
	"fmt"
	"sync"
)

// Stream selects one of a process's captured output streams.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// ParseStream accepts "stdout" or "stderr". The empty string means stdout.
func ParseStream(name string) (Stream, error) {
	switch name {
	case "", "stdout":
		return Stdout, nil
	case "stderr":
		return Stderr, nil
	}
	return 0, fmt.Errorf("%w: invalid stream %q: must be 'stdout' or 'stderr'", ErrInvalidInput, name)
}

// window is a bounded tail of a stream. start is the absolute stream
// offset of data[0]; bytes before it were trimmed.
type window struct {
	data  []byte
	start int64
}

func (w *window) append(p []byte, maxSize int) {
	w.data = append(w.data, p...)
	if excess := len(w.data) - maxSize; excess > 0 {
		w.data = w.data[excess:]
		w.start += int64(excess)
	}
}

func (w *window) read(position int64, maxBytes int) ([]byte, int64, bool) {
	if position < w.start {
		// Position is before our buffer start, adjust to buffer start
		position = w.start
	}
	offset := position - w.start
	if offset >= int64(len(w.data)) {
		return nil, position, false
	}
	end := min(offset+int64(maxBytes), int64(len(w.data)))
	data := make([]byte, end-offset)
	copy(data, w.data[offset:end])

	next := position + int64(len(data))
	return data, next, next < w.start+int64(len(w.data))
}

// OutputBuffer keeps the most recent output of both streams, each bounded
// by maxSize bytes. Positions are absolute stream offsets and stay valid
// across trimming.
type OutputBuffer struct {
	mu      sync.RWMutex
	streams [2]window
	maxSize int
	changed chan struct{}
	closed  bool
}

// NewOutputBuffer creates a new output buffer with the specified maximum size
func NewOutputBuffer(maxSize int) *OutputBuffer {
	return &OutputBuffer{
		maxSize: maxSize,
		changed: make(chan struct{}),
	}
}

// Write appends data to stream s and wakes blocked readers.
func (ob *OutputBuffer) Write(s Stream, data []byte) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.streams[s].append(data, ob.maxSize)
	if !ob.closed {
		close(ob.changed)
		ob.changed = make(chan struct{})
	}
}

// Read returns up to maxBytes of stream s starting at position, the
// position after the returned data, and whether more data is buffered.
func (ob *OutputBuffer) Read(s Stream, position int64, maxBytes int) ([]byte, int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.streams[s].read(position, maxBytes)
}

// Size returns the buffered size of stream s and the offset it starts at.
func (ob *OutputBuffer) Size(s Stream) (size int, position int64) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return len(ob.streams[s].data), ob.streams[s].start
}

// Changed returns a channel closed by the next Write or by Close.
func (ob *OutputBuffer) Changed() <-chan struct{} {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.changed
}

// Closed reports whether Close was called.
func (ob *OutputBuffer) Closed() bool {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.closed
}

// Close marks the end of output. Buffered data stays readable.
func (ob *OutputBuffer) Close() {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	if !ob.closed {
		ob.closed = true
		close(ob.changed)
	}
}
