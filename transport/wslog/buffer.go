package wslog

import (
	"sync"

	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
)

// outboundBuffer is the FIFO of lines not yet flushed on an open
// connection. It keeps at most maxLines lines, evicting the oldest.
type outboundBuffer struct {
	access   sync.Mutex
	lines    []bufferedLine
	maxLines int
	sequence uint64
	dropped  uint64
}

type bufferedLine struct {
	sequence uint64
	line     string
	// handed to a ready connection, kept for the next flush
	handed bool
}

func newOutboundBuffer(maxLines int) *outboundBuffer {
	if maxLines <= 0 {
		maxLines = C.DefaultMaxBufferLines
	}
	return &outboundBuffer{maxLines: maxLines}
}

// Push appends line and returns its sequence. Evicting a line that was
// never handed to a ready connection counts as a drop.
func (b *outboundBuffer) Push(line string, handed bool) uint64 {
	b.access.Lock()
	defer b.access.Unlock()
	if len(b.lines) >= b.maxLines {
		if !b.lines[0].handed {
			b.dropped++
		}
		b.lines[0] = bufferedLine{}
		b.lines = b.lines[1:]
	}
	b.sequence++
	b.lines = append(b.lines, bufferedLine{sequence: b.sequence, line: line, handed: handed})
	return b.sequence
}

// Snapshot returns the buffered lines and the sequence of the last one.
func (b *outboundBuffer) Snapshot() ([]string, uint64) {
	b.access.Lock()
	defer b.access.Unlock()
	if len(b.lines) == 0 {
		return nil, 0
	}
	lines := make([]string, len(b.lines))
	for i, buffered := range b.lines {
		lines[i] = buffered.line
	}
	return lines, b.lines[len(b.lines)-1].sequence
}

// Trim removes every line up to and including sequence. Lines evicted in
// the meantime are already gone, so trimming goes by sequence, not index.
func (b *outboundBuffer) Trim(sequence uint64) {
	b.access.Lock()
	defer b.access.Unlock()
	index := 0
	for index < len(b.lines) && b.lines[index].sequence <= sequence {
		b.lines[index] = bufferedLine{}
		index++
	}
	b.lines = b.lines[index:]
	if len(b.lines) == 0 {
		b.lines = nil
	}
}

func (b *outboundBuffer) Len() int {
	b.access.Lock()
	defer b.access.Unlock()
	return len(b.lines)
}

// Dropped returns the number of lines evicted before they were handed to a
// ready connection.
func (b *outboundBuffer) Dropped() uint64 {
	b.access.Lock()
	defer b.access.Unlock()
	return b.dropped
}
