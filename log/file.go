package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
)

// lineWriter hands whole entries to one worker goroutine that writes them in
// order, so a slow terminal or disk never blocks the caller. Entries are
// dropped and counted when the queue is full.
type lineWriter struct {
	access   sync.RWMutex
	writer   io.Writer
	file     *os.File
	filePath string
	queue    chan queuedLine
	done     chan struct{}
	closed   bool
	dropped  atomic.Uint64
}

type queuedLine struct {
	writer  io.Writer
	content []byte
}

func (w *lineWriter) open() error {
	w.access.Lock()
	defer w.access.Unlock()
	if w.filePath == "" || w.writer != nil || w.closed {
		return nil
	}
	err := os.MkdirAll(filepath.Dir(w.filePath), 0o755)
	if err != nil {
		return E.Cause(err, "create log directory")
	}
	file, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return E.Cause(err, "open log file ", w.filePath)
	}
	w.file = file
	w.writer = file
	return nil
}

// write is a no-op until a file output has been started, and after close.
func (w *lineWriter) write(content []byte) error {
	w.access.RLock()
	if w.writer != nil && !w.closed && w.queue != nil {
		select {
		case w.queue <- queuedLine{w.writer, content}:
		default:
			w.dropped.Add(1)
		}
		w.access.RUnlock()
		return nil
	}
	startWorker := w.writer != nil && !w.closed
	w.access.RUnlock()
	if !startWorker {
		return nil
	}
	w.access.Lock()
	if w.queue == nil && !w.closed {
		w.queue = make(chan queuedLine, C.DefaultOutputQueue)
		w.done = make(chan struct{})
		go w.loop(w.queue, w.done)
	}
	w.access.Unlock()
	return w.write(content)
}

func (w *lineWriter) loop(queue <-chan queuedLine, done chan<- struct{}) {
	defer close(done)
	for line := range queue {
		_, _ = line.writer.Write(line.content)
	}
}

// close flushes queued entries, then closes the file.
func (w *lineWriter) close() error {
	w.access.Lock()
	if w.closed {
		w.access.Unlock()
		return nil
	}
	w.closed = true
	queue, done, file := w.queue, w.done, w.file
	w.access.Unlock()
	if queue != nil {
		close(queue)
		<-done
	}
	return common.Close(common.PtrOrNil(file))
}

// Dropped returns the number of entries lost to a full queue.
func (w *lineWriter) Dropped() uint64 {
	return w.dropped.Load()
}
