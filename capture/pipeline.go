package capture

import (
	"sync"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/log"
)

var _ log.Sink = (*Pipeline)(nil)

// Pipeline routes records to the attached sink, queueing them while no sink
// is attached. One dispatcher at a time delivers records in arrival order;
// a record logged from inside the sink is delivered after the current one.
type Pipeline struct {
	access      sync.Mutex
	sink        log.Sink
	pending     []log.Record
	inflight    []log.Record
	dispatching bool
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

func (p *Pipeline) Log(record log.Record) {
	p.access.Lock()
	if p.sink == nil {
		p.pending = append(p.pending, record)
		p.access.Unlock()
		return
	}
	p.inflight = append(p.inflight, record)
	if p.dispatching {
		p.access.Unlock()
		return
	}
	p.dispatching = true
	p.access.Unlock()
	p.dispatch()
}

// AttachSink replaces the current sink and drains queued records into it,
// oldest first, before any record logged afterwards.
func (p *Pipeline) AttachSink(sink log.Sink) {
	if sink == nil {
		p.DetachSink()
		return
	}
	p.access.Lock()
	p.sink = sink
	p.inflight = append(p.inflight, p.pending...)
	p.pending = nil
	if p.dispatching || len(p.inflight) == 0 {
		p.access.Unlock()
		return
	}
	p.dispatching = true
	p.access.Unlock()
	p.dispatch()
}

// DetachSink clears the sink. Records logged afterwards queue again.
func (p *Pipeline) DetachSink() {
	p.access.Lock()
	defer p.access.Unlock()
	p.sink = nil
}

func (p *Pipeline) Sink() log.Sink {
	p.access.Lock()
	defer p.access.Unlock()
	return p.sink
}

// Pending returns the number of queued records.
func (p *Pipeline) Pending() int {
	p.access.Lock()
	defer p.access.Unlock()
	return len(p.pending)
}

func (p *Pipeline) dispatch() {
	for {
		p.access.Lock()
		if p.sink == nil {
			// detached mid-dispatch: undelivered records are older than
			// anything queued since
			p.pending = append(p.inflight, p.pending...)
			p.inflight = nil
		}
		if len(p.inflight) == 0 {
			p.dispatching = false
			p.access.Unlock()
			return
		}
		sink := p.sink
		record := p.inflight[0]
		p.inflight[0] = log.Record{}
		p.inflight = p.inflight[1:]
		p.access.Unlock()
		deliver(sink, record)
	}
}

func deliver(sink log.Sink, record log.Record) {
	defer func() {
		_ = recover()
	}()
	sink.Log(record)
}
