package coordinator

import "sync"

// publisher delivers states to out in push order without ever blocking
// the pusher.
type publisher struct {
	mu     sync.Mutex
	queue  []State
	closed bool
	wake   chan struct{}
	out    chan State
}

func newPublisher() *publisher {
	p := &publisher{
		wake: make(chan struct{}, 1),
		out:  make(chan State),
	}
	go p.run()
	return p
}

func (p *publisher) push(s State) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.queue = append(p.queue, s)
	p.mu.Unlock()
	p.signal()
}

// close lets run deliver what is queued, then closes out.
func (p *publisher) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.signal()
}

func (p *publisher) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *publisher) run() {
	defer close(p.out)
	for {
		p.mu.Lock()
		batch, closed := p.queue, p.closed
		p.queue = nil
		p.mu.Unlock()

		for _, s := range batch {
			p.out <- s
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-p.wake
	}
}
